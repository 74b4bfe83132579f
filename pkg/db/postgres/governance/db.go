package governance

import (
	"context"
	"fmt"

	store "github.com/daoscope/govcollector/pkg/db"
	"github.com/daoscope/govcollector/pkg/db/postgres"
	"github.com/daoscope/govcollector/pkg/retry"
	"go.uber.org/zap"
)

var _ store.GovernanceStore = (*DB)(nil)

// DB is the PostgreSQL-backed governance store.
type DB struct {
	postgres.Client
}

// New connects to dbURL and ensures the schema exists.
func New(ctx context.Context, logger *zap.Logger, dbURL string, poolConfig *postgres.PoolConfig) (*DB, error) {
	component := "unknown"
	if poolConfig != nil {
		component = poolConfig.Component
	}
	client, err := postgres.New(ctx, logger.With(
		zap.String("db", "governance"),
		zap.String("component", component),
	), dbURL, poolConfig, retry.DefaultConfig())
	if err != nil {
		return nil, err
	}

	govDB := &DB{Client: client}
	if err := govDB.InitializeDB(ctx); err != nil {
		govDB.Pool.Close()
		return nil, err
	}
	return govDB, nil
}

// InitializeDB ensures the required tables exist. Order matters because of foreign keys.
func (db *DB) InitializeDB(ctx context.Context) error {
	steps := []struct {
		table string
		fn    func(context.Context) error
	}{
		{"organizations", db.initOrganizations},
		{"proposals", db.initProposals},
		{"votes", db.initVotes},
		{"governance_metrics", db.initMetrics},
	}
	for _, step := range steps {
		db.Logger.Debug("Initialize table", zap.String("table", step.table))
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", step.table, err)
		}
	}
	return nil
}

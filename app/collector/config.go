package collector

import (
	"time"

	"github.com/daoscope/govcollector/pkg/governance"
	"github.com/daoscope/govcollector/pkg/redis"
	"github.com/daoscope/govcollector/pkg/snapshot"
	"github.com/daoscope/govcollector/pkg/utils"
)

const (
	// MaxWorkers bounds concurrent organization collections.
	MaxWorkers = 4
	// DefaultRunTimeout bounds one scheduled or manual run.
	DefaultRunTimeout = 15 * time.Minute
)

// Config is the process configuration, read from the environment.
type Config struct {
	PostgresURL string

	SnapshotURL     string
	SnapshotRPS     float64
	SnapshotTimeout time.Duration

	GovernanceCron string
	TreasuryCron   string
	ProtocolCron   string

	// OrgDelay is slept between organizations to spread load on the governance API.
	OrgDelay   time.Duration
	RunTimeout time.Duration
	Workers    int

	Collector governance.Config

	Addr  string
	Redis redis.Config
}

// LoadConfig reads every setting from the environment, falling back to defaults.
func LoadConfig() Config {
	workers := utils.EnvInt("COLLECTOR_WORKERS", 1)
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	retryCfg := governance.DefaultConfig().Retry
	retryCfg.MaxRetries = utils.EnvInt("GATEWAY_RETRIES", retryCfg.MaxRetries)
	retryCfg.InitialDelay = utils.EnvDuration("GATEWAY_RETRY_DELAY", retryCfg.InitialDelay)

	return Config{
		PostgresURL: utils.Env("POSTGRES_URL", "postgres://localhost:5432/govcollector"),

		SnapshotURL:     utils.Env("SNAPSHOT_API_URL", snapshot.DefaultEndpoint),
		SnapshotRPS:     utils.EnvFloat("SNAPSHOT_RPS", 5),
		SnapshotTimeout: utils.EnvDuration("SNAPSHOT_TIMEOUT", 30*time.Second),

		// Seconds field first
		GovernanceCron: utils.Env("GOVERNANCE_CRON", "0 0 * * * *"),
		TreasuryCron:   utils.Env("TREASURY_CRON", "0 0 */6 * * *"),
		ProtocolCron:   utils.Env("PROTOCOL_CRON", "0 30 * * * *"),

		OrgDelay:   utils.EnvDuration("ORG_DELAY", time.Second),
		RunTimeout: utils.EnvDuration("RUN_TIMEOUT", DefaultRunTimeout),
		Workers:    workers,

		Collector: governance.Config{
			ProposalLimit:  utils.EnvInt("PROPOSAL_LIMIT", governance.DefaultProposalLimit),
			VoteLimit:      utils.EnvInt("VOTE_LIMIT", governance.DefaultVoteLimit),
			DefaultHolders: utils.EnvInt("DEFAULT_HOLDERS", governance.DefaultHolderEstimate),
			Retry:          retryCfg,
		},

		// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
		Addr:  utils.Env("ADDR", ":3002"),
		Redis: redis.ConfigFromEnv(),
	}
}

// SnapshotOpts returns the gateway options for this configuration.
func (c Config) SnapshotOpts() snapshot.Opts {
	return snapshot.Opts{
		Endpoint: c.SnapshotURL,
		Timeout:  c.SnapshotTimeout,
		RPS:      c.SnapshotRPS,
	}
}

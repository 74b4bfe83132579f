package governance

import (
	"context"
	"fmt"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

func (db *DB) initMetrics(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS governance_metrics (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			collected_at TIMESTAMPTZ NOT NULL,
			voting_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			nakamoto_coefficient INTEGER NOT NULL DEFAULT 0,
			gini_coefficient DOUBLE PRECISION NOT NULL DEFAULT 0,
			whale_concentration DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_voters INTEGER NOT NULL DEFAULT 0,
			total_voting_power DOUBLE PRECISION NOT NULL DEFAULT 0,
			proposals_analyzed INTEGER NOT NULL DEFAULT 0,
			UNIQUE (organization_id, collected_at)
		)
	`
	return db.Exec(ctx, query)
}

// InsertMetrics appends a snapshot. Snapshots are never updated.
func (db *DB) InsertMetrics(ctx context.Context, m *govmodels.Metrics) error {
	query := `
		INSERT INTO governance_metrics (
			id, organization_id, collected_at, voting_rate, nakamoto_coefficient,
			gini_coefficient, whale_concentration, total_voters, total_voting_power, proposals_analyzed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	err := db.Exec(ctx, query,
		m.ID, m.OrganizationID, m.CollectedAt.UTC(), m.VotingRate, m.NakamotoCoefficient,
		m.GiniCoefficient, m.WhaleConcentration, m.TotalVoters, m.TotalVotingPower, m.ProposalsAnalyzed,
	)
	if err != nil {
		return fmt.Errorf("insert metrics for %s: %w", m.OrganizationID, err)
	}
	return nil
}

// LatestMetrics returns up to limit snapshots for an organization, newest first.
func (db *DB) LatestMetrics(ctx context.Context, organizationID string, limit int) ([]govmodels.Metrics, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := db.Query(ctx, `
		SELECT id, organization_id, collected_at, voting_rate, nakamoto_coefficient,
			gini_coefficient, whale_concentration, total_voters, total_voting_power, proposals_analyzed
		FROM governance_metrics
		WHERE organization_id = $1
		ORDER BY collected_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("latest metrics %s: %w", organizationID, err)
	}
	defer rows.Close()

	out := make([]govmodels.Metrics, 0)
	for rows.Next() {
		var m govmodels.Metrics
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.CollectedAt, &m.VotingRate, &m.NakamotoCoefficient,
			&m.GiniCoefficient, &m.WhaleConcentration, &m.TotalVoters, &m.TotalVotingPower, &m.ProposalsAnalyzed,
		); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

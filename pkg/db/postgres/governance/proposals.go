package governance

import (
	"context"
	"fmt"
	"time"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/daoscope/govcollector/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initProposals(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS proposals (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			external_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			proposer TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			choices TEXT[] NOT NULL DEFAULT '{}',
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			snapshot_block TEXT NOT NULL DEFAULT '',
			vote_count INTEGER NOT NULL DEFAULT 0,
			votes_synced BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if err := db.Exec(ctx, query); err != nil {
		return err
	}
	return db.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_proposals_org_created ON proposals (organization_id, created_at DESC)`)
}

// UpsertProposals inserts proposals or refreshes their mutable fields.
// vote_count and votes_synced belong to the vote sync and are never overwritten here.
func (db *DB) UpsertProposals(ctx context.Context, organizationID string, proposals []*govmodels.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}

	query := `
		INSERT INTO proposals (
			id, organization_id, external_id, title, body, proposer, state, choices,
			start_time, end_time, created_at, snapshot_block, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			proposer = EXCLUDED.proposer,
			state = EXCLUDED.state,
			choices = EXCLUDED.choices,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			snapshot_block = EXCLUDED.snapshot_block,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, p := range proposals {
		choices := p.Choices
		if choices == nil {
			choices = []string{}
		}
		externalID := p.ExternalID
		if externalID == "" {
			externalID = p.ID
		}
		batch.Queue(query,
			p.ID, organizationID, externalID, p.Title, p.Body, p.Proposer, p.State, choices,
			p.StartTime.UTC(), p.EndTime.UTC(), p.CreatedAt.UTC(), p.SnapshotBlock, now,
		)
	}

	if err := db.ExecuteBatch(ctx, batch); err != nil {
		return fmt.Errorf("upsert proposals for %s: %w", organizationID, err)
	}
	return nil
}

// VoteSyncState reports the stored vote bookkeeping for a proposal.
// An unknown proposal yields a zero VoteSync with Exists=false.
func (db *DB) VoteSyncState(ctx context.Context, proposalID string) (govmodels.VoteSync, error) {
	state := govmodels.VoteSync{Exists: true}
	err := db.QueryRow(ctx,
		`SELECT vote_count, votes_synced FROM proposals WHERE id = $1`, proposalID,
	).Scan(&state.VoteCount, &state.Synced)
	if err != nil {
		if postgres.IsNoRows(err) {
			return govmodels.VoteSync{}, nil
		}
		return govmodels.VoteSync{}, fmt.Errorf("vote sync state %s: %w", proposalID, err)
	}
	return state, nil
}

// ListProposals returns an organization's most recent proposals, newest first.
func (db *DB) ListProposals(ctx context.Context, organizationID string, limit int) ([]govmodels.Proposal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT id, organization_id, external_id, title, body, proposer, state, choices,
			start_time, end_time, created_at, snapshot_block, vote_count, votes_synced, updated_at
		FROM proposals
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list proposals %s: %w", organizationID, err)
	}
	defer rows.Close()

	out := make([]govmodels.Proposal, 0)
	for rows.Next() {
		var p govmodels.Proposal
		if err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.ExternalID, &p.Title, &p.Body, &p.Proposer, &p.State, &p.Choices,
			&p.StartTime, &p.EndTime, &p.CreatedAt, &p.SnapshotBlock, &p.VoteCount, &p.VotesSynced, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

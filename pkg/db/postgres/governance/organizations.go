package governance

import (
	"context"
	"fmt"
	"time"

	store "github.com/daoscope/govcollector/pkg/db"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/daoscope/govcollector/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
)

func (db *DB) initOrganizations(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			chain TEXT NOT NULL DEFAULT '',
			stage SMALLINT NOT NULL DEFAULT 0,
			governance_address TEXT NOT NULL DEFAULT '',
			treasury_address TEXT NOT NULL DEFAULT '',
			snapshot_space TEXT NOT NULL DEFAULT '',
			tally_org_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_collected_at TIMESTAMPTZ
		)
	`
	return db.Exec(ctx, query)
}

const organizationColumns = `
	id, name, slug, chain, stage, governance_address, treasury_address,
	snapshot_space, tally_org_id, created_at, updated_at, last_collected_at
`

func scanOrganization(row pgx.Row) (*govmodels.Organization, error) {
	var org govmodels.Organization
	var stage int16
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.Chain,
		&stage,
		&org.GovernanceAddress,
		&org.TreasuryAddress,
		&org.SnapshotSpace,
		&org.TallyOrgID,
		&org.CreatedAt,
		&org.UpdatedAt,
		&org.LastCollectedAt,
	)
	if err != nil {
		return nil, err
	}
	org.Stage = govmodels.Stage(stage)
	return &org, nil
}

// ListOrganizations returns every tracked organization ordered by id.
func (db *DB) ListOrganizations(ctx context.Context) ([]govmodels.Organization, error) {
	rows, err := db.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	out := make([]govmodels.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

// GetOrganization returns the organization with the given id or store.ErrNotFound.
func (db *DB) GetOrganization(ctx context.Context, id string) (*govmodels.Organization, error) {
	org, err := scanOrganization(db.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("organization %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get organization %s: %w", id, err)
	}
	return org, nil
}

// InsertOrganization creates the organization unless one with the same id or slug exists.
func (db *DB) InsertOrganization(ctx context.Context, org *govmodels.Organization) (bool, error) {
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = now
	}

	query := `
		INSERT INTO organizations (
			id, name, slug, chain, stage, governance_address, treasury_address,
			snapshot_space, tally_org_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
	`
	tag, err := db.GetExecutor(ctx).Exec(ctx, query,
		org.ID, org.Name, org.Slug, org.Chain, int16(org.Stage), org.GovernanceAddress, org.TreasuryAddress,
		org.SnapshotSpace, org.TallyOrgID, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert organization %s: %w", org.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// TouchOrganization records when the organization was last collected.
func (db *DB) TouchOrganization(ctx context.Context, id string, collectedAt time.Time) error {
	query := `UPDATE organizations SET last_collected_at = $2, updated_at = $2 WHERE id = $1`
	if err := db.Exec(ctx, query, id, collectedAt.UTC()); err != nil {
		return fmt.Errorf("touch organization %s: %w", id, err)
	}
	return nil
}

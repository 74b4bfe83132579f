package db

import (
	"context"
	"errors"
	"time"

	"github.com/daoscope/govcollector/pkg/db/models/governance"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// OrganizationStore exposes the organization registry used by the scheduler and the seeder.
type OrganizationStore interface {
	ListOrganizations(ctx context.Context) ([]governance.Organization, error)
	GetOrganization(ctx context.Context, id string) (*governance.Organization, error)
	// InsertOrganization is insert-or-ignore; it reports whether a row was created.
	InsertOrganization(ctx context.Context, org *governance.Organization) (bool, error)
	TouchOrganization(ctx context.Context, id string, collectedAt time.Time) error
}

// GovernanceStore describes the persistence operations required by the collector.
// Every write is idempotent: proposals upsert on their id, votes are
// insert-or-ignore on (proposal_id, voter_address), and metrics are append-only.
type GovernanceStore interface {
	OrganizationStore

	UpsertProposals(ctx context.Context, organizationID string, proposals []*governance.Proposal) error
	ListProposals(ctx context.Context, organizationID string, limit int) ([]governance.Proposal, error)
	VoteSyncState(ctx context.Context, proposalID string) (governance.VoteSync, error)
	// StoreVotes inserts votes, then records the stored vote count and marks the
	// proposal synced, all in one transaction. Returns the stored count.
	StoreVotes(ctx context.Context, proposalID string, votes []*governance.Vote) (int, error)
	ListVotes(ctx context.Context, proposalID string) ([]governance.Vote, error)

	InsertMetrics(ctx context.Context, m *governance.Metrics) error
	LatestMetrics(ctx context.Context, organizationID string, limit int) ([]governance.Metrics, error)

	Ping(ctx context.Context) error
	Close() error
}

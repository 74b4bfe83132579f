package snapshot

import "context"

// Client captures the governance API calls used by the collector.
// Implementations do not retry; retry policy belongs to the caller.
type Client interface {
	ListProposals(ctx context.Context, space string, q ProposalQuery) ([]Proposal, error)
	ListVotes(ctx context.Context, proposalID string, limit int) ([]Vote, error)
	GetSpace(ctx context.Context, spaceID string) (*Space, error)
}

package governance

import "time"

const ProposalsTableName = "proposals"

// Proposal lifecycle states as reported by the governance API.
const (
	ProposalStatePending = "pending"
	ProposalStateActive  = "active"
	ProposalStateClosed  = "closed"
)

// Proposal is one governance decision. ID is the external identifier and is
// globally unique, so repeated observations update the same row.
type Proposal struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ExternalID     string    `json:"external_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body,omitempty"`
	Proposer       string    `json:"proposer"`
	State          string    `json:"state"`
	Choices        []string  `json:"choices"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	CreatedAt      time.Time `json:"created_at"`
	SnapshotBlock  string    `json:"snapshot_block,omitempty"`
	VoteCount      int       `json:"vote_count"`
	VotesSynced    bool      `json:"votes_synced"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VoteSync describes what the store already holds for a proposal's votes.
type VoteSync struct {
	Exists    bool
	VoteCount int
	Synced    bool
}

// Collected reports whether votes were stored by an earlier run.
func (v VoteSync) Collected() bool {
	return v.Synced || v.VoteCount > 0
}

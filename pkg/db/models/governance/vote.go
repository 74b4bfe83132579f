package governance

import "time"

const VotesTableName = "votes"

// Vote is one voter's ballot on one proposal. At most one row exists per
// (ProposalID, VoterAddress).
type Vote struct {
	ID           string    `json:"id"`
	ProposalID   string    `json:"proposal_id"`
	VoterAddress string    `json:"voter_address"`
	VotingPower  float64   `json:"voting_power"`
	Choice       int       `json:"choice"`
	ChoiceRaw    string    `json:"choice_raw,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	CastAt       time.Time `json:"cast_at"`
}

// VoteID derives the deterministic identifier of a vote.
func VoteID(proposalID, voter string) string {
	return proposalID + "-" + voter
}

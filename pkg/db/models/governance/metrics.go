package governance

import "time"

const MetricsTableName = "governance_metrics"

// Metrics is one append-only snapshot of an organization's governance health.
// VotingRate and WhaleConcentration are percentages.
type Metrics struct {
	ID                  string    `json:"id"`
	OrganizationID      string    `json:"organization_id"`
	CollectedAt         time.Time `json:"collected_at"`
	VotingRate          float64   `json:"voting_rate"`
	NakamotoCoefficient int       `json:"nakamoto_coefficient"`
	GiniCoefficient     float64   `json:"gini_coefficient"`
	WhaleConcentration  float64   `json:"whale_concentration"`
	TotalVoters         int       `json:"total_voters"`
	TotalVotingPower    float64   `json:"total_voting_power"`
	ProposalsAnalyzed   int       `json:"proposals_analyzed"`
}

// SameFigures reports whether two snapshots carry identical derived numbers,
// ignoring identity and timestamp.
func (m *Metrics) SameFigures(o *Metrics) bool {
	return m.VotingRate == o.VotingRate &&
		m.NakamotoCoefficient == o.NakamotoCoefficient &&
		m.GiniCoefficient == o.GiniCoefficient &&
		m.WhaleConcentration == o.WhaleConcentration &&
		m.TotalVoters == o.TotalVoters &&
		m.TotalVotingPower == o.TotalVotingPower
}

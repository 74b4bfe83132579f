package governance

import "time"

const OrganizationsTableName = "organizations"

// Stage classifies how far an organization has moved towards on-chain governance.
type Stage int16

const (
	StageCentralized Stage = iota
	StageFunctional
	StageFullyDecentralized
)

func (s Stage) String() string {
	switch s {
	case StageCentralized:
		return "centralized"
	case StageFunctional:
		return "functional"
	case StageFullyDecentralized:
		return "fully_decentralized"
	default:
		return "unknown"
	}
}

// Organization is a tracked DAO. Rows are seeded out of band; the collector
// only reads them and bumps LastCollectedAt.
type Organization struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Chain             string     `json:"chain"`
	Stage             Stage      `json:"stage"`
	GovernanceAddress string     `json:"governance_address,omitempty"`
	TreasuryAddress   string     `json:"treasury_address,omitempty"`
	SnapshotSpace     string     `json:"snapshot_space,omitempty"`
	TallyOrgID        string     `json:"tally_org_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastCollectedAt   *time.Time `json:"last_collected_at,omitempty"`
}

// HasSpace reports whether the organization is linked to a governance space.
func (o *Organization) HasSpace() bool {
	return o.SnapshotSpace != ""
}

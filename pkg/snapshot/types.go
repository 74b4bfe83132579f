package snapshot

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

const (
	// DefaultProposalLimit bounds ListProposals when the caller gives no limit.
	DefaultProposalLimit = 100
	// DefaultVoteLimit bounds ListVotes when the caller gives no limit.
	DefaultVoteLimit = 1000
	// StateAll disables the state filter.
	StateAll = "all"
)

// ProposalQuery narrows ListProposals.
type ProposalQuery struct {
	Limit        int
	State        string    // "" or StateAll for every state
	CreatedSince time.Time // zero for no floor
}

// SpaceRef is the space summary embedded in a proposal.
type SpaceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Proposal mirrors the proposal object of the governance API.
type Proposal struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Choices  []string   `json:"choices"`
	Start    int64      `json:"start"`
	End      int64      `json:"end"`
	Snapshot flexString `json:"snapshot"`
	State    string     `json:"state"`
	Author   string     `json:"author"`
	Created  int64      `json:"created"`
	Votes    int        `json:"votes"`
	Space    SpaceRef   `json:"space"`
}

// ToModel converts the API proposal into a row owned by organizationID.
// Vote bookkeeping is left zero; it is filled by the vote sync.
func (p *Proposal) ToModel(organizationID string) *govmodels.Proposal {
	return &govmodels.Proposal{
		ID:             p.ID,
		OrganizationID: organizationID,
		ExternalID:     p.ID,
		Title:          p.Title,
		Body:           p.Body,
		Proposer:       p.Author,
		State:          p.State,
		Choices:        p.Choices,
		StartTime:      unix(p.Start),
		EndTime:        unix(p.End),
		CreatedAt:      unix(p.Created),
		SnapshotBlock:  string(p.Snapshot),
	}
}

// Vote mirrors the vote object of the governance API.
type Vote struct {
	ID      string          `json:"id"`
	Voter   string          `json:"voter"`
	VP      float64         `json:"vp"`
	Choice  json.RawMessage `json:"choice"`
	Created int64           `json:"created"`
	Reason  string          `json:"reason,omitempty"`
}

// ChoiceIndex returns the chosen option as the API numbers it (1-based).
// Single-choice votes carry a number; ranked votes an array whose first entry
// wins; weighted votes an object whose heaviest key wins (lowest key on ties).
// Anything else yields 0.
func (v *Vote) ChoiceIndex() int {
	raw := bytes.TrimSpace(v.Choice)
	if len(raw) == 0 {
		return 0
	}

	switch raw[0] {
	case '[':
		var ranked []float64
		if err := json.Unmarshal(raw, &ranked); err == nil && len(ranked) > 0 {
			return int(ranked[0])
		}
	case '{':
		var weighted map[string]float64
		if err := json.Unmarshal(raw, &weighted); err == nil && len(weighted) > 0 {
			return heaviestKey(weighted)
		}
	default:
		var single float64
		if err := json.Unmarshal(raw, &single); err == nil && !math.IsNaN(single) {
			return int(single)
		}
	}
	return 0
}

func heaviestKey(weighted map[string]float64) int {
	keys := make([]int, 0, len(weighted))
	byKey := make(map[int]float64, len(weighted))
	for k, w := range weighted {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		keys = append(keys, n)
		byKey[n] = w
	}
	if len(keys) == 0 {
		return 0
	}
	sort.Ints(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if byKey[k] > byKey[best] {
			best = k
		}
	}
	return best
}

// ToModel converts the API vote into a row for proposalID.
func (v *Vote) ToModel(proposalID string) *govmodels.Vote {
	return &govmodels.Vote{
		ID:           govmodels.VoteID(proposalID, v.Voter),
		ProposalID:   proposalID,
		VoterAddress: v.Voter,
		VotingPower:  v.VP,
		Choice:       v.ChoiceIndex(),
		ChoiceRaw:    string(bytes.TrimSpace(v.Choice)),
		Reason:       v.Reason,
		CastAt:       unix(v.Created),
	}
}

// Space mirrors the space object of the governance API.
type Space struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	About          string   `json:"about"`
	Network        string   `json:"network"`
	Symbol         string   `json:"symbol"`
	Members        []string `json:"members"`
	FollowersCount int      `json:"followersCount"`
}

// HolderEstimate approximates the number of token holders from the member list,
// falling back to fallback when the space lists no members.
func (s *Space) HolderEstimate(fallback int) int {
	if s == nil || len(s.Members) == 0 {
		return fallback
	}
	return len(s.Members)
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func unix(sec int64) time.Time {
	if sec <= 0 {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(sec, 0).UTC()
}

// Package memory is an in-process GovernanceStore with the same conflict
// semantics as the Postgres store. It backs dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	store "github.com/daoscope/govcollector/pkg/db"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

var _ store.GovernanceStore = (*Store)(nil)

type metricsKey struct {
	organizationID string
	collectedAt    int64
}

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	organizations map[string]govmodels.Organization
	proposals     map[string]govmodels.Proposal
	votes         map[string]map[string]govmodels.Vote // proposal id -> voter -> vote
	metrics       []govmodels.Metrics
	metricKeys    map[metricsKey]struct{}
	now           func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		organizations: make(map[string]govmodels.Organization),
		proposals:     make(map[string]govmodels.Proposal),
		votes:         make(map[string]map[string]govmodels.Vote),
		metricKeys:    make(map[metricsKey]struct{}),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) ListOrganizations(_ context.Context) ([]govmodels.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]govmodels.Organization, 0, len(s.organizations))
	for _, o := range s.organizations {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (*govmodels.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, store.ErrNotFound)
	}
	return &o, nil
}

// InsertOrganization ignores rows whose id or slug already exists.
func (s *Store) InsertOrganization(_ context.Context, org *govmodels.Organization) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[org.ID]; ok {
		return false, nil
	}
	for _, o := range s.organizations {
		if org.Slug != "" && o.Slug == org.Slug {
			return false, nil
		}
	}
	row := *org
	now := s.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	s.organizations[row.ID] = row
	return true, nil
}

func (s *Store) TouchOrganization(_ context.Context, id string, collectedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.organizations[id]
	if !ok {
		return fmt.Errorf("organization %s: %w", id, store.ErrNotFound)
	}
	t := collectedAt
	o.LastCollectedAt = &t
	o.UpdatedAt = s.now()
	s.organizations[id] = o
	return nil
}

// UpsertProposals updates mutable fields of known proposals and keeps their
// vote bookkeeping.
func (s *Store) UpsertProposals(_ context.Context, organizationID string, proposals []*govmodels.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[organizationID]; !ok {
		return fmt.Errorf("organization %s: %w", organizationID, store.ErrNotFound)
	}
	now := s.now()
	for _, p := range proposals {
		row := *p
		row.OrganizationID = organizationID
		if row.ExternalID == "" {
			row.ExternalID = row.ID
		}
		row.Choices = append([]string(nil), p.Choices...)
		row.UpdatedAt = now
		if prev, ok := s.proposals[row.ID]; ok {
			row.VoteCount = prev.VoteCount
			row.VotesSynced = prev.VotesSynced
			row.CreatedAt = prev.CreatedAt
		} else {
			row.VoteCount = 0
			row.VotesSynced = false
		}
		s.proposals[row.ID] = row
	}
	return nil
}

func (s *Store) ListProposals(_ context.Context, organizationID string, limit int) ([]govmodels.Proposal, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]govmodels.Proposal, 0)
	for _, p := range s.proposals {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) VoteSyncState(_ context.Context, proposalID string) (govmodels.VoteSync, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[proposalID]
	if !ok {
		return govmodels.VoteSync{}, nil
	}
	return govmodels.VoteSync{Exists: true, VoteCount: p.VoteCount, Synced: p.VotesSynced}, nil
}

// StoreVotes keeps the first vote per voter and marks the proposal synced.
func (s *Store) StoreVotes(_ context.Context, proposalID string, votes []*govmodels.Vote) (int, error) {
	if len(votes) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[proposalID]
	if !ok {
		return 0, fmt.Errorf("proposal %s: %w", proposalID, store.ErrNotFound)
	}
	byVoter, ok := s.votes[proposalID]
	if !ok {
		byVoter = make(map[string]govmodels.Vote, len(votes))
		s.votes[proposalID] = byVoter
	}
	for _, v := range votes {
		if _, exists := byVoter[v.VoterAddress]; exists {
			continue
		}
		row := *v
		row.ProposalID = proposalID
		row.ID = govmodels.VoteID(proposalID, v.VoterAddress)
		byVoter[v.VoterAddress] = row
	}
	p.VoteCount = len(byVoter)
	p.VotesSynced = true
	p.UpdatedAt = s.now()
	s.proposals[proposalID] = p
	return p.VoteCount, nil
}

// ListVotes returns votes ordered by descending voting power, then voter.
func (s *Store) ListVotes(_ context.Context, proposalID string) ([]govmodels.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]govmodels.Vote, 0, len(s.votes[proposalID]))
	for _, v := range s.votes[proposalID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VotingPower != out[j].VotingPower {
			return out[i].VotingPower > out[j].VotingPower
		}
		return out[i].VoterAddress < out[j].VoterAddress
	})
	return out, nil
}

func (s *Store) InsertMetrics(_ context.Context, m *govmodels.Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizations[m.OrganizationID]; !ok {
		return fmt.Errorf("organization %s: %w", m.OrganizationID, store.ErrNotFound)
	}
	key := metricsKey{organizationID: m.OrganizationID, collectedAt: m.CollectedAt.UnixNano()}
	if _, dup := s.metricKeys[key]; dup {
		return fmt.Errorf("metrics for %s at %s already exist", m.OrganizationID, m.CollectedAt.Format(time.RFC3339Nano))
	}
	s.metricKeys[key] = struct{}{}
	s.metrics = append(s.metrics, *m)
	return nil
}

// LatestMetrics returns up to limit snapshots, newest first.
func (s *Store) LatestMetrics(_ context.Context, organizationID string, limit int) ([]govmodels.Metrics, error) {
	if limit <= 0 {
		limit = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]govmodels.Metrics, 0)
	for _, m := range s.metrics {
		if m.OrganizationID == organizationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CollectedAt.After(out[j].CollectedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// CountVotes returns how many votes are stored for proposalID.
func (s *Store) CountVotes(proposalID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes[proposalID])
}

// CountProposals returns how many proposals are stored for organizationID.
func (s *Store) CountProposals(organizationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.proposals {
		if p.OrganizationID == organizationID {
			n++
		}
	}
	return n
}

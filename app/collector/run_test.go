package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/daoscope/govcollector/pkg/db/memory"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/daoscope/govcollector/pkg/governance"
	"github.com/daoscope/govcollector/pkg/retry"
	"github.com/daoscope/govcollector/pkg/snapshot"
)

// MockGateway is a mock implementation of snapshot.Client for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListProposals(ctx context.Context, space string, q snapshot.ProposalQuery) ([]snapshot.Proposal, error) {
	args := m.Called(ctx, space, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]snapshot.Proposal), args.Error(1)
}

func (m *MockGateway) ListVotes(ctx context.Context, proposalID string, limit int) ([]snapshot.Vote, error) {
	args := m.Called(ctx, proposalID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]snapshot.Vote), args.Error(1)
}

func (m *MockGateway) GetSpace(ctx context.Context, spaceID string) (*snapshot.Space, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*snapshot.Space), args.Error(1)
}

// scriptedCollector returns canned outcomes per organization and records call order.
type scriptedCollector struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	panicOn string
	block   chan struct{}
}

func (c *scriptedCollector) Collect(_ context.Context, org *govmodels.Organization) (*govmodels.Metrics, error) {
	c.mu.Lock()
	c.calls = append(c.calls, org.ID)
	c.mu.Unlock()

	if c.block != nil {
		<-c.block
	}
	if org.ID == c.panicOn {
		panic("unexpected payload")
	}
	if err := c.fail[org.ID]; err != nil {
		return nil, err
	}
	return &govmodels.Metrics{ID: "m-" + org.ID, OrganizationID: org.ID}, nil
}

func seedOrgs(t *testing.T, st *memory.Store, orgs ...govmodels.Organization) {
	t.Helper()
	for i := range orgs {
		_, err := st.InsertOrganization(context.Background(), &orgs[i])
		require.NoError(t, err)
	}
}

func threeOrgs() []govmodels.Organization {
	return []govmodels.Organization{
		{ID: "a-uniswap", Name: "Uniswap", Slug: "uniswap", SnapshotSpace: "uniswapgovernance.eth"},
		{ID: "b-arbitrum", Name: "Arbitrum", Slug: "arbitrum", SnapshotSpace: "arbitrumfoundation.eth"},
		{ID: "c-ens", Name: "ENS", Slug: "ens", SnapshotSpace: "ens.eth"},
	}
}

func newTestApp(t *testing.T, st *memory.Store, c OrganizationCollector) *App {
	t.Helper()
	a := New(Config{Workers: 1, OrgDelay: 10 * time.Millisecond}, zaptest.NewLogger(t), st, c)
	a.Sleep = func(context.Context, time.Duration) {}
	return a
}

func TestRunGovernance_FailureIsIsolated(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)
	c := &scriptedCollector{fail: map[string]error{"b-arbitrum": errors.New("gateway exploded")}}
	a := newTestApp(t, st, c)

	summary, err := a.RunGovernance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a-uniswap", "b-arbitrum", "c-ens"}, c.calls)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"b-arbitrum"}, summary.FailedOrgs)

	statuses := a.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "m-a-uniswap", statuses[0].LastMetricsID)
	assert.Equal(t, 1, statuses[1].Failures)
	assert.Contains(t, statuses[1].LastError, "gateway exploded")
	assert.Equal(t, 1, statuses[2].Successes)
	assert.False(t, a.Running())
}

func TestRunGovernance_PanicIsIsolated(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)
	c := &scriptedCollector{panicOn: "b-arbitrum"}
	a := newTestApp(t, st, c)

	summary, err := a.RunGovernance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"b-arbitrum"}, summary.FailedOrgs)

	st2, ok := a.Status.Load("b-arbitrum")
	require.True(t, ok)
	assert.Contains(t, st2.LastError, "panic")
}

func TestRunGovernance_SkipsOrganizationsWithoutSpace(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st,
		govmodels.Organization{ID: "a", Slug: "a", SnapshotSpace: "a.eth"},
		govmodels.Organization{ID: "b", Slug: "b"},
	)
	c := &scriptedCollector{}
	a := newTestApp(t, st, c)

	summary, err := a.RunGovernance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.calls)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)

	last, ok := a.LastRuns.Load(JobGovernance)
	require.True(t, ok)
	assert.Equal(t, summary.Processed, last.Processed)
}

func TestRunGovernance_ThrottlesBetweenOrganizations(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)
	a := newTestApp(t, st, &scriptedCollector{})

	var mu sync.Mutex
	var slept []time.Duration
	a.Sleep = func(_ context.Context, d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}

	_, err := a.RunGovernance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, slept)
}

func TestRunGovernance_RejectsConcurrentRun(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()[0])
	c := &scriptedCollector{block: make(chan struct{})}
	a := newTestApp(t, st, c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.RunGovernance(context.Background())
	}()

	require.Eventually(t, a.Running, time.Second, 5*time.Millisecond)
	_, err := a.RunGovernance(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = a.RunOrganization(context.Background(), "a-uniswap")
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(c.block)
	<-done
	assert.False(t, a.Running())
}

func TestRunOrganization(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)
	c := &scriptedCollector{}
	a := newTestApp(t, st, c)

	summary, err := a.RunOrganization(context.Background(), "c-ens")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-ens"}, c.calls)
	assert.Equal(t, 1, summary.Processed)

	_, err = a.RunOrganization(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunGovernance_ParallelWorkers(t *testing.T) {
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)
	c := &scriptedCollector{fail: map[string]error{"b-arbitrum": errors.New("boom")}}
	a := newTestApp(t, st, c)
	a.Config.Workers = 3

	summary, err := a.RunGovernance(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a-uniswap", "b-arbitrum", "c-ens"}, c.calls)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

// One failing organization must not cost the others their snapshot.
func TestRunGovernance_WithCollector(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedOrgs(t, st, threeOrgs()...)

	gw := new(MockGateway)
	closed := mock.MatchedBy(func(q snapshot.ProposalQuery) bool { return q.State == govmodels.ProposalStateClosed })
	gw.On("ListProposals", mock.Anything, "uniswapgovernance.eth", closed).
		Return([]snapshot.Proposal{{ID: "u1", State: "closed"}}, nil)
	gw.On("ListProposals", mock.Anything, "arbitrumfoundation.eth", closed).
		Return(nil, &snapshot.Error{Op: "list_proposals", Kind: snapshot.KindGraphQL, Messages: []string{"bad space"}})
	gw.On("ListProposals", mock.Anything, "ens.eth", closed).
		Return([]snapshot.Proposal{{ID: "e1", State: "closed"}}, nil)
	gw.On("ListVotes", mock.Anything, "u1", mock.Anything).
		Return([]snapshot.Vote{{Voter: "0x1", VP: 60}, {Voter: "0x2", VP: 40}}, nil)
	gw.On("ListVotes", mock.Anything, "e1", mock.Anything).
		Return([]snapshot.Vote{{Voter: "0x3", VP: 5}}, nil)
	gw.On("GetSpace", mock.Anything, mock.Anything).Return(&snapshot.Space{Members: make([]string, 10)}, nil)

	cfg := governance.DefaultConfig()
	cfg.Retry = retry.Config{MaxRetries: 1}
	c := governance.NewCollector(zaptest.NewLogger(t), st, gw, cfg)
	a := newTestApp(t, st, c)

	summary, err := a.RunGovernance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"b-arbitrum"}, summary.FailedOrgs)

	for id, voters := range map[string]int{"a-uniswap": 2, "c-ens": 1} {
		snaps, err := st.LatestMetrics(ctx, id, 10)
		require.NoError(t, err)
		require.Len(t, snaps, 1, id)
		assert.Equal(t, voters, snaps[0].TotalVoters)
	}
	snaps, err := st.LatestMetrics(ctx, "b-arbitrum", 10)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

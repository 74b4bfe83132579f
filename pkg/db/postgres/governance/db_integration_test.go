//go:build integration

package governance

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	store "github.com/daoscope/govcollector/pkg/db"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/daoscope/govcollector/pkg/db/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

var testDB *DB

// TestMain starts a throwaway Postgres container shared by every test in the package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test logger: %v\n", err)
		os.Exit(1)
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("govcollector_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		logger.Error("Failed to start Postgres container, skipping integration tests", zap.Error(err))
		os.Exit(0)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		logger.Fatal("Failed to get connection string", zap.Error(err))
	}

	testDB, err = New(ctx, logger, dsn, postgres.GetPoolConfigForComponent("test"))
	if err != nil {
		logger.Fatal("Failed to open governance database", zap.Error(err))
	}

	code := m.Run()

	_ = testDB.Close()
	if err := container.Terminate(ctx); err != nil {
		logger.Error("Failed to terminate Postgres container", zap.Error(err))
	}
	os.Exit(code)
}

func seedOrganization(t *testing.T, id string) {
	t.Helper()
	_, err := testDB.InsertOrganization(context.Background(), &govmodels.Organization{
		ID: id, Name: id, Slug: id, Chain: "ethereum", Stage: govmodels.StageFullyDecentralized,
		SnapshotSpace: id + ".eth",
	})
	require.NoError(t, err)
}

func testProposal(id string) *govmodels.Proposal {
	now := time.Now().UTC().Truncate(time.Second)
	return &govmodels.Proposal{
		ID: id, Title: "Proposal " + id, State: govmodels.ProposalStateClosed,
		Choices: []string{"For", "Against"}, StartTime: now.Add(-72 * time.Hour),
		EndTime: now.Add(-24 * time.Hour), CreatedAt: now.Add(-96 * time.Hour),
	}
}

func TestInsertOrganizationIsInsertOrIgnore(t *testing.T) {
	ctx := context.Background()
	org := &govmodels.Organization{ID: "org-ignore", Name: "First", Slug: "org-ignore"}

	created, err := testDB.InsertOrganization(ctx, org)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = testDB.InsertOrganization(ctx, &govmodels.Organization{ID: "org-ignore", Name: "Second", Slug: "org-ignore"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := testDB.GetOrganization(ctx, "org-ignore")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
	assert.Nil(t, got.LastCollectedAt)

	_, err = testDB.GetOrganization(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTouchOrganization(t *testing.T) {
	ctx := context.Background()
	seedOrganization(t, "org-touch")

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, testDB.TouchOrganization(ctx, "org-touch", at))

	got, err := testDB.GetOrganization(ctx, "org-touch")
	require.NoError(t, err)
	require.NotNil(t, got.LastCollectedAt)
	assert.True(t, at.Equal(*got.LastCollectedAt))
}

func TestUpsertProposalsNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	seedOrganization(t, "org-props")

	p := testProposal("prop-upsert")
	require.NoError(t, testDB.UpsertProposals(ctx, "org-props", []*govmodels.Proposal{p}))

	p.Title = "Renamed"
	require.NoError(t, testDB.UpsertProposals(ctx, "org-props", []*govmodels.Proposal{p}))

	list, err := testDB.ListProposals(ctx, "org-props", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Title)
	assert.Equal(t, []string{"For", "Against"}, list[0].Choices)
}

func TestStoreVotesKeepsOneVotePerVoter(t *testing.T) {
	ctx := context.Background()
	seedOrganization(t, "org-votes")
	require.NoError(t, testDB.UpsertProposals(ctx, "org-votes", []*govmodels.Proposal{testProposal("prop-votes")}))

	state, err := testDB.VoteSyncState(ctx, "prop-votes")
	require.NoError(t, err)
	assert.True(t, state.Exists)
	assert.False(t, state.Collected())

	castAt := time.Now().UTC().Truncate(time.Second)
	votes := []*govmodels.Vote{
		{VoterAddress: "0xA", VotingPower: 100, Choice: 1, CastAt: castAt},
		{VoterAddress: "0xB", VotingPower: 50, Choice: 2, CastAt: castAt},
		{VoterAddress: "0xA", VotingPower: 999, Choice: 2, CastAt: castAt},
	}
	stored, err := testDB.StoreVotes(ctx, "prop-votes", votes)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	// a second run with the same data must not add rows
	stored, err = testDB.StoreVotes(ctx, "prop-votes", votes[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	state, err = testDB.VoteSyncState(ctx, "prop-votes")
	require.NoError(t, err)
	assert.Equal(t, 2, state.VoteCount)
	assert.True(t, state.Synced)

	list, err := testDB.ListVotes(ctx, "prop-votes")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xA", list[0].VoterAddress)
	assert.Equal(t, 100.0, list[0].VotingPower)
	assert.Equal(t, govmodels.VoteID("prop-votes", "0xA"), list[0].ID)

	// the upsert must leave vote bookkeeping alone
	require.NoError(t, testDB.UpsertProposals(ctx, "org-votes", []*govmodels.Proposal{testProposal("prop-votes")}))
	state, err = testDB.VoteSyncState(ctx, "prop-votes")
	require.NoError(t, err)
	assert.Equal(t, 2, state.VoteCount)
}

func TestVoteSyncStateUnknownProposal(t *testing.T) {
	state, err := testDB.VoteSyncState(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, state.Exists)
}

func TestMetricsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	seedOrganization(t, "org-metrics")

	first := time.Now().UTC().Truncate(time.Microsecond)
	for i, at := range []time.Time{first, first.Add(time.Hour)} {
		require.NoError(t, testDB.InsertMetrics(ctx, &govmodels.Metrics{
			ID: fmt.Sprintf("m-%d", i), OrganizationID: "org-metrics", CollectedAt: at,
			NakamotoCoefficient: 3, GiniCoefficient: 0.9, TotalVoters: 10,
		}))
	}

	latest, err := testDB.LatestMetrics(ctx, "org-metrics", 5)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "m-1", latest[0].ID)
	assert.True(t, latest[0].SameFigures(&latest[1]))
}

// Package governance turns raw proposal and vote records of one organization
// into a persisted governance metrics snapshot.
package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	store "github.com/daoscope/govcollector/pkg/db"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
	"github.com/daoscope/govcollector/pkg/retry"
	"github.com/daoscope/govcollector/pkg/snapshot"
	"github.com/daoscope/govcollector/pkg/stats"
)

const (
	DefaultProposalLimit  = 5
	DefaultVoteLimit      = snapshot.DefaultVoteLimit
	DefaultHolderEstimate = 10000
)

// Notifier is told about every stored snapshot. Failures are logged only.
type Notifier interface {
	MetricsStored(ctx context.Context, m *govmodels.Metrics) error
}

// Config tunes a Collector.
type Config struct {
	// ProposalLimit is how many of the latest closed proposals are analyzed.
	ProposalLimit int
	// VoteLimit caps the votes fetched per proposal.
	VoteLimit int
	// DefaultHolders is the participation denominator when the space lists no members.
	DefaultHolders int
	// Retry applies to gateway calls; only retryable gateway errors are retried.
	Retry retry.Config
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		ProposalLimit:  DefaultProposalLimit,
		VoteLimit:      DefaultVoteLimit,
		DefaultHolders: DefaultHolderEstimate,
		Retry: retry.Config{
			MaxRetries:    3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			JitterEnabled: true,
		},
	}
}

// Collector produces one metrics snapshot per organization per call.
// It holds no per-run state, so one instance may serve concurrent runs for
// different organizations.
type Collector struct {
	Logger   *zap.Logger
	Store    store.GovernanceStore
	Gateway  snapshot.Client
	Config   Config
	Notifier Notifier
	// Now stamps snapshots; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewCollector wires a Collector, filling zero config values with defaults.
func NewCollector(logger *zap.Logger, st store.GovernanceStore, gw snapshot.Client, cfg Config) *Collector {
	def := DefaultConfig()
	if cfg.ProposalLimit <= 0 {
		cfg.ProposalLimit = def.ProposalLimit
	}
	if cfg.VoteLimit <= 0 {
		cfg.VoteLimit = def.VoteLimit
	}
	if cfg.DefaultHolders <= 0 {
		cfg.DefaultHolders = def.DefaultHolders
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = def.Retry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Logger:  logger.Named("collector"),
		Store:   st,
		Gateway: gw,
		Config:  cfg,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Collect runs fetch, persist, aggregate and compute for org and stores the
// resulting snapshot. Vote problems on a single proposal are logged and that
// proposal is left out; only failures that prevent a snapshot return an error.
func (c *Collector) Collect(ctx context.Context, org *govmodels.Organization) (*govmodels.Metrics, error) {
	if !org.HasSpace() {
		return nil, fmt.Errorf("collect %s: %w", org.ID, ErrNoSpace)
	}
	logger := c.Logger.With(zap.String("organization_id", org.ID), zap.String("space", org.SnapshotSpace))
	start := time.Now()

	var fetched []snapshot.Proposal
	err := c.gateway(ctx, "snapshot.list_proposals", func() error {
		var err error
		fetched, err = c.Gateway.ListProposals(ctx, org.SnapshotSpace, snapshot.ProposalQuery{
			Limit: c.Config.ProposalLimit,
			State: govmodels.ProposalStateClosed,
		})
		return err
	})
	if err != nil {
		return nil, &CollectError{OrganizationID: org.ID, Stage: StageListProposals, Err: err}
	}

	if len(fetched) == 0 {
		logger.Info("No closed proposals, storing empty snapshot")
		return c.storeMetrics(ctx, org, &govmodels.Metrics{})
	}

	proposals := make([]*govmodels.Proposal, 0, len(fetched))
	for i := range fetched {
		proposals = append(proposals, fetched[i].ToModel(org.ID))
	}
	if err := c.Store.UpsertProposals(ctx, org.ID, proposals); err != nil {
		return nil, &CollectError{OrganizationID: org.ID, Stage: StageStoreProposals, Err: err}
	}

	agg := newAggregate()
	analyzed := 0
	for _, p := range proposals {
		votes, ok := c.proposalVotes(ctx, logger, p)
		if !ok {
			continue
		}
		analyzed++
		for i := range votes {
			agg.add(votes[i].VoterAddress, votes[i].VotingPower)
		}
	}

	summary := stats.Summarize(agg.weights())
	m := &govmodels.Metrics{
		NakamotoCoefficient: summary.Nakamoto,
		GiniCoefficient:     summary.Gini,
		WhaleConcentration:  summary.WhaleConcentration,
		TotalVoters:         summary.Count,
		TotalVotingPower:    summary.TotalWeight,
		ProposalsAnalyzed:   analyzed,
	}
	if summary.Count > 0 {
		m.VotingRate = votingRate(summary.Count, c.holderEstimate(ctx, logger, org.SnapshotSpace))
	}

	stored, err := c.storeMetrics(ctx, org, m)
	if err != nil {
		return nil, err
	}

	logger.Info("Governance metrics collected",
		zap.Int("proposals", len(proposals)),
		zap.Int("proposals_analyzed", analyzed),
		zap.Int("voters", stored.TotalVoters),
		zap.Float64("voting_rate", stored.VotingRate),
		zap.Int("nakamoto", stored.NakamotoCoefficient),
		zap.Float64("gini", stored.GiniCoefficient),
		zap.Float64("whale_concentration", stored.WhaleConcentration),
		zap.Duration("duration", time.Since(start)))

	return stored, nil
}

// proposalVotes returns the stored votes of p, fetching and persisting them
// first when no earlier run did. ok is false when p must be left out.
func (c *Collector) proposalVotes(ctx context.Context, logger *zap.Logger, p *govmodels.Proposal) ([]govmodels.Vote, bool) {
	logger = logger.With(zap.String("proposal_id", p.ID))

	state, err := c.Store.VoteSyncState(ctx, p.ID)
	if err != nil {
		logger.Warn("Failed to read vote sync state, skipping proposal", zap.Error(err))
		return nil, false
	}

	if state.Collected() {
		votes, err := c.Store.ListVotes(ctx, p.ID)
		if err != nil {
			logger.Warn("Failed to load stored votes, skipping proposal", zap.Error(err))
			return nil, false
		}
		logger.Debug("Votes already collected", zap.Int("votes", len(votes)))
		return votes, true
	}

	var fetched []snapshot.Vote
	err = c.gateway(ctx, "snapshot.list_votes", func() error {
		var err error
		fetched, err = c.Gateway.ListVotes(ctx, p.ID, c.Config.VoteLimit)
		return err
	})
	if err != nil {
		logger.Warn("Failed to fetch votes, skipping proposal", zap.Error(err))
		return nil, false
	}

	rows := dedupVotes(p.ID, fetched)
	if len(rows) == 0 {
		// Not marked synced: an empty answer is asked again next run.
		logger.Debug("Proposal has no votes")
		return nil, true
	}

	count, err := c.Store.StoreVotes(ctx, p.ID, rows)
	if err != nil {
		logger.Warn("Failed to store votes, skipping proposal", zap.Error(err))
		return nil, false
	}
	logger.Debug("Votes stored", zap.Int("fetched", len(fetched)), zap.Int("stored", count))

	// Read back so a concurrent run's earlier insert wins here too.
	votes, err := c.Store.ListVotes(ctx, p.ID)
	if err != nil {
		logger.Warn("Failed to reload stored votes, using fetched", zap.Error(err))
		votes = make([]govmodels.Vote, 0, len(rows))
		for _, r := range rows {
			votes = append(votes, *r)
		}
	}
	return votes, true
}

// holderEstimate asks the gateway for the space member count and falls back
// to the configured default on any failure.
func (c *Collector) holderEstimate(ctx context.Context, logger *zap.Logger, space string) int {
	var sp *snapshot.Space
	err := c.gateway(ctx, "snapshot.get_space", func() error {
		var err error
		sp, err = c.Gateway.GetSpace(ctx, space)
		return err
	})
	if err != nil {
		logger.Warn("Failed to fetch space, using default holder estimate",
			zap.Int("default_holders", c.Config.DefaultHolders),
			zap.Error(err))
		return c.Config.DefaultHolders
	}
	return sp.HolderEstimate(c.Config.DefaultHolders)
}

func (c *Collector) storeMetrics(ctx context.Context, org *govmodels.Organization, m *govmodels.Metrics) (*govmodels.Metrics, error) {
	m.ID = uuid.NewString()
	m.OrganizationID = org.ID
	m.CollectedAt = c.now()

	if err := c.Store.InsertMetrics(ctx, m); err != nil {
		return nil, &CollectError{OrganizationID: org.ID, Stage: StageStoreMetrics, Err: err}
	}

	if err := c.Store.TouchOrganization(ctx, org.ID, m.CollectedAt); err != nil {
		c.Logger.Warn("Failed to update organization collection time",
			zap.String("organization_id", org.ID),
			zap.Error(err))
	}
	if c.Notifier != nil {
		if err := c.Notifier.MetricsStored(ctx, m); err != nil {
			c.Logger.Warn("Failed to publish metrics snapshot",
				zap.String("organization_id", org.ID),
				zap.String("metrics_id", m.ID),
				zap.Error(err))
		}
	}
	return m, nil
}

// gateway runs fn with the configured backoff, giving up at once on errors
// the gateway reports as not retryable.
func (c *Collector) gateway(ctx context.Context, op string, fn func() error) error {
	return retry.WithBackoff(ctx, c.Config.Retry, c.Logger, op, func() error {
		err := fn()
		if err != nil && !snapshot.IsRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

// dedupVotes converts API votes to rows keeping the first entry per voter.
// The API orders votes by descending power, so the kept entry is the heaviest.
func dedupVotes(proposalID string, votes []snapshot.Vote) []*govmodels.Vote {
	seen := make(map[string]struct{}, len(votes))
	out := make([]*govmodels.Vote, 0, len(votes))
	for i := range votes {
		if votes[i].Voter == "" {
			continue
		}
		if _, dup := seen[votes[i].Voter]; dup {
			continue
		}
		seen[votes[i].Voter] = struct{}{}
		out = append(out, votes[i].ToModel(proposalID))
	}
	return out
}

// votingRate is voters over holders as a percentage.
func votingRate(voters, holders int) float64 {
	if voters <= 0 || holders <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(voters)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(holders))).
		InexactFloat64()
}

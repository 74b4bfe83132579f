package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

// RunGovernance collects every tracked organization once. Organizations
// without a governance space are skipped; a failing organization is logged
// and counted, never returned. Only failing to list organizations or a run
// already in progress is an error.
func (a *App) RunGovernance(ctx context.Context) (RunSummary, error) {
	if !a.running.CompareAndSwap(false, true) {
		return RunSummary{}, ErrRunInProgress
	}
	defer a.running.Store(false)

	orgs, err := a.Store.ListOrganizations(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list organizations: %w", err)
	}
	return a.runOrganizations(ctx, orgs), nil
}

// RunOrganization collects a single organization, honoring the same
// exclusivity as RunGovernance.
func (a *App) RunOrganization(ctx context.Context, id string) (RunSummary, error) {
	if !a.running.CompareAndSwap(false, true) {
		return RunSummary{}, ErrRunInProgress
	}
	defer a.running.Store(false)

	org, err := a.Store.GetOrganization(ctx, id)
	if err != nil {
		return RunSummary{}, fmt.Errorf("get organization %s: %w", id, err)
	}
	return a.runOrganizations(ctx, []govmodels.Organization{*org}), nil
}

func (a *App) runOrganizations(ctx context.Context, orgs []govmodels.Organization) RunSummary {
	summary := RunSummary{Job: JobGovernance, StartedAt: time.Now().UTC()}
	start := time.Now()

	targets := make([]govmodels.Organization, 0, len(orgs))
	for _, org := range orgs {
		if !org.HasSpace() {
			a.Logger.Info("Skipping organization without governance space",
				zap.String("organization_id", org.ID),
				zap.String("name", org.Name))
			summary.Skipped++
			continue
		}
		targets = append(targets, org)
	}

	if len(targets) == 0 {
		a.Logger.Warn("No organizations to collect", zap.Int("skipped", summary.Skipped))
		summary.Duration = time.Since(start)
		a.LastRuns.Store(JobGovernance, summary)
		return summary
	}

	a.Logger.Info("Governance run started",
		zap.Int("organizations", len(targets)),
		zap.Int("workers", a.workers()))

	var (
		mu     sync.Mutex
		failed []string
		done   int
	)

	pool := pond.NewPool(a.workers(), pond.WithQueueSize(len(targets)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i := range targets {
		org := targets[i]
		idx := i
		group.Submit(func() {
			if idx > 0 {
				a.Sleep(groupCtx, a.Config.OrgDelay)
			}
			if err := groupCtx.Err(); err != nil {
				return
			}

			err := a.collectOrganization(groupCtx, org)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, org.ID)
				return
			}
			done++
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		a.Logger.Warn("Governance run group encountered error", zap.Error(err))
	}

	mu.Lock()
	sort.Strings(failed)
	summary.Processed = done
	summary.Failed = len(failed)
	summary.FailedOrgs = failed
	mu.Unlock()
	summary.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		a.Logger.Warn("Governance run interrupted",
			zap.Int("processed", summary.Processed),
			zap.Int("remaining", len(targets)-summary.Processed-summary.Failed),
			zap.Error(err))
	}

	a.Logger.Info("Governance run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))

	a.LastRuns.Store(JobGovernance, summary)
	return summary
}

// collectOrganization runs the collector for org, converting a panic into an
// error so the remaining organizations still run.
func (a *App) collectOrganization(ctx context.Context, org govmodels.Organization) (err error) {
	logger := a.Logger.With(zap.String("organization_id", org.ID), zap.String("name", org.Name))
	started := time.Now().UTC()
	a.markStarted(org.ID, started)

	var m *govmodels.Metrics
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collect %s: panic: %v", org.ID, r)
			logger.Error("Organization collection panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		a.markFinished(org.ID, m, err)
	}()

	m, err = a.Collector.Collect(ctx, &org)
	if err != nil {
		logger.Error("Organization collection failed", zap.Error(err))
		return err
	}
	return nil
}

func (a *App) markStarted(id string, at time.Time) {
	st, _ := a.Status.Load(id)
	st.OrganizationID = id
	st.LastStarted = at
	a.Status.Store(id, st)
}

func (a *App) markFinished(id string, m *govmodels.Metrics, err error) {
	st, _ := a.Status.Load(id)
	st.OrganizationID = id
	st.LastFinished = time.Now().UTC()
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	} else {
		st.Successes++
		st.LastError = ""
		if m != nil {
			st.LastMetricsID = m.ID
		}
	}
	a.Status.Store(id, st)
}

// Statuses returns every organization status ordered by id.
func (a *App) Statuses() []RunStatus {
	out := make([]RunStatus, 0, a.Status.Size())
	a.Status.Range(func(_ string, st RunStatus) bool {
		out = append(out, st)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OrganizationID < out[j].OrganizationID })
	return out
}

func (a *App) workers() int {
	switch {
	case a.Config.Workers < 1:
		return 1
	case a.Config.Workers > MaxWorkers:
		return MaxWorkers
	default:
		return a.Config.Workers
	}
}

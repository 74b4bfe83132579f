package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SetupScheduler registers the governance, treasury and protocol jobs.
// Each run is bounded by RunTimeout; a job still running at its next tick is skipped.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger) error {
	// Seconds field, optional
	a.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	jobs := []struct {
		name     string
		schedule string
		fn       func(ctx context.Context)
	}{
		{JobGovernance, a.Config.GovernanceCron, a.governanceJob},
		{JobTreasury, a.Config.TreasuryCron, a.notImplementedJob(JobTreasury)},
		{JobProtocol, a.Config.ProtocolCron, a.notImplementedJob(JobProtocol)},
	}

	for _, job := range jobs {
		job := job
		if job.schedule == "" || job.schedule == "-" {
			a.Logger.Info("Job disabled", zap.String("job", job.name))
			continue
		}
		_, err := a.Cron.AddFunc(job.schedule, func() {
			// keep each run bounded
			rctx, cancel := context.WithTimeout(ctx, a.runTimeout())
			defer cancel()
			job.fn(rctx)
		})
		if err != nil {
			return fmt.Errorf("schedule %s job: %w", job.name, err)
		}
		a.Logger.Debug("Job scheduled", zap.String("job", job.name), zap.String("schedule", job.schedule))
	}

	return nil
}

func (a *App) governanceJob(ctx context.Context) {
	if _, err := a.RunGovernance(ctx); err != nil {
		a.Logger.Error("Governance run failed", zap.Error(err))
	}
}

func (a *App) notImplementedJob(name string) func(ctx context.Context) {
	return func(_ context.Context) {
		a.Logger.Info("Collection not implemented yet", zap.String("job", name))
		a.LastRuns.Store(name, RunSummary{Job: name, StartedAt: time.Now().UTC()})
	}
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("Cron started",
		zap.String("governance", a.Config.GovernanceCron),
		zap.String("treasury", a.Config.TreasuryCron),
		zap.String("protocol", a.Config.ProtocolCron))
}

// StopCron stops the cron scheduler and waits for running jobs.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

func (a *App) runTimeout() time.Duration {
	if a.Config.RunTimeout <= 0 {
		return DefaultRunTimeout
	}
	return a.Config.RunTimeout
}

package collector

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	store "github.com/daoscope/govcollector/pkg/db"
	"github.com/daoscope/govcollector/pkg/db/postgres"
	pggovernance "github.com/daoscope/govcollector/pkg/db/postgres/governance"
	"github.com/daoscope/govcollector/pkg/governance"
	"github.com/daoscope/govcollector/pkg/redis"
	"github.com/daoscope/govcollector/pkg/snapshot"
)

// ErrRunInProgress is returned when a governance run is requested while one is active.
var ErrRunInProgress = errors.New("governance run already in progress")

// App reads the tracked organizations from the store and collects governance
// metrics for each of them on every GovernanceCron tick.
type App struct {
	Config Config

	// Store is the governance database.
	Store store.GovernanceStore

	// Collector builds and persists one snapshot per organization.
	Collector OrganizationCollector

	// Cron is the scheduler that triggers the collection jobs.
	Cron *cron.Cron

	// Status tracks the latest outcome per organization.
	Status *xsync.Map[string, RunStatus]

	// LastRuns keeps the latest summary per job.
	LastRuns *xsync.Map[string, RunSummary]

	// Logger is used to log messages, errors, and events during the application's lifecycle and operations.
	Logger *zap.Logger

	// Server is the HTTP server that serves the API.
	Server *http.Server

	// Sleep waits between organizations; it returns early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration)

	running atomic.Bool
	closers []func() error
}

// New returns an App around already constructed dependencies.
func New(cfg Config, logger *zap.Logger, st store.GovernanceStore, c OrganizationCollector) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Config:    cfg,
		Store:     st,
		Collector: c,
		Status:    xsync.NewMap[string, RunStatus](),
		LastRuns:  xsync.NewMap[string, RunSummary](),
		Logger:    logger,
		Sleep:     sleepContext,
	}
}

// Initialize connects every dependency described by cfg and wires the App.
func Initialize(ctx context.Context, logger *zap.Logger, cfg Config, component string) (*App, error) {
	govDB, err := pggovernance.New(ctx, logger, cfg.PostgresURL, postgres.GetPoolConfigForComponent(component))
	if err != nil {
		return nil, err
	}

	opts := cfg.SnapshotOpts()
	opts.Logger = logger
	gateway := snapshot.NewHTTPWithOpts(opts)

	c := governance.NewCollector(logger, govDB, gateway, cfg.Collector)
	app := New(cfg, logger, govDB, c)
	app.closers = append(app.closers, govDB.Close)

	if cfg.Redis.Enabled() {
		rc, err := redis.NewClient(ctx, logger, cfg.Redis)
		if err != nil {
			// snapshots are still stored; only notifications are lost
			logger.Warn("Redis unavailable, snapshot notifications disabled", zap.Error(err))
		} else {
			c.Notifier = &redis.MetricsNotifier{Client: rc}
			app.closers = append([]func() error{rc.Close}, app.closers...)
		}
	}

	return app, nil
}

// Running reports whether a governance run is in progress.
func (a *App) Running() bool { return a.running.Load() }

// Ready reports whether the database answers.
func (a *App) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return a.Store.Ping(ctx)
}

// Close releases every dependency opened by Initialize.
func (a *App) Close() error {
	var errs []error
	for _, fn := range a.closers {
		errs = append(errs, fn())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Start serves HTTP until ctx is done, then stops the scheduler and releases resources.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	a.Logger.Info("HTTP server listening", zap.String("addr", a.Server.Addr))

	<-ctx.Done()
	a.Logger.Info("Shutting down…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	a.StopCron()
	if err := a.Close(); err != nil {
		a.Logger.Warn("Error while closing resources", zap.Error(err))
	}
	a.Logger.Info("Bye")
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

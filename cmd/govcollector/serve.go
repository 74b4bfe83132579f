package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daoscope/govcollector/app/collector"
	"github.com/daoscope/govcollector/pkg/logging"
	"github.com/daoscope/govcollector/pkg/utils"
)

var serveRunImmediately bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		app, err := collector.Initialize(ctx, logger, cfg, "collector")
		if err != nil {
			return err
		}

		if err := app.SetupScheduler(ctx, logging.NewCronLogger(logger)); err != nil {
			_ = app.Close()
			return err
		}

		// Immediate pass before cron
		if serveRunImmediately {
			rctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
			if _, err := app.RunGovernance(rctx); err != nil {
				logger.Error("Initial governance run failed", zap.Error(err))
			}
			cancel()
		}

		app.StartCron()
		app.SetupServer()
		app.Start(ctx)
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveRunImmediately, "run-immediately", utils.EnvBool("RUN_IMMEDIATELY", false),
		"Run one governance pass before starting the scheduler (env RUN_IMMEDIATELY)")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daoscope/govcollector/app/collector"
	"github.com/daoscope/govcollector/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:           "govcollector",
	Short:         "Collect governance participation and decentralization metrics for DAOs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, collectCmd, seedCmd)
}

// setup builds the logger and loads the environment configuration.
func setup() (*zap.Logger, collector.Config, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, collector.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return logger, collector.LoadConfig(), nil
}

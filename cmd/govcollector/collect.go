package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daoscope/govcollector/app/collector"
	"github.com/daoscope/govcollector/pkg/db/memory"
	"github.com/daoscope/govcollector/pkg/governance"
	"github.com/daoscope/govcollector/pkg/snapshot"
)

var (
	collectOrg    string
	collectDryRun bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one governance collection pass and print its summary",
	Long: `Run one governance collection pass over every tracked organization, or only
the one named by --org. With --dry-run nothing is written to Postgres: the sample
organizations are loaded into an in-memory store and the resulting snapshots are printed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		var app *collector.App
		var mem *memory.Store
		if collectDryRun {
			mem = memory.New()
			if _, err := governance.Seed(ctx, logger, mem, governance.SampleOrganizations()); err != nil {
				return err
			}
			opts := cfg.SnapshotOpts()
			opts.Logger = logger
			c := governance.NewCollector(logger, mem, snapshot.NewHTTPWithOpts(opts), cfg.Collector)
			app = collector.New(cfg, logger, mem, c)
		} else {
			app, err = collector.Initialize(ctx, logger, cfg, "cli")
			if err != nil {
				return err
			}
		}
		defer func() { _ = app.Close() }()

		var summary collector.RunSummary
		if collectOrg != "" {
			summary, err = app.RunOrganization(ctx, collectOrg)
		} else {
			summary, err = app.RunGovernance(ctx)
		}
		if err != nil {
			return err
		}

		out := map[string]any{"summary": summary}
		if mem != nil {
			latest := map[string]any{}
			orgs, _ := mem.ListOrganizations(ctx)
			for _, org := range orgs {
				if m, err := mem.LatestMetrics(ctx, org.ID, 1); err == nil && len(m) > 0 {
					latest[org.ID] = m[0]
				}
			}
			out["metrics"] = latest
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}

		if summary.Failed > 0 {
			return fmt.Errorf("%d organization(s) failed: %v", summary.Failed, summary.FailedOrgs)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectOrg, "org", "", "Collect only this organization id")
	collectCmd.Flags().BoolVar(&collectDryRun, "dry-run", false, "Use an in-memory store seeded with the sample organizations")
}

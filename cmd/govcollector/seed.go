package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daoscope/govcollector/pkg/db/postgres"
	pggovernance "github.com/daoscope/govcollector/pkg/db/postgres/governance"
	"github.com/daoscope/govcollector/pkg/governance"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample organizations, leaving existing rows untouched",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		db, err := pggovernance.New(ctx, logger, cfg.PostgresURL, postgres.GetPoolConfigForComponent("cli"))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		orgs := governance.SampleOrganizations()
		created, err := governance.Seed(ctx, logger, db, orgs)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d organizations\n", created, len(orgs))
		return nil
	},
}

package governance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	store "github.com/daoscope/govcollector/pkg/db"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

// SampleOrganizations returns the organizations inserted by the seed command.
func SampleOrganizations() []govmodels.Organization {
	return []govmodels.Organization{
		{
			ID:                "uniswap",
			Name:              "Uniswap",
			Slug:              "uniswap",
			Chain:             "ethereum",
			Stage:             govmodels.StageFullyDecentralized,
			GovernanceAddress: "0x408ED6354d4973f66138C91495F2f2FCbd8724C3",
			TreasuryAddress:   "0x1a9C8182C09F50C8318d769245beA52c32BE35BC",
			SnapshotSpace:     "uniswapgovernance.eth",
		},
		{
			ID:                "arbitrum",
			Name:              "Arbitrum",
			Slug:              "arbitrum",
			Chain:             "arbitrum",
			Stage:             govmodels.StageFullyDecentralized,
			GovernanceAddress: "0xf07DeD9dC292157749B6Fd268E37DF6EA38395B9",
			TreasuryAddress:   "0xF3FC178157fb3c87548bAA86F9d24BA38E649B58",
			SnapshotSpace:     "arbitrumfoundation.eth",
		},
		{
			ID:                "optimism",
			Name:              "Optimism",
			Slug:              "optimism",
			Chain:             "optimism",
			Stage:             govmodels.StageFullyDecentralized,
			GovernanceAddress: "0xcDF27F107725988f2261Ce2256bDfCdE8B382B10",
			TreasuryAddress:   "0x2501c477D0A35545a387Aa4A3EEe4292A9a8B3F0",
			SnapshotSpace:     "opcollective.eth",
		},
		{
			ID:                "ens",
			Name:              "ENS",
			Slug:              "ens",
			Chain:             "ethereum",
			Stage:             govmodels.StageFullyDecentralized,
			GovernanceAddress: "0x323A76393544d5ecca80cd6ef2A560C6a395b7E3",
			TreasuryAddress:   "0xFe89cc7aBB2C4183683ab71653C4cdc9B02D44b7",
			SnapshotSpace:     "ens.eth",
		},
		{
			ID:                "gitcoin",
			Name:              "Gitcoin",
			Slug:              "gitcoin",
			Chain:             "ethereum",
			Stage:             govmodels.StageFunctional,
			GovernanceAddress: "0xDbD27635A534A3d3169Ef0498beB56Fb9c937489",
			TreasuryAddress:   "0x57a8865cfB1eCEf7253c27da6B4BC3dAEE5Be518",
			SnapshotSpace:     "gitcoindao.eth",
		},
	}
}

// Seed inserts orgs, leaving existing rows untouched. It returns how many were created.
func Seed(ctx context.Context, logger *zap.Logger, st store.OrganizationStore, orgs []govmodels.Organization) (int, error) {
	created := 0
	for i := range orgs {
		ok, err := st.InsertOrganization(ctx, &orgs[i])
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", orgs[i].ID, err)
		}
		if !ok {
			logger.Info("Organization already present", zap.String("organization_id", orgs[i].ID))
			continue
		}
		created++
		logger.Info("Organization seeded",
			zap.String("organization_id", orgs[i].ID),
			zap.String("space", orgs[i].SnapshotSpace),
			zap.Stringer("stage", orgs[i].Stage))
	}
	return created, nil
}

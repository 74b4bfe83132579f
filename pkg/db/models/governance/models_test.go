package governance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageString(t *testing.T) {
	assert.Equal(t, "centralized", StageCentralized.String())
	assert.Equal(t, "functional", StageFunctional.String())
	assert.Equal(t, "fully_decentralized", StageFullyDecentralized.String())
	assert.Equal(t, "unknown", Stage(9).String())
}

func TestVoteSyncCollected(t *testing.T) {
	assert.False(t, VoteSync{Exists: true}.Collected())
	assert.True(t, VoteSync{Exists: true, VoteCount: 3}.Collected())
	assert.True(t, VoteSync{Exists: true, Synced: true}.Collected())
}

func TestSameFiguresIgnoresIdentity(t *testing.T) {
	a := &Metrics{ID: "a", OrganizationID: "ens", NakamotoCoefficient: 4, GiniCoefficient: 0.8}
	b := &Metrics{ID: "b", OrganizationID: "ens", NakamotoCoefficient: 4, GiniCoefficient: 0.8}
	assert.True(t, a.SameFigures(b))
	b.TotalVoters = 1
	assert.False(t, a.SameFigures(b))
}

func TestVoteID(t *testing.T) {
	assert.Equal(t, "0xprop-0xvoter", VoteID("0xprop", "0xvoter"))
}

package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/daoscope/govcollector/pkg/db/memory"
	govmodels "github.com/daoscope/govcollector/pkg/db/models/governance"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	logger := zaptest.NewLogger(t)

	created, err := Seed(ctx, logger, st, SampleOrganizations())
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	created, err = Seed(ctx, logger, st, SampleOrganizations())
	require.NoError(t, err)
	assert.Zero(t, created)

	gitcoin, err := st.GetOrganization(ctx, "gitcoin")
	require.NoError(t, err)
	assert.Equal(t, govmodels.StageFunctional, gitcoin.Stage)
	assert.Equal(t, "gitcoindao.eth", gitcoin.SnapshotSpace)
}

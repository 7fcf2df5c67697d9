package bexec_test

import (
	"context"
	"testing"

	"github.com/braid-engine/braid/bexec"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/internal/btest"
	"github.com/stretchr/testify/require"
)

func TestChannelController_forwardsUpdates(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := btest.NewLogger(t)
	ctrl, reqs := bexec.NewChannelController(log, 1)

	finalized := map[bmodels.BlockID]bmodels.Block{{1}: {}}
	clique := map[bmodels.BlockID]bmodels.Block{{1}: {}, {2}: {}}

	require.NoError(t, ctrl.UpdateBlockcliqueStatus(ctx, finalized, clique))

	got := btest.ReceiveSoon(t, reqs)
	require.Equal(t, "update_blockclique_status", got.Kind())
	require.Equal(t, finalized, got.UpdateBlockcliqueStatus.Finalized)
	require.Equal(t, clique, got.UpdateBlockcliqueStatus.Blockclique)
}

func TestChannelController_canceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancelCause(context.Background())
	wantErr := context.Canceled
	cancel(wantErr)

	log := btest.NewLogger(t)
	ctrl, _ := bexec.NewChannelController(log, 0)

	err := ctrl.UpdateBlockcliqueStatus(ctx, nil, nil)
	require.ErrorIs(t, err, wantErr)
}

package bconsensustest

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bpool"
	"github.com/braid-engine/braid/bpool/bpooltest"
	"github.com/braid-engine/braid/bprotocol"
	"github.com/braid-engine/braid/bprotocol/bprotocoltest"
	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/internal/btest"
)

// ValidatePropagateBlock waits up to timeoutMS for the engine to
// announce id as integrated, fatally failing the test otherwise.
// Other protocol traffic, other block announcements included,
// is discarded while waiting.
func ValidatePropagateBlock(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	_, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (struct{}, bool) {
		ib := c.IntegratedBlock
		return struct{}{}, ib != nil && ib.ID == id
	})
	require.True(t, ok, "expected block %s to be propagated within %d ms", id, timeoutMS)
}

// ValidatePropagateBlockInList waits up to timeoutMS for the engine to
// announce any block in ids as integrated and returns the one announced,
// fatally failing the test if none is.
func ValidatePropagateBlockInList(t *testing.T, ctrl *bprotocoltest.MockProtocolController, ids []bmodels.BlockID, timeoutMS int64) bmodels.BlockID {
	t.Helper()

	got, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (bmodels.BlockID, bool) {
		if ib := c.IntegratedBlock; ib != nil && slices.Contains(ids, ib.ID) {
			return ib.ID, true
		}
		return bmodels.BlockID{}, false
	})
	require.True(t, ok, "expected one of %d candidate blocks to be propagated within %d ms", len(ids), timeoutMS)
	return got
}

// ValidateNotPropagateBlock waits the full timeoutMS and fatally fails
// the test if the engine announces id as integrated during that window.
// All other protocol traffic is discarded.
func ValidateNotPropagateBlock(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	_, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (struct{}, bool) {
		ib := c.IntegratedBlock
		return struct{}{}, ib != nil && ib.ID == id
	})
	require.False(t, ok, "block %s was propagated but must not be", id)
}

// ValidateAskForBlock waits up to timeoutMS for a wishlist delta and
// requires it to ask for exactly id: one entry in New, nothing removed.
func ValidateAskForBlock(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	wd, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (*bprotocol.WishlistDelta, bool) {
		return c.WishlistDelta, c.WishlistDelta != nil
	})
	require.True(t, ok, "expected the engine to ask for block %s within %d ms", id, timeoutMS)

	require.Len(t, wd.New, 1, "wishlist delta must ask for exactly one block")
	require.Contains(t, wd.New, id, "wishlist delta asks for the wrong block")
	require.Empty(t, wd.Remove, "wishlist delta must not remove anything")
}

// ValidateDoesNotAskForBlock waits the full timeoutMS and fatally fails
// the test if any wishlist delta asks for id during that window.
func ValidateDoesNotAskForBlock(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	_, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (struct{}, bool) {
		if c.WishlistDelta == nil {
			return struct{}{}, false
		}
		_, has := c.WishlistDelta.New[id]
		return struct{}{}, has
	})
	require.False(t, ok, "the engine asked for block %s but must not", id)
}

// ValidateNotifyBlockAttack waits up to timeoutMS for an attack
// notification and requires it to name id.
func ValidateNotifyBlockAttack(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	got, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (bmodels.BlockID, bool) {
		if c.AttackBlockDetected == nil {
			return bmodels.BlockID{}, false
		}
		return c.AttackBlockDetected.ID, true
	})
	require.True(t, ok, "expected an attack notification within %d ms", timeoutMS)
	require.Equal(t, id, got, "attack notification names the wrong block")
}

// ValidateBlockFound waits up to timeoutMS for a blocks-results command
// answering for id, and requires the answer to carry the block.
func ValidateBlockFound(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	res, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (*bmodels.Block, bool) {
		if br := c.BlocksResults; br != nil {
			if b, answered := br.Results[id]; answered {
				return b, true
			}
		}
		return nil, false
	})
	require.True(t, ok, "expected an answer for block %s within %d ms", id, timeoutMS)
	require.NotNil(t, res, "the engine reported block %s as unknown", id)
	require.Equal(t, id, res.ID(), "the engine answered with the wrong block")
}

// ValidateBlockNotFound waits up to timeoutMS for a blocks-results
// command answering for id, and requires the answer to be empty.
func ValidateBlockNotFound(t *testing.T, ctrl *bprotocoltest.MockProtocolController, id bmodels.BlockID, timeoutMS int64) {
	t.Helper()

	res, ok := bprotocoltest.WaitCommand(ctrl, btest.ScaleMs(timeoutMS), func(c bprotocol.Command) (*bmodels.Block, bool) {
		if br := c.BlocksResults; br != nil {
			if b, answered := br.Results[id]; answered {
				return b, true
			}
		}
		return nil, false
	})
	require.True(t, ok, "expected an answer for block %s within %d ms", id, timeoutMS)
	require.Nil(t, res, "the engine claims to have block %s", id)
}

// PropagateBlock injects b through the protocol mock and validates
// whether the engine propagates it: within timeoutMS when valid is
// true, or not within timeoutMS otherwise.
func PropagateBlock(
	ctx context.Context, t *testing.T,
	ctrl *bprotocoltest.MockProtocolController, b bmodels.Block, valid bool, timeoutMS int64,
) {
	t.Helper()

	require.NoError(t, ctrl.ReceiveBlock(ctx, b), "failed to inject block %s", b.ID())

	if valid {
		ValidatePropagateBlock(t, ctrl, b.ID(), timeoutMS)
	} else {
		ValidateNotPropagateBlock(t, ctrl, b.ID(), timeoutMS)
	}
}

// CreateAndTestBlock builds an empty block at s on parents signed by
// creator, injects it, and validates propagation: within 2000 ms when
// valid is true, or not within 500 ms otherwise.
// It returns the injected block.
func CreateAndTestBlock(
	ctx context.Context, t *testing.T,
	ctrl *bprotocoltest.MockProtocolController, creator bcrypto.Ed25519Signer,
	s bmodels.Slot, parents []bmodels.BlockID, valid bool,
) bmodels.Block {
	t.Helper()

	b := CreateBlock(ctx, t, creator, s, parents)
	if valid {
		PropagateBlock(ctx, t, ctrl, b, true, 2000)
	} else {
		PropagateBlock(ctx, t, ctrl, b, false, 500)
	}
	return b
}

// WaitPoolSlot consumes pool commands until the engine announces s as
// the current slot, fatally failing the test after two slot durations.
func WaitPoolSlot(t *testing.T, pool *bpooltest.MockPoolController, t0 btime.Duration, s bmodels.Slot) {
	t.Helper()

	_, ok := bpooltest.WaitCommand(pool, btest.ScaledDur(2*t0.Std()), func(c bpool.Command) (struct{}, bool) {
		u := c.UpdateCurrentSlot
		return struct{}{}, u != nil && u.Slot == s
	})
	require.True(t, ok, "the pool was never told slot %v is current", s)
}

// GetGraphStatus fetches the engine's full graph export,
// fatally failing the test on error.
func GetGraphStatus(ctx context.Context, t *testing.T, cmds *bconsensus.CommandSender) bconsensus.BlockGraphExport {
	t.Helper()

	status, err := cmds.GetBlockGraphStatus(ctx)
	require.NoError(t, err, "failed to fetch block graph status")
	return status
}

// GetCliques fetches the engine's current maximal cliques.
func GetCliques(ctx context.Context, t *testing.T, cmds *bconsensus.CommandSender) []bconsensus.Clique {
	t.Helper()
	return GetGraphStatus(ctx, t, cmds).MaxCliques
}

// Package bstoretest provides a compliance test
// that every [bstore.Storage] implementation must pass.
package bstoretest

import (
	"context"
	"testing"

	"github.com/braid-engine/braid/bcrypto/bcryptotest"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bstore"
	"github.com/stretchr/testify/require"
)

// StorageFactory returns a fresh, empty Storage for one subtest.
type StorageFactory func(t *testing.T, ctx context.Context) bstore.Storage

// TestStorageCompliance runs the interface contract against the given factory.
func TestStorageCompliance(t *testing.T, f StorageFactory) {
	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := f(t, ctx)

		blk := testBlock(t, 0, bmodels.NewSlot(1, 0))

		has, err := s.HasBlock(ctx, blk.ID())
		require.NoError(t, err)
		require.False(t, has)

		require.NoError(t, s.StoreBlock(ctx, blk))

		has, err = s.HasBlock(ctx, blk.ID())
		require.NoError(t, err)
		require.True(t, has)

		got, ok, err := s.Block(ctx, blk.ID())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, blk.ID(), got.ID())
		require.Equal(t, blk.Slot(), got.Slot())
		require.NoError(t, got.Verify())
	})

	t.Run("missing block", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := f(t, ctx)

		_, ok, err := s.Block(ctx, bmodels.BlockID{0xde, 0xad})
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("store is idempotent by ID", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := f(t, ctx)

		blk := testBlock(t, 0, bmodels.NewSlot(2, 1))
		require.NoError(t, s.StoreBlock(ctx, blk))
		require.NoError(t, s.StoreBlock(ctx, blk))

		ids, err := s.BlockIDs(ctx)
		require.NoError(t, err)
		require.Len(t, ids, 1)
	})

	t.Run("block ids and prune", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := f(t, ctx)

		b1 := testBlock(t, 0, bmodels.NewSlot(1, 0))
		b2 := testBlock(t, 1, bmodels.NewSlot(1, 1))

		require.NoError(t, s.StoreBlock(ctx, b1))
		require.NoError(t, s.StoreBlock(ctx, b2))

		ids, err := s.BlockIDs(ctx)
		require.NoError(t, err)
		require.ElementsMatch(t, []bmodels.BlockID{b1.ID(), b2.ID()}, ids)

		// Pruning unknown IDs alongside known ones is fine.
		require.NoError(t, s.PruneBlocks(ctx, []bmodels.BlockID{b1.ID(), {0xff}}))

		has, err := s.HasBlock(ctx, b1.ID())
		require.NoError(t, err)
		require.False(t, has)

		has, err = s.HasBlock(ctx, b2.ID())
		require.NoError(t, err)
		require.True(t, has)
	})
}

func testBlock(t *testing.T, signerIdx int, slot bmodels.Slot) bmodels.Block {
	t.Helper()

	ctx := context.Background()
	signer := bcryptotest.DeterministicEd25519Signers(signerIdx + 1)[signerIdx]

	header, err := bmodels.NewSignedHeader(ctx, signer, bmodels.BlockHeader{
		Slot:           slot,
		Parents:        []bmodels.BlockID{{1}, {2}},
		OperationsRoot: bmodels.OperationsRoot(nil),
	})
	require.NoError(t, err)

	return bmodels.Block{Header: header}
}

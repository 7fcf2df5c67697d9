package bmodels_test

import (
	"testing"
	"time"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/btime"
	"github.com/stretchr/testify/require"
)

func TestSlot_cmp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, bmodels.NewSlot(4, 1).Cmp(bmodels.NewSlot(4, 1)))
	require.Equal(t, -1, bmodels.NewSlot(4, 0).Cmp(bmodels.NewSlot(4, 1)))
	require.Equal(t, 1, bmodels.NewSlot(5, 0).Cmp(bmodels.NewSlot(4, 1)))
}

func TestSlot_next(t *testing.T) {
	t.Parallel()

	require.Equal(t, bmodels.NewSlot(0, 1), bmodels.NewSlot(0, 0).NextSlot(2))
	require.Equal(t, bmodels.NewSlot(1, 0), bmodels.NewSlot(0, 1).NextSlot(2))
}

func TestSlotTimestamp(t *testing.T) {
	t.Parallel()

	genesis := btime.FromMillis(1_000_000)
	t0 := 2 * time.Second

	// Thread 0, period 0 opens at genesis.
	require.Equal(t, genesis, bmodels.SlotTimestamp(genesis, t0, 2, bmodels.NewSlot(0, 0)))

	// Thread 1 is staggered by half of t0 in a 2-thread lattice.
	require.Equal(t,
		genesis.Add(time.Second),
		bmodels.SlotTimestamp(genesis, t0, 2, bmodels.NewSlot(0, 1)),
	)

	require.Equal(t,
		genesis.Add(3*t0),
		bmodels.SlotTimestamp(genesis, t0, 2, bmodels.NewSlot(3, 0)),
	)
}

func TestSlotAt(t *testing.T) {
	t.Parallel()

	genesis := btime.FromMillis(1_000_000)
	t0 := 2 * time.Second

	_, ok := bmodels.SlotAt(genesis, t0, 2, btime.FromMillis(999_999))
	require.False(t, ok)

	for _, tc := range []struct {
		at   btime.Time
		want bmodels.Slot
	}{
		{genesis, bmodels.NewSlot(0, 0)},
		{genesis.Add(999 * time.Millisecond), bmodels.NewSlot(0, 0)},
		{genesis.Add(time.Second), bmodels.NewSlot(0, 1)},
		{genesis.Add(2 * time.Second), bmodels.NewSlot(1, 0)},
		{genesis.Add(7 * time.Second), bmodels.NewSlot(3, 1)},
	} {
		got, ok := bmodels.SlotAt(genesis, t0, 2, tc.at)
		require.True(t, ok)
		require.Equal(t, tc.want, got, "at %s", tc.at)
	}
}

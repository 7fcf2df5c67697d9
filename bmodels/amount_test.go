package bmodels_test

import (
	"testing"

	"github.com/braid-engine/braid/bmodels"
	"github.com/stretchr/testify/require"
)

func TestAmount_parseAndFormat(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		raw  uint64
		out  string
	}{
		{"0", 0, "0"},
		{"1", 1_000_000_000, "1"},
		{"123.456", 123_456_000_000, "123.456"},
		{"0.000000001", 1, "0.000000001"},
		{"7.5", 7_500_000_000, "7.5"},
	} {
		a, err := bmodels.AmountFromString(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.raw, a.Raw(), "input %q", tc.in)
		require.Equal(t, tc.out, a.String(), "input %q", tc.in)
	}
}

func TestAmount_parseErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		".5",
		"1.0000000001", // Ten fractional digits.
		"abc",
		"-1",
	} {
		_, err := bmodels.AmountFromString(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestAmount_checkedMath(t *testing.T) {
	t.Parallel()

	a := bmodels.AmountFromRaw(10)
	b := bmodels.AmountFromRaw(3)

	sum, err := a.CheckedAdd(b)
	require.NoError(t, err)
	require.Equal(t, uint64(13), sum.Raw())

	diff, err := a.CheckedSub(b)
	require.NoError(t, err)
	require.Equal(t, uint64(7), diff.Raw())

	_, err = b.CheckedSub(a)
	require.ErrorIs(t, err, bmodels.ErrAmountUnderflow)

	max := bmodels.AmountFromRaw(^uint64(0))
	_, err = max.CheckedAdd(bmodels.AmountFromRaw(1))
	require.ErrorIs(t, err, bmodels.ErrAmountOverflow)
}

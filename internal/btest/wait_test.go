package btest_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/braid-engine/braid/internal/btest"
	"github.com/stretchr/testify/require"
)

func TestWaitMatch(t *testing.T) {
	t.Run("match on first value", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 1)
		ch <- 7

		got, ok := btest.WaitMatch(ch, btest.ScaleMs(1000), func(n int) (string, bool) {
			return strconv.Itoa(n), true
		})

		require.True(t, ok)
		require.Equal(t, "7", got)
	})

	t.Run("non-matching values are discarded", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 4)
		ch <- 1
		ch <- 2
		ch <- 3
		ch <- 4

		got, ok := btest.WaitMatch(ch, btest.ScaleMs(1000), func(n int) (int, bool) {
			return n, n == 3
		})

		require.True(t, ok)
		require.Equal(t, 3, got)

		// 1 and 2 were consumed along the way;
		// only the value sent after the match remains.
		require.Equal(t, 4, btest.IsSending(t, ch))
		btest.NotSending(t, ch)
	})

	t.Run("exactly one match consumed per call", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 2)
		ch <- 5
		ch <- 5

		match := func(n int) (int, bool) { return n, n == 5 }

		_, ok := btest.WaitMatch(ch, btest.ScaleMs(1000), match)
		require.True(t, ok)

		_, ok = btest.WaitMatch(ch, btest.ScaleMs(1000), match)
		require.True(t, ok)

		btest.NotSending(t, ch)
	})

	t.Run("no match returns false, not before the deadline", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 1)
		ch <- 1

		const ms = 25
		before := time.Now()
		got, ok := btest.WaitMatch(ch, btest.ScaleMs(ms), func(int) (int, bool) {
			return 0, false
		})
		elapsed := time.Since(before)

		require.False(t, ok)
		require.Zero(t, got)
		require.GreaterOrEqual(t, elapsed, btest.ScaleMs(ms).Std())
	})

	t.Run("closed channel reports no match immediately", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int)
		close(ch)

		before := time.Now()
		_, ok := btest.WaitMatch(ch, btest.ScaleMs(10_000), func(int) (int, bool) {
			return 0, true
		})
		elapsed := time.Since(before)

		require.False(t, ok)
		require.Less(t, elapsed, btest.ScaleMs(10_000).Std())
	})
}

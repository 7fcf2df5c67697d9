package btest_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/braid-engine/braid/internal/btest"
	"github.com/stretchr/testify/require"
)

// recordingTB captures the failure the channel helpers would have
// reported through a real *testing.T.
type recordingTB struct {
	HelperCalled bool
	Failure      string
}

func (r *recordingTB) Helper() {
	r.HelperCalled = true
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.Failure = fmt.Sprintf(format, args...)
}

// requireFailed asserts that a helper failure both panicked
// (the recording fake cannot stop the goroutine like Fatalf does)
// and recorded a message.
func requireFailed(t *testing.T, rec *recordingTB, fn func()) {
	t.Helper()

	require.Panics(t, fn)
	require.True(t, rec.HelperCalled)
	require.NotEmpty(t, rec.Failure)
}

func TestReceiveOrTimeout(t *testing.T) {
	t.Run("value arriving in time is returned", func(t *testing.T) {
		t.Parallel()

		ch := make(chan string)
		go func() {
			time.Sleep(5 * time.Millisecond)
			ch <- "on time"
		}()

		rec := new(recordingTB)
		got := btest.ReceiveOrTimeout(rec, ch, btest.ScaleMs(1000))

		require.Equal(t, "on time", got)
		require.True(t, rec.HelperCalled)
		require.Empty(t, rec.Failure)
	})

	t.Run("quiet channel fails after the window", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int)
		rec := new(recordingTB)

		start := time.Now()
		requireFailed(t, rec, func() {
			_ = btest.ReceiveOrTimeout(rec, ch, btest.ScaleMs(5))
		})
		require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("nil channel fails without waiting", func(t *testing.T) {
		t.Parallel()

		var ch chan int
		rec := new(recordingTB)

		start := time.Now()
		requireFailed(t, rec, func() {
			// A day-long window; the nil check must fire first.
			_ = btest.ReceiveOrTimeout(rec, ch, btest.ScaledDur(24*time.Hour))
		})
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestSendOrTimeout(t *testing.T) {
	t.Run("send completing in time passes", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int)
		got := make(chan int, 1)
		go func() {
			time.Sleep(5 * time.Millisecond)
			got <- <-ch
		}()

		rec := new(recordingTB)
		btest.SendOrTimeout(rec, ch, 42, btest.ScaleMs(1000))

		require.Equal(t, 42, <-got)
		require.Empty(t, rec.Failure)
	})

	t.Run("blocked send fails after the window", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int)
		rec := new(recordingTB)

		start := time.Now()
		requireFailed(t, rec, func() {
			btest.SendOrTimeout(rec, ch, 1, btest.ScaleMs(5))
		})
		require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("nil channel fails without waiting", func(t *testing.T) {
		t.Parallel()

		var ch chan int
		rec := new(recordingTB)

		requireFailed(t, rec, func() {
			btest.SendOrTimeout(rec, ch, 1, btest.ScaledDur(24*time.Hour))
		})
	})
}

func TestNotSending(t *testing.T) {
	t.Run("empty channel passes", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 1)
		rec := new(recordingTB)

		btest.NotSending(rec, ch)

		require.True(t, rec.HelperCalled)
		require.Empty(t, rec.Failure)
	})

	t.Run("buffered value fails and is reported", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 1)
		ch <- 3

		rec := new(recordingTB)
		requireFailed(t, rec, func() {
			btest.NotSending(rec, ch)
		})
		require.Contains(t, rec.Failure, "3")
	})
}

func TestIsSending(t *testing.T) {
	t.Run("ready value is returned", func(t *testing.T) {
		t.Parallel()

		ch := make(chan string, 1)
		ch <- "ready"

		rec := new(recordingTB)
		require.Equal(t, "ready", btest.IsSending(rec, ch))
		require.Empty(t, rec.Failure)
	})

	t.Run("empty channel fails", func(t *testing.T) {
		t.Parallel()

		ch := make(chan string, 1)
		rec := new(recordingTB)

		requireFailed(t, rec, func() {
			_ = btest.IsSending(rec, ch)
		})
	})
}

func TestNotSendingSoon(t *testing.T) {
	t.Run("channel staying quiet passes", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int)
		rec := new(recordingTB)

		btest.NotSendingSoon(rec, ch)

		require.Empty(t, rec.Failure)
	})

	t.Run("value arriving during the window fails", func(t *testing.T) {
		t.Parallel()

		ch := make(chan int, 1)
		go func() {
			time.Sleep(time.Millisecond)
			ch <- 9
		}()

		rec := new(recordingTB)
		requireFailed(t, rec, func() {
			btest.NotSendingSoon(rec, ch)
		})
	})
}

package bwatchdog_test

import (
	"context"
	"testing"
	"time"

	"github.com/braid-engine/braid/bwatchdog"
	"github.com/braid-engine/braid/internal/btest"
	"github.com/stretchr/testify/require"
)

// startWatchdog builds a watchdog whose background goroutines
// are released and awaited through t.Cleanup.
// Cleanups run last registered first,
// so the cancel is what releases Wait.
func startWatchdog(t *testing.T) (*bwatchdog.Watchdog, context.Context, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	w, wCtx := bwatchdog.NewWatchdog(ctx, btest.NewLogger(t))

	t.Cleanup(w.Wait)
	t.Cleanup(cancel)

	return w, wCtx, cancel
}

func TestWatchdog_Terminate(t *testing.T) {
	t.Parallel()

	t.Run("cancels the watchdog context with a termination cause", func(t *testing.T) {
		t.Parallel()

		w, wCtx, _ := startWatchdog(t)

		require.NoError(t, wCtx.Err())
		require.False(t, bwatchdog.IsTermination(wCtx))

		w.Terminate("testing purposes")
		require.Error(t, wCtx.Err())
		require.True(t, bwatchdog.IsTermination(wCtx))
		require.Equal(t, bwatchdog.ForcedTerminationError{
			Reason: "testing purposes",
		}, context.Cause(wCtx))

		// A second call does not change the cause.
		w.Terminate("again")
		require.Equal(t, bwatchdog.ForcedTerminationError{
			Reason: "testing purposes",
		}, context.Cause(wCtx))
	})

	t.Run("arrives too late after a parent cancel", func(t *testing.T) {
		t.Parallel()

		w, wCtx, cancel := startWatchdog(t)

		cancel()
		w.Terminate("late")

		// The watchdog context is canceled but not by a termination.
		require.Error(t, wCtx.Err())
		require.False(t, bwatchdog.IsTermination(wCtx))
	})
}

func TestWatchdog_monitor_ignoredSignalCausesTermination(t *testing.T) {
	t.Parallel()

	w, wCtx, _ := startWatchdog(t)

	cfg := bwatchdog.MonitorConfig{
		Name:     t.Name(),
		Interval: 100 * time.Microsecond,
		Jitter:   10 * time.Microsecond,

		// The response window is practically instant.
		ResponseTimeout: 50 * time.Microsecond,
	}
	_ = w.Monitor(wCtx, cfg)

	// Sleep past the whole send and response window.
	time.Sleep(cfg.Interval + cfg.Jitter + cfg.ResponseTimeout + 2*time.Millisecond)

	require.Error(t, wCtx.Err())
	require.True(t, bwatchdog.IsTermination(wCtx))
}

func TestWatchdog_monitor_unansweredSignalCausesTermination(t *testing.T) {
	t.Parallel()

	w, wCtx, _ := startWatchdog(t)

	cfg := bwatchdog.MonitorConfig{
		Name:     t.Name(),
		Interval: 100 * time.Microsecond,
		Jitter:   10 * time.Microsecond,

		// Long enough to reliably sleep past.
		ResponseTimeout: btest.ScaleMs(150).Std(),
	}
	sigCh := w.Monitor(wCtx, cfg)

	// Accept the signal but never close Alive.
	_ = btest.ReceiveSoon(t, sigCh)

	btest.Sleep(btest.ScaleMs(160))

	require.Error(t, wCtx.Err())
	require.True(t, bwatchdog.IsTermination(wCtx))
}

func TestWatchdog_monitor_timelyResponse(t *testing.T) {
	t.Parallel()

	w, wCtx, _ := startWatchdog(t)

	cfg := bwatchdog.MonitorConfig{
		Name:     t.Name(),
		Interval: 100 * time.Microsecond,
		Jitter:   10 * time.Microsecond,

		ResponseTimeout: btest.ScaleMs(150).Std(),
	}
	sigCh := w.Monitor(wCtx, cfg)

	sig := btest.ReceiveSoon(t, sigCh)
	close(sig.Alive)

	require.NoError(t, wCtx.Err())

	// The next poll arrives on the short interval, still without error.
	_ = btest.ReceiveSoon(t, sigCh)
	require.NoError(t, wCtx.Err())
}

func TestNopWatchdog(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	w, wCtx := bwatchdog.NewNopWatchdog(ctx, btest.NewLogger(t))
	t.Cleanup(w.Wait)
	t.Cleanup(cancel)

	cfg := bwatchdog.MonitorConfig{
		// The config is validated even for a nop watchdog.
		Name:     t.Name(),
		Interval: 100 * time.Microsecond,
		Jitter:   10 * time.Microsecond,

		ResponseTimeout: time.Millisecond,
	}

	// A nil channel is never chosen in a select statement.
	require.Nil(t, w.Monitor(wCtx, cfg))

	// Terminate still works.
	w.Terminate("testing")
	require.Error(t, wCtx.Err())
	require.True(t, bwatchdog.IsTermination(wCtx))
}

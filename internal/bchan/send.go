// Package bchan provides helpers for context-aware channel operations.
// Kernel goroutines use these so that cancellation during a blocked
// send or receive is logged in one consistent format.
package bchan

import (
	"context"
	"log/slog"
	"time"
)

// SendC sends val to out unless ctx is canceled first.
// If ctx is canceled before the send completes,
// SendC logs "Context canceled while " + canceledDuring
// and reports false.
// Otherwise val was sent and SendC reports true.
func SendC[T any](ctx context.Context, log *slog.Logger, out chan<- T, val T, canceledDuring string) (sent bool) {
	select {
	case <-ctx.Done():
		log.Info("Context canceled while "+canceledDuring, "cause", context.Cause(ctx))
		return false
	case out <- val:
		return true
	}
}

// SendCLogBlocked behaves like [SendC] but additionally reports slow sends:
// if the send does not complete within tolerableBlockDuration,
// one log line records the block and a second one records the outcome,
// either completion or cancellation, with the total blocked duration.
//
// A send completing within the tolerated window logs nothing, like SendC.
// A zero or negative window tolerates no blocking at all.
//
// This is for test harnesses, where a stuck send usually means the
// system under test has stalled; avoid it in production paths.
func SendCLogBlocked[T any](
	ctx context.Context, log *slog.Logger,
	out chan<- T, val T,
	during string,
	tolerableBlockDuration time.Duration,
) (sent bool) {
	// Attempt the fast path first, bypassing any timer setup.
	select {
	case out <- val:
		return true
	default:
	}

	start := time.Now()

	if tolerableBlockDuration > 0 {
		timer := time.NewTimer(tolerableBlockDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Context canceled while "+during, "cause", context.Cause(ctx))
			return false
		case out <- val:
			timer.Stop()
			return true
		case <-timer.C:
		}
	}

	log.Info("Blocked on send attempt while "+during, "dur", time.Since(start))

	select {
	case <-ctx.Done():
		log.Info("Context canceled while "+during, "cause", context.Cause(ctx), "blocked_duration", time.Since(start))
		return false
	case out <- val:
		log.Info("Successfully sent while "+during, "blocked_duration", time.Since(start))
		return true
	}
}

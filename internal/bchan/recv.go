package bchan

import (
	"context"
	"log/slog"
	"time"
)

// RecvC receives from in unless ctx is canceled first.
// If ctx is canceled before a value arrives,
// RecvC logs "Context canceled while " + canceledDuring
// and returns the zero value of T with false.
// Otherwise the received value is returned with true.
func RecvC[T any](ctx context.Context, log *slog.Logger, in <-chan T, canceledDuring string) (val T, received bool) {
	select {
	case <-ctx.Done():
		log.Info("Context canceled while "+canceledDuring, "cause", context.Cause(ctx))
		return val, false
	case val := <-in:
		return val, true
	}
}

// RecvCLogBlocked behaves like [RecvC] but additionally reports slow receives:
// if no value arrives within tolerableBlockDuration,
// one log line records the block and a second one records the outcome,
// either a received value or cancellation, with the total blocked duration.
//
// A receive completing within the tolerated window logs nothing, like RecvC.
// A zero or negative window tolerates no blocking at all.
//
// This is for test harnesses, where a stuck receive usually means the
// system under test has stalled; avoid it in production paths.
func RecvCLogBlocked[T any](
	ctx context.Context, log *slog.Logger,
	in <-chan T,
	during string,
	tolerableBlockDuration time.Duration,
) (val T, received bool) {
	// Attempt the fast path first, bypassing any timer setup.
	select {
	case val := <-in:
		return val, true
	default:
	}

	start := time.Now()

	if tolerableBlockDuration > 0 {
		timer := time.NewTimer(tolerableBlockDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Context canceled while "+during, "cause", context.Cause(ctx))
			return val, false
		case val := <-in:
			timer.Stop()
			return val, true
		case <-timer.C:
		}
	}

	log.Info("Blocked on receive attempt while "+during, "dur", time.Since(start))

	select {
	case <-ctx.Done():
		log.Info("Context canceled while "+during, "cause", context.Cause(ctx), "blocked_duration", time.Since(start))
		return val, false
	case val := <-in:
		log.Info("Successfully received while "+during, "blocked_duration", time.Since(start))
		return val, true
	}
}

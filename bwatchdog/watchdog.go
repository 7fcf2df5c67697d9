// Package bwatchdog provides a Watchdog that periodically polls
// subsystems which have opted in to liveness monitoring.
// A subsystem opts in with an interval and jitter controlling how often
// it is polled, and a timeout bounding how long its response may take.
// If the subsystem misses its response window,
// the watchdog terminates the whole system by canceling the watchdog context.
package bwatchdog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/braid-engine/braid/internal/bchan"
)

type Watchdog struct {
	log *slog.Logger

	cancel context.CancelCauseFunc

	// Nil on a nop watchdog, making Monitor return a nil channel.
	registrations chan monitorReq

	// Monitors come and go at runtime,
	// so a WaitGroup tracks them along with the run loop.
	wg sync.WaitGroup
}

// monitorReq asks the run loop to launch one monitor.
type monitorReq struct {
	cfg MonitorConfig

	// The caller needs a receive-only channel of signals back.
	resp chan (<-chan Signal)
}

// NewWatchdog returns a new Watchdog and a watchdog context
// derived from the given context.
//
// The returned context is canceled when a subsystem subscribed through
// [*Watchdog.Monitor] misses its response window,
// or upon a call to [*Watchdog.Terminate].
func NewWatchdog(ctx context.Context, log *slog.Logger) (*Watchdog, context.Context) {
	return newWatchdog(ctx, log, true)
}

// NewNopWatchdog returns a Watchdog that disregards calls to
// [*Watchdog.Monitor] but still honors Terminate.
// It is intended for tests.
func NewNopWatchdog(ctx context.Context, log *slog.Logger) (*Watchdog, context.Context) {
	return newWatchdog(ctx, log, false)
}

func newWatchdog(ctx context.Context, log *slog.Logger, acceptMonitors bool) (*Watchdog, context.Context) {
	wCtx, cancel := context.WithCancelCause(ctx)
	w := &Watchdog{
		log:    log,
		cancel: cancel,
	}
	if acceptMonitors {
		w.registrations = make(chan monitorReq) // Unbuffered since requests are synchronous.
	}

	w.wg.Add(1)
	go w.run(ctx, wCtx)
	return w, wCtx
}

// Wait blocks until w's background goroutines finish.
// They are tied to the context passed to [NewWatchdog];
// calling Terminate or missing a monitor deadline
// does not suffice to unblock Wait.
func (w *Watchdog) Wait() {
	w.wg.Wait()
}

// Terminate cancels the watchdog context
// with a [ForcedTerminationError] cause.
func (w *Watchdog) Terminate(reason string) {
	w.cancel(ForcedTerminationError{Reason: reason})
}

func (w *Watchdog) run(rootCtx, wCtx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-rootCtx.Done():
			w.log.Info("Watchdog run loop stopping", "cause", context.Cause(rootCtx))
			return
		case req := <-w.registrations:
			m := newMonitor(w.log.With("target", req.cfg.Name), req.cfg, w.cancel)

			w.wg.Add(1)
			// Monitors run off the watchdog context,
			// so a termination stops them too.
			go m.run(wCtx, &w.wg)

			req.resp <- m.sigs
		}
	}
}

// Monitor registers a liveness monitor for one subsystem.
// The subsystem must receive from the returned channel in its main loop
// and close the [Signal.Alive] channel to confirm timely receipt.
//
// The name in cfg identifies the subsystem in logs and termination errors.
//
// Under normal operation a signal arrives every
// Interval plus a uniformly distributed jitter in [-Jitter, +Jitter).
//
// A nil channel comes back in two cases: the watchdog is a nop one,
// or ctx was canceled before registration completed.
func (w *Watchdog) Monitor(ctx context.Context, cfg MonitorConfig) <-chan Signal {
	// Validate the config even when monitoring is disabled.
	if err := cfg.validate(); err != nil {
		panic(fmt.Errorf("(*Watchdog).Monitor: invalid MonitorConfig: %w", err))
	}

	if w.registrations == nil {
		return nil
	}

	req := monitorReq{
		cfg:  cfg,
		resp: make(chan (<-chan Signal), 1),
	}

	ch, _ := bchan.ReqResp(
		ctx, w.log,
		w.registrations, req,
		req.resp,
		"requesting new monitor",
	)
	return ch
}

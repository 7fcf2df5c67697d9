package bconsensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStopRequested is the cancellation cause set when the engine is
// stopped through its manager.
var ErrStopRequested = errors.New("stop requested")

// Manager owns the engine's lifecycle after Start.
type Manager struct {
	log *slog.Logger

	cancel context.CancelCauseFunc

	kernelDone <-chan struct{}

	stopOnce sync.Once
}

// Stop shuts the engine down and blocks until the kernel goroutine
// has exited, draining evs so that a full event channel cannot delay
// the shutdown. Stop is safe to call more than once; ctx only bounds
// how long to wait.
func (m *Manager) Stop(ctx context.Context, evs *EventReceiver) error {
	m.stopOnce.Do(func() {
		m.log.Info("Stopping consensus engine")
		m.cancel(ErrStopRequested)
	})

	var evC <-chan Event
	if evs != nil {
		evC = evs.C
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(
				"context canceled while stopping consensus engine: %w", context.Cause(ctx),
			)
		case _, ok := <-evC:
			if !ok {
				evC = nil
			}
		case <-m.kernelDone:
			return nil
		}
	}
}

// Wait blocks until the kernel goroutine has exited.
// It does not initiate a stop.
func (m *Manager) Wait() {
	<-m.kernelDone
}

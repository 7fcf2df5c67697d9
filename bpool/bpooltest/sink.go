package bpooltest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/braid-engine/braid/bpool"
)

// CommandSink continuously drains and discards the commands arriving at
// a [MockPoolController], so an engine emitting toward an unattended
// pool never blocks.
//
// Draining begins at construction and runs until [CommandSink.Stop] is
// called or ctx is canceled. A controller wrapped by a sink must not be
// observed with [WaitCommand] concurrently; the sink would steal the
// commands being waited for.
type CommandSink struct {
	log *slog.Logger

	quit chan struct{}
	done chan struct{}

	stopOnce sync.Once
}

// NewCommandSink starts draining ctrl's commands on a background goroutine.
func NewCommandSink(ctx context.Context, log *slog.Logger, ctrl *MockPoolController) *CommandSink {
	s := &CommandSink{
		log: log,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.drain(ctx, ctrl.cmds)
	return s
}

func (s *CommandSink) drain(ctx context.Context, cmds <-chan bpool.Command) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.quit:
			// Consume whatever is already buffered before exiting.
			s.flush(cmds)
			return

		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			s.log.Debug("Sink discarded pool command", "kind", cmd.Kind())
		}
	}
}

func (s *CommandSink) flush(cmds <-chan bpool.Command) {
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			s.log.Debug("Sink discarded pool command", "kind", cmd.Kind())
		default:
			return
		}
	}
}

// Stop terminates the drain goroutine and waits for it to exit,
// leaving no buffered command unconsumed.
// It is safe to call Stop multiple times.
func (s *CommandSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

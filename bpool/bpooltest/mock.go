// Package bpooltest provides the mock pool controller used when testing
// the consensus engine, and the command sink that keeps the pool channel
// drained for tests that do not assert on pool traffic.
package bpooltest

import (
	"log/slog"

	"github.com/braid-engine/braid/bpool"
	"github.com/braid-engine/braid/internal/btest"
)

// MockPoolController owns the controller-side end of the engine's pool
// command channel for the lifetime of one test.
//
// The pool link is one-directional, so the mock has no stimulus methods;
// it only observes what the engine emits.
type MockPoolController struct {
	log *slog.Logger

	cmds <-chan bpool.Command
}

// NewMockPoolController returns a mock pool controller together with the
// engine-side sender wired to it, buffered to size.
func NewMockPoolController(log *slog.Logger, size int) (*MockPoolController, *bpool.CommandSender) {
	sender, cmds := bpool.NewChannelPair(log, size)

	return &MockPoolController{
		log: log,

		cmds: cmds,
	}, sender
}

// Commands returns the receive end of the engine's pool command channel.
func (m *MockPoolController) Commands() <-chan bpool.Command {
	return m.cmds
}

// WaitCommand receives commands from c until match yields a projection,
// returning that projection and true.
//
// Non-matching commands are permanently discarded while searching,
// exactly one match is consumed, and false is returned no earlier than
// timeout after call entry.
func WaitCommand[R any](
	c *MockPoolController,
	timeout btest.ScaledDuration,
	match func(bpool.Command) (R, bool),
) (R, bool) {
	return btest.WaitMatch(c.cmds, timeout, match)
}

// Package bexectest provides the mock execution controller tests hand
// to the consensus engine as its execution layer.
package bexectest

import (
	"context"
	"log/slog"

	"github.com/braid-engine/braid/bexec"
	"github.com/braid-engine/braid/internal/btest"
)

// MockExecutionController holds the receive end of a channel-backed
// [bexec.Controller] for the lifetime of one test.
type MockExecutionController struct {
	log *slog.Logger

	reqs <-chan bexec.Request
}

// NewMockExecutionController returns a mock execution controller and the
// [bexec.Controller] the engine calls into, buffered to size.
func NewMockExecutionController(log *slog.Logger, size int) (*MockExecutionController, bexec.Controller) {
	ctrl, reqs := bexec.NewChannelController(log, size)

	return &MockExecutionController{
		log: log,

		reqs: reqs,
	}, ctrl
}

// Requests returns the receive end of the engine's execution requests.
func (m *MockExecutionController) Requests() <-chan bexec.Request {
	return m.reqs
}

// WaitRequest receives requests from c until match yields a projection,
// returning that projection and true.
//
// Non-matching requests are permanently discarded while searching,
// exactly one match is consumed, and false is returned no earlier than
// timeout after call entry.
func WaitRequest[R any](
	c *MockExecutionController,
	timeout btest.ScaledDuration,
	match func(bexec.Request) (R, bool),
) (R, bool) {
	return btest.WaitMatch(c.reqs, timeout, match)
}

// DrainRequests discards every request until ctx is canceled,
// for tests that never assert on execution traffic.
// The lifecycle orchestrator runs it on a dedicated goroutine.
func (m *MockExecutionController) DrainRequests(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-m.reqs:
			if !ok {
				return
			}
			m.log.Debug("Drain discarded execution request", "kind", req.Kind())
		}
	}
}

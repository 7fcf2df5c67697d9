// Package bprotocoltest provides the mock protocol controller that
// stands in for the protocol layer when testing the consensus engine.
package bprotocoltest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bprotocol"
	"github.com/braid-engine/braid/internal/bchan"
	"github.com/braid-engine/braid/internal/btest"
)

// A stimulus send blocked longer than this is logged;
// it usually means the engine under test has stalled.
var stimulusBlockWarning = btest.ScaleMs(1000).Std()

// MockProtocolController owns the controller-side ends of the engine's
// protocol channels for the lifetime of one test.
//
// Stimulus methods inject events toward the engine as if peers had sent
// them, and [WaitCommand] observes the commands the engine emits back.
// Nothing is buffered beyond the channels themselves, so commands are
// observed in exactly the order the engine produced them.
type MockProtocolController struct {
	log *slog.Logger

	cmds <-chan bprotocol.Command
	evs  chan<- bprotocol.Event
}

// NewMockProtocolController returns a mock protocol controller together
// with the engine-side handles wired to it, both channels buffered to size.
func NewMockProtocolController(log *slog.Logger, size int) (
	*MockProtocolController, *bprotocol.CommandSender, *bprotocol.EventReceiver,
) {
	sender, cmds, evs, recv := bprotocol.NewChannelPair(log, size)

	m := &MockProtocolController{
		log: log,

		cmds: cmds,
		evs:  evs,
	}
	return m, sender, recv
}

// Commands returns the receive end of the engine's command channel,
// for tests that select on it directly instead of using [WaitCommand].
func (m *MockProtocolController) Commands() <-chan bprotocol.Command {
	return m.cmds
}

// ReceiveBlock delivers a full block to the engine
// as if a peer had sent it.
//
// The send blocks while the engine's event queue is full,
// so a stalled engine stalls the caller too.
// It fails only if ctx is canceled first,
// which indicates a fatal test setup problem rather than a retryable one.
func (m *MockProtocolController) ReceiveBlock(ctx context.Context, block bmodels.Block) error {
	sent := bchan.SendCLogBlocked(
		ctx, m.log,
		m.evs,
		bprotocol.Event{ReceivedBlock: &bprotocol.ReceivedBlock{Block: block}},
		"injecting received block event",
		stimulusBlockWarning,
	)
	if !sent {
		return fmt.Errorf(
			"context canceled while injecting received block event: %w",
			context.Cause(ctx),
		)
	}
	return nil
}

// ReceiveHeader delivers a bodiless block header to the engine
// as if a peer had sent it.
//
// It blocks and fails under the same conditions as [MockProtocolController.ReceiveBlock].
func (m *MockProtocolController) ReceiveHeader(ctx context.Context, header bmodels.SignedHeader) error {
	sent := bchan.SendCLogBlocked(
		ctx, m.log,
		m.evs,
		bprotocol.Event{ReceivedHeader: &bprotocol.ReceivedHeader{Header: header}},
		"injecting received header event",
		stimulusBlockWarning,
	)
	if !sent {
		return fmt.Errorf(
			"context canceled while injecting received header event: %w",
			context.Cause(ctx),
		)
	}
	return nil
}

// AskForBlocks tells the engine that peers asked this node for the
// listed blocks. The engine answers with a single blocks-results command.
//
// It blocks and fails under the same conditions as [MockProtocolController.ReceiveBlock].
func (m *MockProtocolController) AskForBlocks(ctx context.Context, ids []bmodels.BlockID) error {
	sent := bchan.SendCLogBlocked(
		ctx, m.log,
		m.evs,
		bprotocol.Event{BlocksAsked: &bprotocol.BlocksAsked{IDs: ids}},
		"injecting blocks asked event",
		stimulusBlockWarning,
	)
	if !sent {
		return fmt.Errorf(
			"context canceled while injecting blocks asked event: %w",
			context.Cause(ctx),
		)
	}
	return nil
}

// WaitCommand receives commands from c until match yields a projection,
// returning that projection and true.
//
// Commands that do not match are permanently discarded while searching;
// a later call only observes commands the engine emitted after the last
// one this call consumed. If no match arrives within timeout of call
// entry, WaitCommand returns the zero R and false, never before the full
// timeout has elapsed.
func WaitCommand[R any](
	c *MockProtocolController,
	timeout btest.ScaledDuration,
	match func(bprotocol.Command) (R, bool),
) (R, bool) {
	return btest.WaitMatch(c.cmds, timeout, match)
}

// IgnoreCommandsWhile discards every command the engine emits while op
// runs, so an engine blocked on a full command channel cannot deadlock
// against op. It is meant for shutdown: run the engine's stop sequence
// as op, and commands emitted while stopping are absorbed.
//
// After op returns, commands already sitting in the channel are drained
// before IgnoreCommandsWhile returns op's error.
// A canceled ctx abandons both the drain and the wait for op.
func (m *MockProtocolController) IgnoreCommandsWhile(ctx context.Context, op func() error) error {
	opDone := make(chan error, 1)
	go func() {
		opDone <- op()
	}()

	cmds := m.cmds
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf(
				"context canceled while ignoring commands: %w",
				context.Cause(ctx),
			)

		case cmd, ok := <-cmds:
			if !ok {
				// No further commands can arrive; keep waiting on op.
				cmds = nil
				continue
			}
			m.log.Debug("Discarded command while ignoring traffic", "kind", cmd.Kind())

		case err := <-opDone:
			for {
				select {
				case cmd, ok := <-cmds:
					if !ok {
						return err
					}
					m.log.Debug("Discarded command while ignoring traffic", "kind", cmd.Kind())
				default:
					return err
				}
			}
		}
	}
}

package bprotocol

import (
	"context"
	"log/slog"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/internal/bchan"
)

// CommandSender is the engine-side handle for issuing commands
// to the protocol controller.
//
// Each send method reports whether the command was sent,
// returning false only if ctx was canceled first.
// Sends block while the command channel is full.
type CommandSender struct {
	log *slog.Logger

	out chan<- Command
}

// NewCommandSender returns a CommandSender that writes to out.
func NewCommandSender(log *slog.Logger, out chan<- Command) *CommandSender {
	return &CommandSender{log: log, out: out}
}

// SendIntegratedBlock announces a newly integrated block for propagation.
func (s *CommandSender) SendIntegratedBlock(ctx context.Context, id bmodels.BlockID, block bmodels.Block) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{IntegratedBlock: &IntegratedBlock{ID: id, Block: block}},
		"sending integrated block command",
	)
}

// SendWishlistDelta updates the set of blocks wanted from peers.
func (s *CommandSender) SendWishlistDelta(ctx context.Context, add, remove map[bmodels.BlockID]struct{}) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{WishlistDelta: &WishlistDelta{New: add, Remove: remove}},
		"sending wishlist delta command",
	)
}

// SendAttackBlockDetected reports a malicious block.
func (s *CommandSender) SendAttackBlockDetected(ctx context.Context, id bmodels.BlockID) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{AttackBlockDetected: &AttackBlockDetected{ID: id}},
		"sending attack block detected command",
	)
}

// SendBlocksResults answers a blocks-asked event.
func (s *CommandSender) SendBlocksResults(ctx context.Context, results map[bmodels.BlockID]*bmodels.Block) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{BlocksResults: &BlocksResults{Results: results}},
		"sending blocks results command",
	)
}

// EventReceiver is the engine-side handle for protocol events.
// The engine selects on C directly from its kernel loop.
type EventReceiver struct {
	C <-chan Event
}

// NewChannelPair creates the two channel links between the consensus engine
// and a protocol controller, both buffered to size.
//
// It returns the engine-side handles and the controller-side channel ends.
func NewChannelPair(log *slog.Logger, size int) (*CommandSender, <-chan Command, chan<- Event, *EventReceiver) {
	cmds := make(chan Command, size)
	evs := make(chan Event, size)

	return NewCommandSender(log, cmds), cmds, evs, &EventReceiver{C: evs}
}

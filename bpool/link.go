package bpool

import (
	"context"
	"log/slog"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/internal/bchan"
)

// CommandSender is the engine-side handle for notifying the pool controller.
//
// Each method reports whether the command was sent,
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

// UpdateCurrentSlot notifies the pool that the engine's clock reached slot.
func (s *CommandSender) UpdateCurrentSlot(ctx context.Context, slot bmodels.Slot) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{UpdateCurrentSlot: &UpdateCurrentSlot{Slot: slot}},
		"sending current slot update",
	)
}

// UpdateLatestFinalPeriods notifies the pool of the latest final period
// per thread.
func (s *CommandSender) UpdateLatestFinalPeriods(ctx context.Context, periods []uint64) bool {
	return bchan.SendC(
		ctx, s.log,
		s.out,
		Command{UpdateLatestFinalPeriods: &UpdateLatestFinalPeriods{Periods: periods}},
		"sending latest final periods update",
	)
}

// NewChannelPair creates the command channel between the consensus engine
// and a pool controller, buffered to size.
//
// It returns the engine-side sender and the controller-side channel end.
func NewChannelPair(log *slog.Logger, size int) (*CommandSender, <-chan Command) {
	cmds := make(chan Command, size)
	return NewCommandSender(log, cmds), cmds
}

package bconsensus

import (
	"context"
	"log/slog"
	"runtime/trace"
	"time"

	"github.com/braid-engine/braid/bexec"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bpool"
	"github.com/braid-engine/braid/bprotocol"
	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/bwatchdog"
	"github.com/braid-engine/braid/internal/blog"
)

// kernel is the engine's single goroutine. It owns the block graph
// outright; every interaction with it goes through its channels.
type kernel struct {
	log *slog.Logger
	cfg Config

	graph *blockGraph

	// Added to the wall clock when deciding which slot is current.
	clockComp time.Duration

	cmds   <-chan command
	events chan<- Event

	protocol *bprotocol.CommandSender
	pEvents  <-chan bprotocol.Event
	pool     *bpool.CommandSender
	exec     bexec.Controller

	wd *bwatchdog.Watchdog

	// Earliest slot whose opening has not been handled yet.
	nextSlot bmodels.Slot

	done chan struct{}
}

func (k *kernel) mainLoop(ctx context.Context) {
	ctx, task := trace.NewTask(ctx, "bconsensus.kernel.mainLoop")
	defer task.End()

	defer close(k.done)
	defer close(k.events)

	defer func() {
		if bwatchdog.IsTermination(ctx) {
			k.log.Info(
				"WATCHDOG TERMINATING; DUMPING STATE",
				"current_slot", k.graph.currentSlot,
				"next_slot", k.nextSlot,
				"active_blocks", len(k.graph.actives),
				"waiting_blocks", len(k.graph.waiting),
				"asked_blocks", len(k.graph.asked),
			)
		}
	}()

	var wSig <-chan bwatchdog.Signal
	if k.wd != nil {
		wSig = k.wd.Monitor(ctx, bwatchdog.MonitorConfig{
			Name:            "consensus kernel",
			Interval:        10 * time.Second,
			Jitter:          time.Second,
			ResponseTimeout: time.Second,
		})
	}

	slotTimer := time.NewTimer(k.untilSlot(k.nextSlot))
	defer slotTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			k.log.Info(
				"Stopping due to context cancellation in kernel main loop",
				"cause", context.Cause(ctx),
			)
			return

		case cmd := <-k.cmds:
			if !k.handleCommand(ctx, cmd) {
				return
			}

		case ev, ok := <-k.pEvents:
			if !ok {
				k.log.Error("Protocol event channel closed; terminating")
				return
			}
			if !k.handleProtocolEvent(ctx, ev) {
				return
			}

		case <-slotTimer.C:
			if !k.handleSlotTick(ctx, k.nextSlot) {
				return
			}
			k.nextSlot = k.nextSlot.NextSlot(k.cfg.ThreadCount)
			slotTimer.Reset(k.untilSlot(k.nextSlot))

		case sig := <-wSig:
			close(sig.Alive)
		}
	}
}

func (k *kernel) now() btime.Time {
	return btime.Now().Add(k.clockComp)
}

// untilSlot returns how long until slot s opens,
// or zero when it already has.
func (k *kernel) untilSlot(s bmodels.Slot) time.Duration {
	open := bmodels.SlotTimestamp(k.cfg.GenesisTimestamp, k.cfg.T0.Std(), k.cfg.ThreadCount, s)
	return open.SaturatingSub(k.now())
}

func (k *kernel) handleCommand(ctx context.Context, cmd command) (ok bool) {
	defer trace.StartRegion(ctx, "handleCommand").End()

	// Response channels are 1-buffered, so the sends cannot block
	// even if the requester has already given up.
	switch {
	case cmd.GraphStatus != nil:
		cmd.GraphStatus.Resp <- k.graph.graphStatus()

	case cmd.ActiveBlock != nil:
		ex, found := k.graph.activeBlockExportByID(cmd.ActiveBlock.ID)
		cmd.ActiveBlock.Resp <- activeBlockResult{Block: ex, OK: found}

	case cmd.BootstrapState != nil:
		cmd.BootstrapState.Resp <- k.graph.bootstrapState()

	case cmd.SelectionDraws != nil:
		draws, err := k.graph.draws.drawRange(
			cmd.SelectionDraws.Start, cmd.SelectionDraws.End, k.cfg.ThreadCount,
		)
		cmd.SelectionDraws.Resp <- selectionDrawsResult{Draws: draws, Err: err}

	default:
		k.log.Warn("Ignoring empty command")
	}

	return true
}

func (k *kernel) handleProtocolEvent(ctx context.Context, ev bprotocol.Event) (ok bool) {
	defer trace.StartRegion(ctx, "handleProtocolEvent").End()

	out := newGraphOutcome()

	var err error
	switch {
	case ev.ReceivedBlock != nil:
		err = k.graph.receiveBlock(ctx, ev.ReceivedBlock.Block, out)
	case ev.ReceivedHeader != nil:
		err = k.graph.receiveHeader(ev.ReceivedHeader.Header, out)
	case ev.BlocksAsked != nil:
		err = k.graph.blocksAsked(ctx, ev.BlocksAsked.IDs, out)
	default:
		k.log.Warn("Ignoring empty protocol event")
		return true
	}
	if err != nil {
		k.log.Error(
			"Fatal storage failure while handling protocol event",
			"kind", ev.Kind(), "err", err,
		)
		return false
	}

	return k.emitOutcome(ctx, out)
}

func (k *kernel) handleSlotTick(ctx context.Context, s bmodels.Slot) (ok bool) {
	defer trace.StartRegion(ctx, "handleSlotTick").End()

	if !k.pool.UpdateCurrentSlot(ctx, s) {
		return false
	}

	out := newGraphOutcome()
	if err := k.graph.slotTick(ctx, s, out); err != nil {
		blog.SLE(k.log, s.Period, s.Thread, err).Error("Fatal storage failure while handling slot tick")
		return false
	}

	return k.emitOutcome(ctx, out)
}

// emitOutcome turns the accumulated effects of one graph mutation
// into outbound commands and notifications.
func (k *kernel) emitOutcome(ctx context.Context, out *graphOutcome) (ok bool) {
	for _, b := range out.Integrated {
		if !k.protocol.SendIntegratedBlock(ctx, b.ID(), b) {
			return false
		}
	}

	if len(out.WishlistNew) > 0 || len(out.WishlistRemove) > 0 {
		if !k.protocol.SendWishlistDelta(ctx, out.WishlistNew, out.WishlistRemove) {
			return false
		}
	}

	for _, id := range out.Attacks {
		if !k.protocol.SendAttackBlockDetected(ctx, id) {
			return false
		}
	}

	if out.Results != nil {
		if !k.protocol.SendBlocksResults(ctx, out.Results) {
			return false
		}
	}

	if len(out.NewFinals) > 0 {
		periods := make([]uint64, len(k.graph.latestFinals))
		for t, lf := range k.graph.latestFinals {
			periods[t] = lf.Period
		}
		if !k.pool.UpdateLatestFinalPeriods(ctx, periods) {
			return false
		}
	}

	if out.GraphChanged {
		err := k.exec.UpdateBlockcliqueStatus(ctx, out.NewFinals, k.graph.blockcliqueBlocks())
		if err != nil {
			k.log.Error("Failed to notify execution of blockclique change", "err", err)
			return false
		}
	}

	if out.NeedSync {
		select {
		case k.events <- Event{NeedSync: &NeedSync{}}:
		default:
			k.log.Warn("Dropping need-sync event, event channel is full")
		}
	}

	return true
}

package bconsensus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/internal/bchan"
)

// command carries one caller request into the kernel.
// Exactly one of the fields must be set.
type command struct {
	GraphStatus    *graphStatusRequest
	ActiveBlock    *activeBlockRequest
	BootstrapState *bootstrapStateRequest
	SelectionDraws *selectionDrawsRequest
}

type graphStatusRequest struct {
	Resp chan BlockGraphExport
}

type activeBlockRequest struct {
	ID bmodels.BlockID

	Resp chan activeBlockResult
}

type activeBlockResult struct {
	Block ExportActiveBlock
	OK    bool
}

type bootstrapStateRequest struct {
	Resp chan BootstrapState
}

type selectionDrawsRequest struct {
	Start, End bmodels.Slot

	Resp chan selectionDrawsResult
}

type selectionDrawsResult struct {
	Draws []SelectionDraw
	Err   error
}

// CommandSender is the caller-facing handle to a running engine.
// Requests are answered by the kernel goroutine, so every method
// blocks until the kernel gets to it or ctx is canceled.
type CommandSender struct {
	log *slog.Logger

	cmds chan<- command
}

// GetBlockGraphStatus returns a snapshot of the whole block graph.
func (s *CommandSender) GetBlockGraphStatus(ctx context.Context) (BlockGraphExport, error) {
	req := graphStatusRequest{
		Resp: make(chan BlockGraphExport, 1),
	}

	ex, ok := bchan.ReqResp(
		ctx, s.log,
		s.cmds, command{GraphStatus: &req},
		req.Resp,
		"graph status",
	)
	if !ok {
		return BlockGraphExport{}, fmt.Errorf(
			"context canceled while requesting graph status: %w", context.Cause(ctx),
		)
	}
	return ex, nil
}

// GetActiveBlock returns the active block with the given ID,
// reporting false when the ID is not in the active graph.
func (s *CommandSender) GetActiveBlock(ctx context.Context, id bmodels.BlockID) (ExportActiveBlock, bool, error) {
	req := activeBlockRequest{
		ID:   id,
		Resp: make(chan activeBlockResult, 1),
	}

	res, ok := bchan.ReqResp(
		ctx, s.log,
		s.cmds, command{ActiveBlock: &req},
		req.Resp,
		"active block",
	)
	if !ok {
		return ExportActiveBlock{}, false, fmt.Errorf(
			"context canceled while requesting active block: %w", context.Cause(ctx),
		)
	}
	return res.Block, res.OK, nil
}

// GetBootstrapState returns what a joining node needs to bootstrap
// from this node's view.
func (s *CommandSender) GetBootstrapState(ctx context.Context) (BootstrapState, error) {
	req := bootstrapStateRequest{
		Resp: make(chan BootstrapState, 1),
	}

	state, ok := bchan.ReqResp(
		ctx, s.log,
		s.cmds, command{BootstrapState: &req},
		req.Resp,
		"bootstrap state",
	)
	if !ok {
		return BootstrapState{}, fmt.Errorf(
			"context canceled while requesting bootstrap state: %w", context.Cause(ctx),
		)
	}
	return state, nil
}

// GetSelectionDraws returns the creator draw of every slot
// in [start, end).
func (s *CommandSender) GetSelectionDraws(ctx context.Context, start, end bmodels.Slot) ([]SelectionDraw, error) {
	req := selectionDrawsRequest{
		Start: start,
		End:   end,
		Resp:  make(chan selectionDrawsResult, 1),
	}

	res, ok := bchan.ReqResp(
		ctx, s.log,
		s.cmds, command{SelectionDraws: &req},
		req.Resp,
		"selection draws",
	)
	if !ok {
		return nil, fmt.Errorf(
			"context canceled while requesting selection draws: %w", context.Cause(ctx),
		)
	}
	return res.Draws, res.Err
}

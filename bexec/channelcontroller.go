package bexec

import (
	"context"
	"log/slog"

	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/internal/bchan"
)

// ChannelController implements [Controller] by forwarding each call
// as a [Request] on a channel, for a separate goroutine to consume.
type ChannelController struct {
	log *slog.Logger

	out chan<- Request
}

// NewChannelController returns a ChannelController
// and the receive end of its request channel, buffered to size.
func NewChannelController(log *slog.Logger, size int) (*ChannelController, <-chan Request) {
	reqs := make(chan Request, size)
	return &ChannelController{log: log, out: reqs}, reqs
}

func (c *ChannelController) UpdateBlockcliqueStatus(
	ctx context.Context,
	finalized map[bmodels.BlockID]bmodels.Block,
	blockclique map[bmodels.BlockID]bmodels.Block,
) error {
	sent := bchan.SendC(
		ctx, c.log,
		c.out,
		Request{UpdateBlockcliqueStatus: &UpdateBlockcliqueStatus{
			Finalized:   finalized,
			Blockclique: blockclique,
		}},
		"sending blockclique status update",
	)
	if !sent {
		return context.Cause(ctx)
	}
	return nil
}

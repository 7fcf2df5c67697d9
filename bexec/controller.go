// Package bexec defines the consensus engine's interface to the
// execution layer, which applies finalized blocks to ledger state.
package bexec

import (
	"context"

	"github.com/braid-engine/braid/bmodels"
)

// Controller is the engine's handle on the execution layer.
//
// The engine calls it from its kernel goroutine,
// so implementations must not block indefinitely
// unless ctx cancellation unblocks them.
type Controller interface {
	// UpdateBlockcliqueStatus notifies the execution layer that the
	// set of finalized blocks grew by finalized,
	// and that blockclique is the engine's current preferred clique.
	UpdateBlockcliqueStatus(
		ctx context.Context,
		finalized map[bmodels.BlockID]bmodels.Block,
		blockclique map[bmodels.BlockID]bmodels.Block,
	) error
}

// Request is a single notification sent to a channel-backed
// execution controller.
//
// Exactly one of the fields must be set.
type Request struct {
	UpdateBlockcliqueStatus *UpdateBlockcliqueStatus
}

// Kind returns a short name for the populated field, for logging.
func (r Request) Kind() string {
	switch {
	case r.UpdateBlockcliqueStatus != nil:
		return "update_blockclique_status"
	default:
		return "(empty)"
	}
}

// UpdateBlockcliqueStatus is the channel form of
// [Controller.UpdateBlockcliqueStatus].
type UpdateBlockcliqueStatus struct {
	Finalized   map[bmodels.BlockID]bmodels.Block
	Blockclique map[bmodels.BlockID]bmodels.Block
}

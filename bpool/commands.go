// Package bpool defines the channel link between the consensus engine
// and the pool controller that maintains pending operations.
//
// The engine only notifies the pool; nothing flows back.
package bpool

import (
	"github.com/braid-engine/braid/bmodels"
)

// Command is a single notification from the consensus engine
// to the pool controller.
//
// Exactly one of the fields must be set.
type Command struct {
	UpdateCurrentSlot        *UpdateCurrentSlot
	UpdateLatestFinalPeriods *UpdateLatestFinalPeriods
}

// Kind returns a short name for the populated field, for logging.
func (c Command) Kind() string {
	switch {
	case c.UpdateCurrentSlot != nil:
		return "update_current_slot"
	case c.UpdateLatestFinalPeriods != nil:
		return "update_latest_final_periods"
	default:
		return "(empty)"
	}
}

// UpdateCurrentSlot tells the pool which slot the engine's clock
// has reached, so the pool can expire stale operations.
type UpdateCurrentSlot struct {
	Slot bmodels.Slot
}

// UpdateLatestFinalPeriods tells the pool the latest final period
// in each thread, indexed by thread number.
type UpdateLatestFinalPeriods struct {
	Periods []uint64
}

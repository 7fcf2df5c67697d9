// Package bmodels defines the data model shared by the consensus worker
// and its collaborators: slots, addresses, amounts, blocks, operations,
// endorsements, and their signed wrappers.
package bmodels

import (
	"fmt"
	"time"

	"github.com/braid-engine/braid/btime"
)

// Slot is one position in the slot lattice:
// period counts slot cycles since genesis,
// thread selects one of the parallel chains inside a cycle.
// Threads within a period are staggered evenly across the period duration.
type Slot struct {
	Period uint64 `json:"period"`
	Thread uint8  `json:"thread"`
}

func NewSlot(period uint64, thread uint8) Slot {
	return Slot{Period: period, Thread: thread}
}

// Cmp compares slots in timestamp order: by period, then by thread.
// It returns -1, 0, or 1.
func (s Slot) Cmp(o Slot) int {
	if s.Period != o.Period {
		if s.Period < o.Period {
			return -1
		}
		return 1
	}
	if s.Thread != o.Thread {
		if s.Thread < o.Thread {
			return -1
		}
		return 1
	}
	return 0
}

// NextSlot returns the slot immediately following s
// in a lattice of threadCount threads.
func (s Slot) NextSlot(threadCount uint8) Slot {
	if s.Thread+1 < threadCount {
		return Slot{Period: s.Period, Thread: s.Thread + 1}
	}
	return Slot{Period: s.Period + 1, Thread: 0}
}

func (s Slot) String() string {
	return fmt.Sprintf("(period: %d, thread: %d)", s.Period, s.Thread)
}

// SlotTimestamp returns the wall time at which slot s opens,
// given the genesis timestamp, the period duration t0,
// and the number of threads.
// Thread k within a period opens k*(t0/threadCount) after thread 0.
func SlotTimestamp(genesis btime.Time, t0 time.Duration, threadCount uint8, s Slot) btime.Time {
	periodOffset := time.Duration(s.Period) * t0
	threadOffset := time.Duration(s.Thread) * (t0 / time.Duration(threadCount))
	return genesis.Add(periodOffset + threadOffset)
}

// SlotAt returns the latest slot whose opening time is not after at.
// It reports false if at precedes genesis.
func SlotAt(genesis btime.Time, t0 time.Duration, threadCount uint8, at btime.Time) (Slot, bool) {
	if at.Before(genesis) {
		return Slot{}, false
	}

	elapsed := at.SaturatingSub(genesis)
	period := uint64(elapsed / t0)
	rem := elapsed % t0

	thread := uint8(rem / (t0 / time.Duration(threadCount)))
	if thread >= threadCount {
		// Remainder rounding at the edge of a period.
		thread = threadCount - 1
	}

	return Slot{Period: period, Thread: thread}, true
}

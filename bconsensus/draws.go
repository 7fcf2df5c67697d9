package bconsensus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
)

// SelectionDraw names the address drawn to create the block of one slot.
type SelectionDraw struct {
	Slot    bmodels.Slot    `json:"slot"`
	Creator bmodels.Address `json:"creator"`
}

// selectionDraws computes the deterministic, roll-weighted creator draw
// for every slot. Draws depend only on the seed and the roll
// distribution, so every node agrees on the schedule.
type selectionDraws struct {
	seed  string
	rolls map[bmodels.Address]uint64

	// Sorted by address so the cumulative weights are deterministic.
	addresses []bmodels.Address
	// cumWeights[i] is the total roll count of addresses[0..i].
	cumWeights []uint64
	total      uint64
}

func newSelectionDraws(seed string, rolls map[bmodels.Address]uint64) (*selectionDraws, error) {
	d := &selectionDraws{seed: seed, rolls: rolls}

	for addr, count := range rolls {
		if count == 0 {
			continue
		}
		d.addresses = append(d.addresses, addr)
	}
	sort.Slice(d.addresses, func(i, j int) bool {
		return d.addresses[i].String() < d.addresses[j].String()
	})

	d.cumWeights = make([]uint64, len(d.addresses))
	for i, addr := range d.addresses {
		d.total += rolls[addr]
		d.cumWeights[i] = d.total
	}

	if d.total == 0 {
		return nil, errors.New("selection draws need at least one address holding rolls")
	}

	return d, nil
}

// draw returns the creator drawn for slot s.
func (d *selectionDraws) draw(s bmodels.Slot) bmodels.Address {
	h := bcrypto.ComputeHash([]byte(fmt.Sprintf("%s/draw/%d/%d", d.seed, s.Period, s.Thread)))
	x := binary.BigEndian.Uint64(h[:8]) % d.total

	// First cumulative weight strictly greater than x.
	i := sort.Search(len(d.cumWeights), func(i int) bool {
		return d.cumWeights[i] > x
	})
	return d.addresses[i]
}

// drawRange returns the draws for every slot in [start, end),
// walking the slot lattice in timestamp order.
func (d *selectionDraws) drawRange(start, end bmodels.Slot, threadCount uint8) ([]SelectionDraw, error) {
	if end.Cmp(start) < 0 {
		return nil, fmt.Errorf("invalid draw range: end %v before start %v", end, start)
	}

	var out []SelectionDraw
	for s := start; s.Cmp(end) < 0; s = s.NextSlot(threadCount) {
		out = append(out, SelectionDraw{Slot: s, Creator: d.draw(s)})
	}
	return out, nil
}

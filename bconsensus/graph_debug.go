//go:build debug

package bconsensus

import (
	"fmt"
)

// invariantGraphShape confirms the structural invariants of the graph
// after a mutation: parents of active blocks are active and laid out
// in thread order, the asked set is disjoint from the actives,
// incompatibilities are symmetric and only tracked for non-final
// blocks, and best parents name one active block per thread.
func (g *blockGraph) invariantGraphShape() {
	env := g.cfg.AssertEnv
	if !env.Enabled("consensus.graph.shape") {
		return
	}

	for id, ab := range g.actives {
		for i, p := range ab.Parents {
			pa, ok := g.actives[p.ID]
			if !ok {
				env.HandleAssertionFailure(fmt.Errorf(
					"active block %s has non-active parent %s", id, p.ID,
				))
				continue
			}
			if got := pa.Block.Slot().Thread; got != uint8(i) {
				env.HandleAssertionFailure(fmt.Errorf(
					"active block %s has parent %s in thread slot %d but the parent is in thread %d",
					id, p.ID, i, got,
				))
			}
			if got := pa.Block.Slot().Period; got != p.Period {
				env.HandleAssertionFailure(fmt.Errorf(
					"active block %s records parent %s at period %d but the parent is at period %d",
					id, p.ID, p.Period, got,
				))
			}
		}
	}

	for id := range g.asked {
		if _, ok := g.actives[id]; ok {
			env.HandleAssertionFailure(fmt.Errorf(
				"block %s is both asked for and active", id,
			))
		}
	}

	for id, in := range g.gi {
		ab, ok := g.actives[id]
		if !ok {
			env.HandleAssertionFailure(fmt.Errorf(
				"non-active block %s tracks incompatibilities", id,
			))
			continue
		}
		if ab.IsFinal {
			env.HandleAssertionFailure(fmt.Errorf(
				"final block %s still tracks incompatibilities", id,
			))
		}
		for x := range in {
			if _, ok := g.gi[x][id]; !ok {
				env.HandleAssertionFailure(fmt.Errorf(
					"incompatibility between %s and %s is not symmetric", id, x,
				))
			}
		}
	}

	if len(g.bestParents) != int(g.cfg.ThreadCount) {
		env.HandleAssertionFailure(fmt.Errorf(
			"have %d best parents, want %d", len(g.bestParents), g.cfg.ThreadCount,
		))
		return
	}
	for t, id := range g.bestParents {
		ab, ok := g.actives[id]
		if !ok {
			env.HandleAssertionFailure(fmt.Errorf(
				"best parent %s of thread %d is not active", id, t,
			))
			continue
		}
		if got := ab.Block.Slot().Thread; got != uint8(t) {
			env.HandleAssertionFailure(fmt.Errorf(
				"best parent of thread %d is in thread %d", t, got,
			))
		}
	}
}

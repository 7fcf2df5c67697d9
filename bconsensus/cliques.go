package bconsensus

import (
	"sort"

	"github.com/braid-engine/braid/bmodels"
)

// linkIncompatibilities records which active blocks id can never
// share a clique with. Two blocks are compatible when their combined
// ancestries tell one consistent story per thread. A block inherits
// its parents' incompatibilities, conflicts with same-thread blocks
// that are neither its ancestors nor descendants, and conflicts with
// a block in another thread unless each is ancestor-related to the
// parent the other names in its thread.
func (g *blockGraph) linkIncompatibilities(id bmodels.BlockID) {
	ab := g.actives[id]
	s := ab.Block.Slot()

	incomp := make(map[bmodels.BlockID]struct{})

	for _, p := range ab.Parents {
		for x := range g.gi[p.ID] {
			incomp[x] = struct{}{}
		}
	}

	for oid, ob := range g.actives {
		if oid == id || ob.IsFinal {
			continue
		}
		if _, ok := incomp[oid]; ok {
			continue
		}

		os := ob.Block.Slot()
		if os.Thread == s.Thread {
			if !g.ancestorRelated(oid, id) {
				incomp[oid] = struct{}{}
			}
			continue
		}

		if !g.ancestorRelated(oid, ab.Parents[os.Thread].ID) ||
			!g.ancestorRelated(id, ob.Parents[s.Thread].ID) {
			incomp[oid] = struct{}{}
		}
	}

	g.gi[id] = incomp
	for x := range incomp {
		g.gi[x][id] = struct{}{}
	}
}

// ancestorRelated reports whether a and b are on one line of descent:
// equal, or one the ancestor of the other.
func (g *blockGraph) ancestorRelated(a, b bmodels.BlockID) bool {
	return a == b || g.isAncestor(a, b) || g.isAncestor(b, a)
}

func (g *blockGraph) areIncompatible(a, b bmodels.BlockID) bool {
	_, ok := g.gi[a][b]
	return ok
}

// isAncestor reports whether a is an ancestor of d.
func (g *blockGraph) isAncestor(a, d bmodels.BlockID) bool {
	ab, ok := g.actives[a]
	if !ok {
		return false
	}
	aPeriod := ab.Block.Slot().Period

	visited := map[bmodels.BlockID]struct{}{d: {}}
	queue := []bmodels.BlockID{d}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		cb, ok := g.actives[cur]
		if !ok {
			continue
		}
		for _, p := range cb.Parents {
			if p.ID == a {
				return true
			}
			if p.Period < aPeriod {
				// Too old to reach a through its parents.
				continue
			}
			if _, ok := visited[p.ID]; ok {
				continue
			}
			visited[p.ID] = struct{}{}
			queue = append(queue, p.ID)
		}
	}
	return false
}

// recomputeCliques rebuilds the maximal compatible sets of non-final
// active blocks and elects the blockclique: the clique with the
// highest fitness, ties broken by the lexicographically smallest
// member list.
func (g *blockGraph) recomputeCliques() {
	ids := make([]bmodels.BlockID, 0, len(g.gi))
	for id := range g.gi {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	idx := make(map[bmodels.BlockID]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}

	compat := make([][]bool, len(ids))
	for i := range compat {
		compat[i] = make([]bool, len(ids))
		for j := range compat[i] {
			compat[i][j] = i != j
		}
	}
	for id, in := range g.gi {
		for x := range in {
			compat[idx[id]][idx[x]] = false
		}
	}

	memberSets := maximalCliques(compat)

	cliques := make([]Clique, 0, len(memberSets))
	keys := make([]string, 0, len(memberSets))
	for _, members := range memberSets {
		c := Clique{BlockIDs: make(map[bmodels.BlockID]struct{}, len(members))}
		var key string
		sort.Ints(members)
		for _, i := range members {
			id := ids[i]
			c.BlockIDs[id] = struct{}{}
			c.Fitness += g.actives[id].fitness()
			key += id.String()
		}
		cliques = append(cliques, c)
		keys = append(keys, key)
	}

	order := make([]int, len(cliques))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		ci, cj := cliques[order[i]], cliques[order[j]]
		if ci.Fitness != cj.Fitness {
			return ci.Fitness > cj.Fitness
		}
		return keys[order[i]] < keys[order[j]]
	})

	g.maxCliques = make([]Clique, len(order))
	for i, oi := range order {
		g.maxCliques[i] = cliques[oi]
	}
	if len(g.maxCliques) > 0 {
		g.maxCliques[0].IsBlockclique = true
	}
}

// maximalCliques lists every maximal clique of the graph on vertices
// 0..len(adj)-1, Bron-Kerbosch with pivoting. An empty graph yields
// one empty clique.
func maximalCliques(adj [][]bool) [][]int {
	var cliques [][]int

	var rec func(r, p, x []int)
	rec = func(r, p, x []int) {
		if len(p) == 0 && len(x) == 0 {
			cliques = append(cliques, append([]int(nil), r...))
			return
		}

		// Pivot on the vertex with the most neighbors in p.
		pivot, best := -1, -1
		for _, set := range [][]int{p, x} {
			for _, u := range set {
				n := 0
				for _, v := range p {
					if adj[u][v] {
						n++
					}
				}
				if n > best {
					best, pivot = n, u
				}
			}
		}

		var cand []int
		for _, v := range p {
			if !adj[pivot][v] {
				cand = append(cand, v)
			}
		}

		for _, v := range cand {
			nr := make([]int, len(r)+1)
			copy(nr, r)
			nr[len(r)] = v

			var np, nx []int
			for _, u := range p {
				if adj[v][u] {
					np = append(np, u)
				}
			}
			for _, u := range x {
				if adj[v][u] {
					nx = append(nx, u)
				}
			}
			rec(nr, np, nx)

			out := p[:0:len(p)]
			for _, u := range p {
				if u != v {
					out = append(out, u)
				}
			}
			p = out
			x = append(x, v)
		}
	}

	all := make([]int, len(adj))
	for i := range all {
		all[i] = i
	}
	rec(nil, all, nil)

	return cliques
}

// blockcliqueSet returns the members of the current blockclique.
func (g *blockGraph) blockcliqueSet() map[bmodels.BlockID]struct{} {
	for _, c := range g.maxCliques {
		if c.IsBlockclique {
			return c.BlockIDs
		}
	}
	return nil
}

// updateFinals finalizes blocks that belong to every maximal clique
// and whose strict descendants within the blockclique have
// accumulated fitness above DeltaF0. Finality is closed under
// ancestry, and finalized blocks leave the clique graph, so the
// cliques are recomputed until no block qualifies.
func (g *blockGraph) updateFinals(out *graphOutcome) {
	for {
		bc := g.blockcliqueSet()

		var candidates []bmodels.BlockID
		for id := range g.gi {
			inAll := true
			for _, c := range g.maxCliques {
				if _, ok := c.BlockIDs[id]; !ok {
					inAll = false
					break
				}
			}
			if !inAll {
				continue
			}
			if g.descendantFitness(id, bc) > g.cfg.DeltaF0 {
				candidates = append(candidates, id)
			}
		}

		if len(candidates) == 0 {
			return
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].String() < candidates[j].String()
		})

		for _, id := range candidates {
			g.markFinal(id, out)
		}
		g.recomputeCliques()
		out.GraphChanged = true
	}
}

// markFinal finalizes id and its non-final ancestors.
func (g *blockGraph) markFinal(id bmodels.BlockID, out *graphOutcome) {
	queue := []bmodels.BlockID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		ab, ok := g.actives[cur]
		if !ok || ab.IsFinal {
			continue
		}
		ab.IsFinal = true
		out.NewFinals[cur] = ab.Block

		s := ab.Block.Slot()
		if s.Period > g.latestFinals[s.Thread].Period {
			g.latestFinals[s.Thread] = BlockParent{ID: cur, Period: s.Period}
		}
		g.log.Info("Block is final", "block", cur, "slot", s)

		for x := range g.gi[cur] {
			delete(g.gi[x], cur)
		}
		delete(g.gi, cur)

		for _, p := range ab.Parents {
			queue = append(queue, p.ID)
		}
	}
}

// descendantFitness sums the fitness of the strict descendants of id
// that belong to the set within.
func (g *blockGraph) descendantFitness(id bmodels.BlockID, within map[bmodels.BlockID]struct{}) uint64 {
	var total uint64

	visited := make(map[bmodels.BlockID]struct{})
	queue := []bmodels.BlockID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, children := range g.actives[cur].Children {
			for cid := range children {
				if _, ok := visited[cid]; ok {
					continue
				}
				visited[cid] = struct{}{}

				if _, ok := within[cid]; ok {
					total += g.actives[cid].fitness()
				}
				queue = append(queue, cid)
			}
		}
	}

	return total
}

// recomputeBestParents elects, per thread, the latest block among the
// blockclique members and the latest finals.
func (g *blockGraph) recomputeBestParents() {
	best := make([]bmodels.BlockID, g.cfg.ThreadCount)
	bestPeriod := make([]uint64, g.cfg.ThreadCount)
	for t := range best {
		best[t] = g.latestFinals[t].ID
		bestPeriod[t] = g.latestFinals[t].Period
	}

	ids := make([]bmodels.BlockID, 0, len(g.blockcliqueSet()))
	for id := range g.blockcliqueSet() {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		s := g.actives[id].Block.Slot()
		if s.Period > bestPeriod[s.Thread] {
			best[s.Thread] = id
			bestPeriod[s.Thread] = s.Period
		}
	}

	g.bestParents = best
}

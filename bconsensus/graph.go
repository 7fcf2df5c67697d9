package bconsensus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bstore"
	"github.com/braid-engine/braid/internal/blog"
)

// activeBlock is a block that passed admission and lives in the graph.
type activeBlock struct {
	Block bmodels.Block

	// One parent per thread, in thread order. Nil for genesis blocks.
	Parents []BlockParent

	// Children[t] maps the IDs of children in thread t to their periods.
	Children []map[bmodels.BlockID]uint64

	IsFinal bool
}

// fitness is the block's weight in clique comparisons.
func (a *activeBlock) fitness() uint64 {
	return 1 + uint64(len(a.Block.Header.Content.Endorsements))
}

// waitingBlock is a structurally valid block whose parents
// have not all been integrated yet.
type waitingBlock struct {
	Block   bmodels.Block
	Missing map[bmodels.BlockID]struct{}
}

type slotOwnerKey struct {
	Creator bmodels.Address
	Slot    bmodels.Slot
}

// graphOutcome accumulates the externally visible effects of feeding
// one event into the graph. The kernel translates it into outbound
// commands after the graph work is done, so the graph itself never
// touches a channel.
type graphOutcome struct {
	// Blocks integrated during this event, in integration order.
	Integrated []bmodels.Block

	WishlistNew    map[bmodels.BlockID]struct{}
	WishlistRemove map[bmodels.BlockID]struct{}

	// Second blocks of detected double productions.
	Attacks []bmodels.BlockID

	// Answer to a BlocksAsked event. Nil values mark unknown blocks.
	Results map[bmodels.BlockID]*bmodels.Block

	// Blocks finalized during this event.
	NewFinals map[bmodels.BlockID]bmodels.Block

	// True when the blockclique may have changed.
	GraphChanged bool

	// True when a block arrived from so far in the future
	// that this node is probably desynchronized.
	NeedSync bool
}

func newGraphOutcome() *graphOutcome {
	return &graphOutcome{
		WishlistNew:    make(map[bmodels.BlockID]struct{}),
		WishlistRemove: make(map[bmodels.BlockID]struct{}),
		NewFinals:      make(map[bmodels.BlockID]bmodels.Block),
	}
}

// admissionStatus classifies a block or header at admission.
type admissionStatus int

const (
	admissionOK admissionStatus = iota
	admissionInvalid
	admissionStale
	admissionFutureNear
	admissionFutureFar
	admissionAttack
)

// blockGraph is the consensus state. It is owned by the kernel
// goroutine and must not be accessed from anywhere else.
type blockGraph struct {
	log   *slog.Logger
	cfg   Config
	store bstore.Storage
	draws *selectionDraws

	// Staking keys this node creates blocks with, by address.
	signers map[bmodels.Address]bcrypto.Ed25519Signer

	// Latest slot whose opening time has passed.
	currentSlot bmodels.Slot

	actives map[bmodels.BlockID]*activeBlock

	// gi maps each non-final active block to the set of active blocks
	// it can never share a clique with. Symmetric; final blocks are
	// removed from both sides when they finalize.
	gi map[bmodels.BlockID]map[bmodels.BlockID]struct{}

	waiting   map[bmodels.BlockID]*waitingBlock
	asked     map[bmodels.BlockID]struct{}
	discarded *lru.Cache[bmodels.BlockID, DiscardReason]

	// Blocks from slots that have not opened yet, by slot.
	future map[bmodels.Slot][]bmodels.Block

	slotOwner map[slotOwnerKey]bmodels.BlockID

	genesisIDs   []bmodels.BlockID
	maxCliques   []Clique
	bestParents  []bmodels.BlockID
	latestFinals []BlockParent
}

func newBlockGraph(
	ctx context.Context,
	log *slog.Logger,
	cfg Config,
	store bstore.Storage,
	draws *selectionDraws,
	signers map[bmodels.Address]bcrypto.Ed25519Signer,
	boot *BootstrapableGraph,
	currentSlot bmodels.Slot,
) (*blockGraph, error) {
	discarded, err := lru.New[bmodels.BlockID, DiscardReason](cfg.MaxDiscardedBlocks)
	if err != nil {
		return nil, fmt.Errorf("failed to build discarded block cache: %w", err)
	}

	g := &blockGraph{
		log:   log,
		cfg:   cfg,
		store: store,
		draws: draws,

		signers: signers,

		currentSlot: currentSlot,

		actives:   make(map[bmodels.BlockID]*activeBlock),
		gi:        make(map[bmodels.BlockID]map[bmodels.BlockID]struct{}),
		waiting:   make(map[bmodels.BlockID]*waitingBlock),
		asked:     make(map[bmodels.BlockID]struct{}),
		discarded: discarded,
		future:    make(map[bmodels.Slot][]bmodels.Block),
		slotOwner: make(map[slotOwnerKey]bmodels.BlockID),
	}

	if boot == nil {
		if err := g.initGenesis(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := g.seedFromBootstrap(ctx, boot); err != nil {
			return nil, err
		}
	}

	g.recomputeCliques()
	g.recomputeBestParents()
	g.invariantGraphShape()
	return g, nil
}

// initGenesis creates and finalizes one genesis block per thread.
func (g *blockGraph) initGenesis(ctx context.Context) error {
	g.genesisIDs = make([]bmodels.BlockID, g.cfg.ThreadCount)
	g.latestFinals = make([]BlockParent, g.cfg.ThreadCount)

	for t := uint8(0); t < g.cfg.ThreadCount; t++ {
		b, err := createGenesisBlock(ctx, g.cfg, t)
		if err != nil {
			return fmt.Errorf("failed to create genesis block for thread %d: %w", t, err)
		}
		if err := g.store.StoreBlock(ctx, b); err != nil {
			return fmt.Errorf("failed to store genesis block for thread %d: %w", t, err)
		}

		id := b.ID()
		g.actives[id] = &activeBlock{
			Block:    b,
			Children: makeChildren(g.cfg.ThreadCount),
			IsFinal:  true,
		}
		g.genesisIDs[t] = id
		g.latestFinals[t] = BlockParent{ID: id, Period: 0}
	}

	return nil
}

// seedFromBootstrap rebuilds graph state from a bootstrap export.
// Every exported block is written to storage so collaborators can
// read it back.
func (g *blockGraph) seedFromBootstrap(ctx context.Context, boot *BootstrapableGraph) error {
	g.genesisIDs = make([]bmodels.BlockID, g.cfg.ThreadCount)

	for id, ex := range boot.ActiveBlocks {
		if err := g.store.StoreBlock(ctx, ex.Block); err != nil {
			return fmt.Errorf("failed to store bootstrapped block %s: %w", id, err)
		}

		children := makeChildren(g.cfg.ThreadCount)
		for t, m := range ex.Children {
			if t >= len(children) {
				return fmt.Errorf("bootstrapped block %s has children in thread %d beyond thread count %d", id, t, g.cfg.ThreadCount)
			}
			for cid, p := range m {
				children[t][cid] = p
			}
		}

		g.actives[id] = &activeBlock{
			Block:    ex.Block,
			Parents:  append([]BlockParent(nil), ex.Parents...),
			Children: children,
			IsFinal:  ex.IsFinal,
		}

		s := ex.Block.Slot()
		if s.Period == 0 {
			if s.Thread >= g.cfg.ThreadCount {
				return fmt.Errorf("bootstrapped genesis block %s is in thread %d beyond thread count %d", id, s.Thread, g.cfg.ThreadCount)
			}
			g.genesisIDs[s.Thread] = id
		}

		g.slotOwner[slotOwnerKey{
			Creator: ex.Block.Header.CreatorAddress(),
			Slot:    s,
		}] = id
	}

	for t, id := range g.genesisIDs {
		if id == (bmodels.BlockID{}) {
			return fmt.Errorf("bootstrap graph is missing the genesis block of thread %d", t)
		}
	}

	if len(boot.BestParents) != int(g.cfg.ThreadCount) {
		return fmt.Errorf("bootstrap graph names %d best parents, want %d", len(boot.BestParents), g.cfg.ThreadCount)
	}
	if len(boot.LatestFinalBlocks) != int(g.cfg.ThreadCount) {
		return fmt.Errorf("bootstrap graph names %d latest final blocks, want %d", len(boot.LatestFinalBlocks), g.cfg.ThreadCount)
	}
	g.bestParents = append([]bmodels.BlockID(nil), boot.BestParents...)
	g.latestFinals = append([]BlockParent(nil), boot.LatestFinalBlocks...)

	// Rebuild incompatibilities in slot order so that parents
	// are handled before their children.
	var ids []bmodels.BlockID
	for id, ab := range g.actives {
		if !ab.IsFinal {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := g.actives[ids[i]].Block.Slot(), g.actives[ids[j]].Block.Slot()
		if c := si.Cmp(sj); c != 0 {
			return c < 0
		}
		return ids[i].String() < ids[j].String()
	})
	for _, id := range ids {
		g.linkIncompatibilities(id)
	}

	return nil
}

func makeChildren(threadCount uint8) []map[bmodels.BlockID]uint64 {
	children := make([]map[bmodels.BlockID]uint64, threadCount)
	for t := range children {
		children[t] = make(map[bmodels.BlockID]uint64)
	}
	return children
}

// discard records why a block was rejected so that reappearances
// are dropped without reprocessing.
func (g *blockGraph) discard(id bmodels.BlockID, reason DiscardReason) {
	g.discarded.Add(id, reason)
	delete(g.asked, id)
}

// checkHeader classifies a header against the current graph state.
// It covers everything that can be judged without the block body
// or the parent blocks.
func (g *blockGraph) checkHeader(sh bmodels.SignedHeader) admissionStatus {
	s := sh.Content.Slot

	if s.Thread >= g.cfg.ThreadCount {
		g.log.Warn("Rejecting block in nonexistent thread", "block", sh.ID, "slot", s)
		return admissionInvalid
	}
	if s.Period == 0 {
		g.log.Warn("Rejecting non-local genesis block", "block", sh.ID)
		return admissionInvalid
	}
	if len(sh.Content.Parents) != int(g.cfg.ThreadCount) {
		g.log.Warn(
			"Rejecting block with wrong parent count",
			"block", sh.ID, "parents", len(sh.Content.Parents), "want", g.cfg.ThreadCount,
		)
		return admissionInvalid
	}

	if err := sh.Verify(); err != nil {
		blog.SLE(g.log, s.Period, s.Thread, err).Warn("Rejecting block with invalid header", "block", sh.ID)
		return admissionInvalid
	}

	creator := sh.CreatorAddress()
	if want := g.draws.draw(s); creator != want {
		g.log.Warn(
			"Rejecting block whose creator does not match the draw",
			"block", sh.ID, "slot", s, "creator", creator, "drawn", want,
		)
		return admissionInvalid
	}

	if owner, ok := g.slotOwner[slotOwnerKey{Creator: creator, Slot: s}]; ok && owner != sh.ID {
		g.log.Info(
			"Detected double block production",
			"slot", s, "creator", creator, "first", owner, "second", sh.ID,
		)
		return admissionAttack
	}

	if s.Period <= g.latestFinals[s.Thread].Period {
		return admissionStale
	}

	if s.Cmp(g.currentSlot) > 0 {
		if s.Period > g.currentSlot.Period+g.cfg.FutureBlockProcessingMaxPeriods {
			return admissionFutureFar
		}
		return admissionFutureNear
	}

	return admissionOK
}

// checkBlock classifies a full block: the header checks plus
// body commitments and endorsement signatures.
func (g *blockGraph) checkBlock(b bmodels.Block) admissionStatus {
	if st := g.checkHeader(b.Header); st != admissionOK {
		return st
	}

	if err := b.Verify(); err != nil {
		g.log.Warn("Rejecting block with invalid body", "block", b.ID(), "err", err)
		return admissionInvalid
	}

	ownParent := b.Header.Content.Parents[b.Slot().Thread]
	for i, se := range b.Header.Content.Endorsements {
		if err := se.Verify(); err != nil {
			g.log.Warn("Rejecting block with invalid endorsement", "block", b.ID(), "index", i, "err", err)
			return admissionInvalid
		}
		if se.Content.EndorsedBlock != ownParent {
			g.log.Warn(
				"Rejecting block whose endorsement does not endorse its own-thread parent",
				"block", b.ID(), "index", i, "endorsed", se.Content.EndorsedBlock,
			)
			return admissionInvalid
		}
	}

	return admissionOK
}

// receiveBlock feeds one full block into the graph.
// Returned errors are fatal storage failures.
func (g *blockGraph) receiveBlock(ctx context.Context, b bmodels.Block, out *graphOutcome) error {
	id := b.ID()

	if _, ok := g.actives[id]; ok {
		return nil
	}
	if _, ok := g.waiting[id]; ok {
		return nil
	}
	if _, ok := g.discarded.Get(id); ok {
		return nil
	}

	switch st := g.checkBlock(b); st {
	case admissionInvalid:
		g.discard(id, DiscardReasonInvalid)
		return nil
	case admissionAttack:
		out.Attacks = append(out.Attacks, id)
		g.discard(id, DiscardReasonInvalid)
		return nil
	case admissionStale:
		g.log.Debug("Discarding stale block", "block", id, "slot", b.Slot())
		g.discard(id, DiscardReasonStale)
		return nil
	case admissionFutureFar:
		g.log.Warn(
			"Dropping block from the distant future",
			"block", id, "slot", b.Slot(), "current_slot", g.currentSlot,
		)
		out.NeedSync = true
		g.discard(id, DiscardReasonDropped)
		return nil
	case admissionFutureNear:
		g.log.Debug("Queueing future block", "block", id, "slot", b.Slot())
		g.future[b.Slot()] = append(g.future[b.Slot()], b)
		return nil
	}

	return g.admitBlock(ctx, b, out)
}

// receiveHeader feeds one header into the graph. A valid header for
// an unknown block makes the graph ask for the block body.
func (g *blockGraph) receiveHeader(sh bmodels.SignedHeader, out *graphOutcome) error {
	id := sh.ID

	if _, ok := g.actives[id]; ok {
		return nil
	}
	if _, ok := g.waiting[id]; ok {
		return nil
	}
	if _, ok := g.discarded.Get(id); ok {
		return nil
	}

	switch st := g.checkHeader(sh); st {
	case admissionInvalid:
		g.discard(id, DiscardReasonInvalid)
		return nil
	case admissionAttack:
		out.Attacks = append(out.Attacks, id)
		g.discard(id, DiscardReasonInvalid)
		return nil
	case admissionStale:
		g.discard(id, DiscardReasonStale)
		return nil
	case admissionFutureFar:
		out.NeedSync = true
		g.discard(id, DiscardReasonDropped)
		return nil
	}

	// OK or near future: pull the body.
	if _, ok := g.asked[id]; !ok {
		g.asked[id] = struct{}{}
		out.WishlistNew[id] = struct{}{}
	}
	return nil
}

// admitBlock integrates a checked block, or parks it until its
// missing parents arrive.
func (g *blockGraph) admitBlock(ctx context.Context, b bmodels.Block, out *graphOutcome) error {
	id := b.ID()

	g.slotOwner[slotOwnerKey{
		Creator: b.Header.CreatorAddress(),
		Slot:    b.Slot(),
	}] = id

	missing := make(map[bmodels.BlockID]struct{})
	for _, pid := range b.Header.Content.Parents {
		if _, ok := g.actives[pid]; ok {
			continue
		}
		if _, ok := g.discarded.Get(pid); ok {
			// A block building on a discarded parent is itself unusable.
			g.log.Debug("Discarding block with discarded parent", "block", id, "parent", pid)
			g.discard(id, DiscardReasonInvalid)
			return nil
		}
		missing[pid] = struct{}{}
	}

	if len(missing) > 0 {
		if len(g.waiting) >= g.cfg.MaxDependencyBlocks {
			g.log.Warn("Dropping block, dependency buffer is full", "block", id)
			g.discard(id, DiscardReasonDropped)
			return nil
		}

		g.waiting[id] = &waitingBlock{Block: b, Missing: missing}
		for pid := range missing {
			_, isWaiting := g.waiting[pid]
			_, isAsked := g.asked[pid]
			if isWaiting || isAsked {
				continue
			}
			g.asked[pid] = struct{}{}
			out.WishlistNew[pid] = struct{}{}
		}
		return nil
	}

	return g.integrate(ctx, b, out)
}

// integrate adds a block whose parents are all active, then retries
// any blocks that were waiting on it.
func (g *blockGraph) integrate(ctx context.Context, b bmodels.Block, out *graphOutcome) error {
	id := b.ID()

	if err := g.checkParents(b); err != nil {
		g.log.Warn("Rejecting block with unusable parents", "block", id, "err", err)
		g.discard(id, DiscardReasonInvalid)
		g.wakeDependents(ctx, id, out)
		return nil
	}

	if err := g.addToGraph(ctx, b); err != nil {
		return err
	}

	s := b.Slot()
	blog.SL(g.log, s.Period, s.Thread).Info("Integrated block into graph", "block", id)
	out.Integrated = append(out.Integrated, b)
	out.GraphChanged = true

	if _, ok := g.asked[id]; ok {
		delete(g.asked, id)
		out.WishlistRemove[id] = struct{}{}
	}

	g.updateFinals(out)
	g.recomputeBestParents()
	g.invariantGraphShape()

	return g.wakeDependents(ctx, id, out)
}

// wakeDependents retries waiting blocks once id is resolved,
// whether it was integrated or discarded.
func (g *blockGraph) wakeDependents(ctx context.Context, id bmodels.BlockID, out *graphOutcome) error {
	var ready []bmodels.Block
	for wid, w := range g.waiting {
		if _, ok := w.Missing[id]; !ok {
			continue
		}
		delete(w.Missing, id)
		if len(w.Missing) == 0 {
			ready = append(ready, w.Block)
			delete(g.waiting, wid)
		}
	}

	// Deterministic cascade order.
	sort.Slice(ready, func(i, j int) bool {
		if c := ready[i].Slot().Cmp(ready[j].Slot()); c != 0 {
			return c < 0
		}
		return ready[i].ID().String() < ready[j].ID().String()
	})

	for _, w := range ready {
		// Re-admit rather than integrate directly: a discarded parent
		// must fail the block even though its dependencies resolved.
		if err := g.admitBlock(ctx, w, out); err != nil {
			return err
		}
	}
	return nil
}

// checkParents verifies the parent layout of a block whose parents
// are all active.
func (g *blockGraph) checkParents(b bmodels.Block) error {
	s := b.Slot()
	parents := b.Header.Content.Parents

	for i, pid := range parents {
		pa, ok := g.actives[pid]
		if !ok {
			return fmt.Errorf("parent %s is not active", pid)
		}
		ps := pa.Block.Slot()
		if ps.Thread != uint8(i) {
			return fmt.Errorf("parent %s fills thread slot %d but is in thread %d", pid, i, ps.Thread)
		}
		if ps.Cmp(s) >= 0 {
			return fmt.Errorf("parent %s at %v is not strictly earlier than block at %v", pid, ps, s)
		}
	}

	if own := g.actives[parents[s.Thread]]; own.Block.Slot().Period >= s.Period {
		return fmt.Errorf(
			"own-thread parent period %d is not below block period %d",
			own.Block.Slot().Period, s.Period,
		)
	}

	for i := 0; i < len(parents); i++ {
		for j := i + 1; j < len(parents); j++ {
			if g.areIncompatible(parents[i], parents[j]) {
				return fmt.Errorf("parents %s and %s are incompatible", parents[i], parents[j])
			}
		}
	}

	return nil
}

// addToGraph stores the block, links it into the graph,
// and refreshes the clique set.
func (g *blockGraph) addToGraph(ctx context.Context, b bmodels.Block) error {
	id := b.ID()

	if err := g.store.StoreBlock(ctx, b); err != nil {
		return fmt.Errorf("failed to store block %s: %w", id, err)
	}

	ab := &activeBlock{
		Block:    b,
		Parents:  make([]BlockParent, len(b.Header.Content.Parents)),
		Children: makeChildren(g.cfg.ThreadCount),
	}
	for i, pid := range b.Header.Content.Parents {
		pa := g.actives[pid]
		ab.Parents[i] = BlockParent{ID: pid, Period: pa.Block.Slot().Period}
		pa.Children[b.Slot().Thread][id] = b.Slot().Period
	}
	g.actives[id] = ab

	g.linkIncompatibilities(id)
	g.recomputeCliques()

	return nil
}

// slotTick advances the graph clock: future blocks whose slot opened
// are admitted, and if one of our staking keys won the draw for s,
// we create and integrate a block there.
func (g *blockGraph) slotTick(ctx context.Context, s bmodels.Slot, out *graphOutcome) error {
	if s.Cmp(g.currentSlot) > 0 {
		g.currentSlot = s
	}

	var due []bmodels.Slot
	for fs := range g.future {
		if fs.Cmp(g.currentSlot) <= 0 {
			due = append(due, fs)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Cmp(due[j]) < 0 })

	for _, fs := range due {
		blocks := g.future[fs]
		delete(g.future, fs)
		for _, b := range blocks {
			if err := g.receiveBlock(ctx, b, out); err != nil {
				return err
			}
		}
	}

	return g.produceAt(ctx, s, out)
}

// produceAt creates this node's block for slot s when one of its
// staking keys won the draw.
func (g *blockGraph) produceAt(ctx context.Context, s bmodels.Slot, out *graphOutcome) error {
	if s.Period == 0 {
		return nil
	}

	creator := g.draws.draw(s)
	signer, ok := g.signers[creator]
	if !ok {
		return nil
	}

	if _, ok := g.slotOwner[slotOwnerKey{Creator: creator, Slot: s}]; ok {
		// Already produced or received our own block for this slot.
		return nil
	}

	ownParent := g.actives[g.bestParents[s.Thread]]
	if ownParent.Block.Slot().Period >= s.Period {
		g.log.Debug("Skipping block production, thread head already at this period", "slot", s)
		return nil
	}

	header := bmodels.BlockHeader{
		Slot:           s,
		Parents:        append([]bmodels.BlockID(nil), g.bestParents...),
		OperationsRoot: bmodels.OperationsRoot(nil),
	}
	sh, err := bmodels.NewSignedHeader(ctx, signer, header)
	if err != nil {
		return fmt.Errorf("failed to sign produced block header: %w", err)
	}

	b := bmodels.Block{Header: sh}
	blog.SL(g.log, s.Period, s.Thread).Info("Producing block", "block", b.ID(), "creator", creator)

	return g.admitBlock(ctx, b, out)
}

// blocksAsked answers a block request. Unknown IDs map to nil.
func (g *blockGraph) blocksAsked(ctx context.Context, ids []bmodels.BlockID, out *graphOutcome) error {
	results := make(map[bmodels.BlockID]*bmodels.Block, len(ids))

	for _, id := range ids {
		if _, ok := results[id]; ok {
			continue
		}

		if ab, ok := g.actives[id]; ok {
			b := ab.Block
			results[id] = &b
			continue
		}

		b, ok, err := g.store.Block(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to look up asked block %s: %w", id, err)
		}
		if ok {
			results[id] = &b
		} else {
			results[id] = nil
		}
	}

	out.Results = results
	return nil
}

// graphStatus exports the full graph state.
func (g *blockGraph) graphStatus() BlockGraphExport {
	ex := BlockGraphExport{
		GenesisBlocks:     append([]bmodels.BlockID(nil), g.genesisIDs...),
		ActiveBlocks:      make(map[bmodels.BlockID]ExportActiveBlock, len(g.actives)),
		DiscardedBlocks:   make(map[bmodels.BlockID]DiscardReason),
		BestParents:       append([]bmodels.BlockID(nil), g.bestParents...),
		LatestFinalBlocks: append([]BlockParent(nil), g.latestFinals...),
		MaxCliques:        cloneCliques(g.maxCliques),
	}

	for id := range g.actives {
		ex.ActiveBlocks[id] = g.exportActive(id)
	}
	for _, id := range g.discarded.Keys() {
		if reason, ok := g.discarded.Peek(id); ok {
			ex.DiscardedBlocks[id] = reason
		}
	}

	return ex
}

// activeBlockExportByID exports one active block,
// reporting false when id is not active.
func (g *blockGraph) activeBlockExportByID(id bmodels.BlockID) (ExportActiveBlock, bool) {
	if _, ok := g.actives[id]; !ok {
		return ExportActiveBlock{}, false
	}
	return g.exportActive(id), true
}

// blockcliqueBlocks returns the blocks of the current blockclique.
func (g *blockGraph) blockcliqueBlocks() map[bmodels.BlockID]bmodels.Block {
	bc := g.blockcliqueSet()
	out := make(map[bmodels.BlockID]bmodels.Block, len(bc))
	for id := range bc {
		out[id] = g.actives[id].Block
	}
	return out
}

func (g *blockGraph) exportActive(id bmodels.BlockID) ExportActiveBlock {
	ab := g.actives[id]

	children := make([]map[bmodels.BlockID]uint64, len(ab.Children))
	for t, m := range ab.Children {
		children[t] = make(map[bmodels.BlockID]uint64, len(m))
		for cid, p := range m {
			children[t][cid] = p
		}
	}

	return ExportActiveBlock{
		Block:    ab.Block,
		Parents:  append([]BlockParent(nil), ab.Parents...),
		Children: children,
		IsFinal:  ab.IsFinal,
	}
}

// bootstrapState exports what a joining node needs to start
// from this node's view.
func (g *blockGraph) bootstrapState() BootstrapState {
	graph := &BootstrapableGraph{
		ActiveBlocks:      make(map[bmodels.BlockID]ExportActiveBlock, len(g.actives)),
		BestParents:       append([]bmodels.BlockID(nil), g.bestParents...),
		LatestFinalBlocks: append([]BlockParent(nil), g.latestFinals...),
	}
	for id := range g.actives {
		graph.ActiveBlocks[id] = g.exportActive(id)
	}

	rolls := make(map[bmodels.Address]uint64, len(g.draws.rolls))
	for addr, count := range g.draws.rolls {
		rolls[addr] = count
	}

	return BootstrapState{
		POS:   &ExportProofOfStake{Rolls: rolls, Seed: g.draws.seed},
		Graph: graph,
	}
}

func cloneCliques(cliques []Clique) []Clique {
	out := make([]Clique, len(cliques))
	for i, c := range cliques {
		ids := make(map[bmodels.BlockID]struct{}, len(c.BlockIDs))
		for id := range c.BlockIDs {
			ids[id] = struct{}{}
		}
		out[i] = Clique{BlockIDs: ids, Fitness: c.Fitness, IsBlockclique: c.IsBlockclique}
	}
	return out
}

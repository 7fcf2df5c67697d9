package bconsensus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/bassert/basserttest"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bcrypto/bcryptotest"
	"github.com/braid-engine/braid/bmodels"
	"github.com/braid-engine/braid/bstore/bmemstore"
	"github.com/braid-engine/braid/btime"
	"github.com/braid-engine/braid/internal/btest"
)

type graphFixture struct {
	Cfg    Config
	Store  *bmemstore.Store
	Staker bcrypto.Ed25519Signer
	Graph  *blockGraph
}

// newGraphFixture builds a two-thread graph whose sole roll holder is
// f.Staker, so every draw selects it and f.Staker can sign any block.
// currentSlot is the latest slot considered open.
func newGraphFixture(ctx context.Context, t *testing.T, currentSlot bmodels.Slot, deltaF0 uint64) *graphFixture {
	t.Helper()

	cfg := DefaultConfig()
	cfg.ThreadCount = 2
	cfg.GenesisTimestamp = btime.Now()
	cfg.DeltaF0 = deltaF0
	cfg.AssertEnv = basserttest.DefaultEnv()

	staker := bcryptotest.DeterministicEd25519Signers(1)[0]
	addr := bmodels.AddressFromPublicKey(staker.PubKey())

	draws, err := newSelectionDraws(cfg.GenesisKeySeed, map[bmodels.Address]uint64{addr: 1})
	require.NoError(t, err)

	log := btest.NewLogger(t)
	store := bmemstore.NewStore(log)

	g, err := newBlockGraph(ctx, log, cfg, store, draws, nil, nil, currentSlot)
	require.NoError(t, err)

	return &graphFixture{
		Cfg:    cfg,
		Store:  store,
		Staker: staker,
		Graph:  g,
	}
}

func (f *graphFixture) MakeBlock(
	ctx context.Context, t *testing.T,
	s bmodels.Slot, parents []bmodels.BlockID, ops []bmodels.SignedOperation,
) bmodels.Block {
	t.Helper()

	sh, err := bmodels.NewSignedHeader(ctx, f.Staker, bmodels.BlockHeader{
		Slot:           s,
		Parents:        parents,
		OperationsRoot: bmodels.OperationsRoot(ops),
	})
	require.NoError(t, err)

	return bmodels.Block{Header: sh, Operations: ops}
}

func (f *graphFixture) Receive(ctx context.Context, t *testing.T, b bmodels.Block) *graphOutcome {
	t.Helper()

	out := newGraphOutcome()
	require.NoError(t, f.Graph.receiveBlock(ctx, b, out))
	return out
}

func (f *graphFixture) Tick(ctx context.Context, t *testing.T, s bmodels.Slot) *graphOutcome {
	t.Helper()

	out := newGraphOutcome()
	require.NoError(t, f.Graph.slotTick(ctx, s, out))
	return out
}

func (f *graphFixture) Transaction(ctx context.Context, t *testing.T, amount uint64) bmodels.SignedOperation {
	t.Helper()

	op, err := bmodels.NewSignedOperation(ctx, f.Staker, bmodels.Operation{
		Fee:          bmodels.AmountFromRaw(1),
		ExpirePeriod: 100,
		Kind: bmodels.Transaction{
			Recipient: bmodels.AddressFromPublicKey(f.Staker.PubKey()),
			Amount:    bmodels.AmountFromRaw(amount),
		},
	})
	require.NoError(t, err)
	return op
}

func TestBlockGraph_genesisInitialization(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	require.Len(t, g.actives, 2)
	for thr, id := range g.genesisIDs {
		ab, ok := g.actives[id]
		require.True(t, ok)
		require.True(t, ab.IsFinal)
		require.Equal(t, bmodels.NewSlot(0, uint8(thr)), ab.Block.Slot())

		has, err := f.Store.HasBlock(ctx, id)
		require.NoError(t, err)
		require.True(t, has)
	}

	require.Equal(t, g.genesisIDs, g.bestParents)
	for thr, lf := range g.latestFinals {
		require.Equal(t, g.genesisIDs[thr], lf.ID)
		require.Zero(t, lf.Period)
	}

	// No non-final blocks yet: a single empty blockclique.
	require.Len(t, g.maxCliques, 1)
	require.True(t, g.maxCliques[0].IsBlockclique)
	require.Empty(t, g.maxCliques[0].BlockIDs)
}

func TestBlockGraph_integratesBlockWithGenesisParents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	out := f.Receive(ctx, t, b)

	require.Len(t, out.Integrated, 1)
	require.Equal(t, b.ID(), out.Integrated[0].ID())
	require.True(t, out.GraphChanged)
	require.Empty(t, out.WishlistNew)
	require.Empty(t, out.Attacks)

	require.Contains(t, g.actives, b.ID())
	require.Equal(t, b.ID(), g.bestParents[0])
	require.Equal(t, g.genesisIDs[1], g.bestParents[1])

	has, err := f.Store.HasBlock(ctx, b.ID())
	require.NoError(t, err)
	require.True(t, has)

	require.Len(t, g.maxCliques, 1)
	require.Contains(t, g.maxCliques[0].BlockIDs, b.ID())

	// The parent in thread 0 now records the child.
	require.Contains(t, g.actives[g.genesisIDs[0]].Children[0], b.ID())
}

func TestBlockGraph_queuesBlockUntilParentsArrive(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b1 := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	b2 := f.MakeBlock(ctx, t, bmodels.NewSlot(2, 0), []bmodels.BlockID{b1.ID(), g.genesisIDs[1]}, nil)

	// The child first: it must wait and ask for b1.
	out := f.Receive(ctx, t, b2)
	require.Empty(t, out.Integrated)
	require.Contains(t, out.WishlistNew, b1.ID())
	require.Len(t, out.WishlistNew, 1)
	require.Contains(t, g.waiting, b2.ID())

	// The parent resolves both, in order, and retracts the ask.
	out = f.Receive(ctx, t, b1)
	require.Len(t, out.Integrated, 2)
	require.Equal(t, b1.ID(), out.Integrated[0].ID())
	require.Equal(t, b2.ID(), out.Integrated[1].ID())
	require.Contains(t, out.WishlistRemove, b1.ID())
	require.Empty(t, g.waiting)
	require.Empty(t, g.asked)

	require.Equal(t, b2.ID(), g.bestParents[0])
}

func TestBlockGraph_discardsTamperedBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	// Smuggle in an operation the header never committed to.
	b.Operations = []bmodels.SignedOperation{f.Transaction(ctx, t, 5)}

	out := f.Receive(ctx, t, b)
	require.Empty(t, out.Integrated)
	require.Empty(t, out.WishlistNew)

	reason, ok := g.discarded.Peek(b.ID())
	require.True(t, ok)
	require.Equal(t, DiscardReasonInvalid, reason)
	require.NotContains(t, g.actives, b.ID())
}

func TestBlockGraph_discardsWrongCreator(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	// Signed by a key that holds no rolls, so it cannot win the draw.
	outsider := bcryptotest.DeterministicEd25519Signers(2)[1]
	sh, err := bmodels.NewSignedHeader(ctx, outsider, bmodels.BlockHeader{
		Slot:           bmodels.NewSlot(1, 0),
		Parents:        g.genesisIDs,
		OperationsRoot: bmodels.OperationsRoot(nil),
	})
	require.NoError(t, err)

	out := f.Receive(ctx, t, bmodels.Block{Header: sh})
	require.Empty(t, out.Integrated)

	reason, ok := g.discarded.Peek(sh.ID)
	require.True(t, ok)
	require.Equal(t, DiscardReasonInvalid, reason)
}

func TestBlockGraph_detectsDoubleProduction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	s := bmodels.NewSlot(1, 0)
	first := f.MakeBlock(ctx, t, s, g.genesisIDs, nil)
	second := f.MakeBlock(ctx, t, s, g.genesisIDs, []bmodels.SignedOperation{f.Transaction(ctx, t, 9)})
	require.NotEqual(t, first.ID(), second.ID())

	out := f.Receive(ctx, t, first)
	require.Len(t, out.Integrated, 1)
	require.Empty(t, out.Attacks)

	out = f.Receive(ctx, t, second)
	require.Empty(t, out.Integrated)
	require.Equal(t, []bmodels.BlockID{second.ID()}, out.Attacks)

	reason, ok := g.discarded.Peek(second.ID())
	require.True(t, ok)
	require.Equal(t, DiscardReasonInvalid, reason)

	// The first block keeps its place.
	require.Contains(t, g.actives, first.ID())
}

func TestBlockGraph_discardsStaleBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b := f.MakeBlock(ctx, t, bmodels.NewSlot(3, 0), g.genesisIDs, nil)

	// Pretend thread 0 finalized past the block's period.
	g.latestFinals[0] = BlockParent{ID: g.genesisIDs[0], Period: 5}

	out := f.Receive(ctx, t, b)
	require.Empty(t, out.Integrated)

	reason, ok := g.discarded.Peek(b.ID())
	require.True(t, ok)
	require.Equal(t, DiscardReasonStale, reason)
}

func TestBlockGraph_parksFutureBlockUntilItsSlot(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(1, 0), 64)
	g := f.Graph

	b1 := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	require.Len(t, f.Receive(ctx, t, b1).Integrated, 1)

	b2 := f.MakeBlock(ctx, t, bmodels.NewSlot(2, 0), []bmodels.BlockID{b1.ID(), g.genesisIDs[1]}, nil)
	out := f.Receive(ctx, t, b2)
	require.Empty(t, out.Integrated)
	require.NotContains(t, g.waiting, b2.ID())
	require.Contains(t, g.future, b2.Slot())

	// Not due yet at (1, 1).
	out = f.Tick(ctx, t, bmodels.NewSlot(1, 1))
	require.Empty(t, out.Integrated)

	out = f.Tick(ctx, t, bmodels.NewSlot(2, 0))
	require.Len(t, out.Integrated, 1)
	require.Equal(t, b2.ID(), out.Integrated[0].ID())
	require.Empty(t, g.future)
}

func TestBlockGraph_needSyncOnDistantFuture(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(1, 0), 64)
	g := f.Graph

	far := bmodels.NewSlot(1+g.cfg.FutureBlockProcessingMaxPeriods+1, 0)
	b := f.MakeBlock(ctx, t, far, g.genesisIDs, nil)

	out := f.Receive(ctx, t, b)
	require.True(t, out.NeedSync)
	require.Empty(t, out.Integrated)

	reason, ok := g.discarded.Peek(b.ID())
	require.True(t, ok)
	require.Equal(t, DiscardReasonDropped, reason)
}

func TestBlockGraph_crossThreadBlocksShareClique(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	bA := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	bB := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 1), g.genesisIDs, nil)

	f.Receive(ctx, t, bA)
	f.Receive(ctx, t, bB)

	// Both build on genesis in each other's thread: one consistent
	// history, one clique.
	require.False(t, g.areIncompatible(bA.ID(), bB.ID()))
	require.Len(t, g.maxCliques, 1)
	require.Contains(t, g.maxCliques[0].BlockIDs, bA.ID())
	require.Contains(t, g.maxCliques[0].BlockIDs, bB.ID())

	require.Equal(t, []bmodels.BlockID{bA.ID(), bB.ID()}, g.bestParents)
}

func TestBlockGraph_forkSplitsCliques(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	// Two thread-0 blocks that ignore each other fork the thread.
	bA := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	bA2 := f.MakeBlock(ctx, t, bmodels.NewSlot(2, 0), g.genesisIDs, nil)

	f.Receive(ctx, t, bA)
	f.Receive(ctx, t, bA2)

	require.True(t, g.areIncompatible(bA.ID(), bA2.ID()))
	require.Len(t, g.maxCliques, 2)

	var blockcliques int
	for _, c := range g.maxCliques {
		if c.IsBlockclique {
			blockcliques++
		}
	}
	require.Equal(t, 1, blockcliques)

	// Extending bA makes its clique the heaviest.
	bNext := f.MakeBlock(ctx, t, bmodels.NewSlot(3, 0), []bmodels.BlockID{bA.ID(), g.genesisIDs[1]}, nil)
	f.Receive(ctx, t, bNext)

	bc := g.blockcliqueSet()
	require.Contains(t, bc, bA.ID())
	require.Contains(t, bc, bNext.ID())
	require.NotContains(t, bc, bA2.ID())
	require.Equal(t, bNext.ID(), g.bestParents[0])
}

func TestBlockGraph_rejectsIncompatibleParents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	bA := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	bA2 := f.MakeBlock(ctx, t, bmodels.NewSlot(2, 0), g.genesisIDs, nil)
	f.Receive(ctx, t, bA)
	f.Receive(ctx, t, bA2)

	// A thread-1 block naming bA as the thread-0 head is committed
	// against bA2.
	bB := f.MakeBlock(ctx, t, bmodels.NewSlot(3, 1), []bmodels.BlockID{bA.ID(), g.genesisIDs[1]}, nil)
	f.Receive(ctx, t, bB)
	require.True(t, g.areIncompatible(bB.ID(), bA2.ID()))

	// Naming both sides of the fork as parents is invalid.
	bad := f.MakeBlock(ctx, t, bmodels.NewSlot(4, 1), []bmodels.BlockID{bA2.ID(), bB.ID()}, nil)
	out := f.Receive(ctx, t, bad)
	require.Empty(t, out.Integrated)

	reason, ok := g.discarded.Peek(bad.ID())
	require.True(t, ok)
	require.Equal(t, DiscardReasonInvalid, reason)
}

func TestBlockGraph_finalizesAfterEnoughDescendantFitness(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 2)
	g := f.Graph

	prev := g.genesisIDs[0]
	var blocks []bmodels.Block
	for period := uint64(1); period <= 4; period++ {
		b := f.MakeBlock(ctx, t, bmodels.NewSlot(period, 0), []bmodels.BlockID{prev, g.genesisIDs[1]}, nil)
		blocks = append(blocks, b)
		prev = b.ID()
	}

	f.Receive(ctx, t, blocks[0])
	f.Receive(ctx, t, blocks[1])
	out := f.Receive(ctx, t, blocks[2])
	require.Empty(t, out.NewFinals)

	// The fourth block gives the first one three descendants,
	// beating DeltaF0.
	out = f.Receive(ctx, t, blocks[3])
	require.Contains(t, out.NewFinals, blocks[0].ID())
	require.Len(t, out.NewFinals, 1)

	require.True(t, g.actives[blocks[0].ID()].IsFinal)
	require.False(t, g.actives[blocks[1].ID()].IsFinal)
	require.Equal(t, BlockParent{ID: blocks[0].ID(), Period: 1}, g.latestFinals[0])
	require.NotContains(t, g.gi, blocks[0].ID())
}

func TestBlockGraph_producesAtOwnDraw(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(0, 1), 64)
	g := f.Graph

	// Hand the graph the staking key; it holds all the rolls,
	// so every draw is ours.
	addr := bmodels.AddressFromPublicKey(f.Staker.PubKey())
	g.signers = map[bmodels.Address]bcrypto.Ed25519Signer{addr: f.Staker}

	out := f.Tick(ctx, t, bmodels.NewSlot(1, 0))
	require.Len(t, out.Integrated, 1)
	produced := out.Integrated[0]
	require.Equal(t, bmodels.NewSlot(1, 0), produced.Slot())
	require.Equal(t, addr, produced.Header.CreatorAddress())
	require.Empty(t, produced.Operations)

	// The next thread's slot builds on what was just produced.
	out = f.Tick(ctx, t, bmodels.NewSlot(1, 1))
	require.Len(t, out.Integrated, 1)
	require.Equal(t, produced.ID(), out.Integrated[0].Header.Content.Parents[0])

	// Re-ticking the same slot does not produce twice.
	out = f.Tick(ctx, t, bmodels.NewSlot(1, 1))
	require.Empty(t, out.Integrated)
}

func TestBlockGraph_answersBlockRequests(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	f.Receive(ctx, t, b)

	unknown, err := bmodels.BlockIDFromString(
		"00000000000000000000000000000000000000000000000000000000000000aa",
	)
	require.NoError(t, err)

	out := newGraphOutcome()
	require.NoError(t, g.blocksAsked(ctx, []bmodels.BlockID{b.ID(), unknown}, out))

	require.Len(t, out.Results, 2)
	require.NotNil(t, out.Results[b.ID()])
	require.Equal(t, b.ID(), out.Results[b.ID()].ID())

	res, ok := out.Results[unknown]
	require.True(t, ok)
	require.Nil(t, res)
}

func TestBlockGraph_bootstrapRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newGraphFixture(ctx, t, bmodels.NewSlot(10, 0), 64)
	g := f.Graph

	b1 := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 0), g.genesisIDs, nil)
	b2 := f.MakeBlock(ctx, t, bmodels.NewSlot(1, 1), g.genesisIDs, nil)
	f.Receive(ctx, t, b1)
	f.Receive(ctx, t, b2)

	state := g.bootstrapState()
	require.NotNil(t, state.POS)
	require.NotNil(t, state.Graph)
	require.Len(t, state.Graph.ActiveBlocks, 4)

	// A second node seeded from the export continues the graph.
	log := btest.NewLogger(t)
	store2 := bmemstore.NewStore(log)
	g2, err := newBlockGraph(
		ctx, log, f.Cfg, store2, g.draws, nil, state.Graph, bmodels.NewSlot(10, 0),
	)
	require.NoError(t, err)

	require.Equal(t, g.genesisIDs, g2.genesisIDs)
	require.Equal(t, g.bestParents, g2.bestParents)
	require.Equal(t, g.latestFinals, g2.latestFinals)

	has, err := store2.HasBlock(ctx, b1.ID())
	require.NoError(t, err)
	require.True(t, has)

	b3 := f.MakeBlock(ctx, t, bmodels.NewSlot(2, 0), []bmodels.BlockID{b1.ID(), b2.ID()}, nil)
	out := newGraphOutcome()
	require.NoError(t, g2.receiveBlock(ctx, b3, out))
	require.Len(t, out.Integrated, 1)
}

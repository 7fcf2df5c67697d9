package bconsensus

import (
	"github.com/braid-engine/braid/bmodels"
)

// Bootstrap carries the optional state a node starts from
// when it joins the network mid-flight instead of at genesis.
// Nil fields mean "start from genesis".
type Bootstrap struct {
	POS   *ExportProofOfStake
	Graph *BootstrapableGraph
}

// ExportProofOfStake is the portable snapshot of the stake used
// for the selection draws.
type ExportProofOfStake struct {
	// Roll count per address. Only addresses with at least one roll
	// participate in the draws.
	Rolls map[bmodels.Address]uint64 `json:"rolls"`

	// Seed mixed into the draws, so that two networks with the same
	// roll distribution do not share a creator schedule.
	Seed string `json:"seed"`
}

// BlockParent references a parent block together with its period,
// so that a bootstrapping node can order parents without
// fetching the parent blocks first.
type BlockParent struct {
	ID     bmodels.BlockID `json:"id"`
	Period uint64          `json:"period"`
}

// ExportActiveBlock is the portable form of one active graph block.
type ExportActiveBlock struct {
	Block bmodels.Block `json:"block"`

	// One entry per thread; empty for genesis blocks.
	Parents []BlockParent `json:"parents"`

	// Children known so far, one map per thread, child ID to period.
	Children []map[bmodels.BlockID]uint64 `json:"children"`

	IsFinal bool `json:"is_final"`
}

// BootstrapableGraph is the portable snapshot of the block graph,
// sufficient to restart a node without replaying from genesis.
type BootstrapableGraph struct {
	ActiveBlocks map[bmodels.BlockID]ExportActiveBlock `json:"active_blocks"`

	// Preferred parent per thread at export time.
	BestParents []bmodels.BlockID `json:"best_parents"`

	// Latest final block per thread.
	LatestFinalBlocks []BlockParent `json:"latest_final_blocks"`
}

// BootstrapState pairs the stake snapshot with the graph snapshot,
// as served to a bootstrapping peer. Its fields slot directly into a
// [Bootstrap] for the next node's start.
type BootstrapState struct {
	POS   *ExportProofOfStake `json:"pos"`
	Graph *BootstrapableGraph `json:"graph"`
}

// DiscardReason says why a block was removed from circulation.
type DiscardReason string

const (
	// The block failed a structural or signature check,
	// or lost a double-production conflict.
	DiscardReasonInvalid DiscardReason = "invalid"

	// The block's slot is at or below the latest final period of its thread.
	DiscardReasonStale DiscardReason = "stale"

	// The block was dropped to bound the dependency-wait set.
	DiscardReasonDropped DiscardReason = "dropped"
)

// Clique is one maximal set of mutually compatible active blocks.
type Clique struct {
	BlockIDs map[bmodels.BlockID]struct{} `json:"block_ids"`

	// Sum of the fitness of the member blocks.
	Fitness uint64 `json:"fitness"`

	// True for the clique the engine currently builds on.
	IsBlockclique bool `json:"is_blockclique"`
}

// BlockGraphExport is a full picture of the engine's graph state,
// returned by [CommandSender.GetBlockGraphStatus].
type BlockGraphExport struct {
	// Genesis block per thread.
	GenesisBlocks []bmodels.BlockID `json:"genesis_blocks"`

	ActiveBlocks map[bmodels.BlockID]ExportActiveBlock `json:"active_blocks"`

	DiscardedBlocks map[bmodels.BlockID]DiscardReason `json:"discarded_blocks"`

	BestParents []bmodels.BlockID `json:"best_parents"`

	LatestFinalBlocks []BlockParent `json:"latest_final_blocks"`

	MaxCliques []Clique `json:"max_cliques"`
}

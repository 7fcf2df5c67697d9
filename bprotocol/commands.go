// Package bprotocol defines the channel link between the consensus engine
// and the protocol controller that drives block exchange with peers.
//
// Commands flow out of the engine toward the protocol controller,
// and events flow from the protocol controller into the engine.
// Both directions share a single ordered channel per direction,
// so observers see commands in exactly the order the engine issued them.
package bprotocol

import (
	"github.com/braid-engine/braid/bmodels"
)

// Command is a single directive from the consensus engine
// to the protocol controller.
//
// Exactly one of the fields must be set.
type Command struct {
	IntegratedBlock     *IntegratedBlock
	WishlistDelta       *WishlistDelta
	AttackBlockDetected *AttackBlockDetected
	BlocksResults       *BlocksResults
}

// Kind returns a short name for the populated field, for logging.
func (c Command) Kind() string {
	switch {
	case c.IntegratedBlock != nil:
		return "integrated_block"
	case c.WishlistDelta != nil:
		return "wishlist_delta"
	case c.AttackBlockDetected != nil:
		return "attack_block_detected"
	case c.BlocksResults != nil:
		return "blocks_results"
	default:
		return "(empty)"
	}
}

// IntegratedBlock announces a block that the engine has just added
// to its active graph, so the protocol controller can propagate it to peers.
type IntegratedBlock struct {
	ID    bmodels.BlockID
	Block bmodels.Block
}

// WishlistDelta adjusts the set of blocks the engine wants
// retrieved from peers.
//
// New holds block IDs to begin asking for,
// and Remove holds block IDs that no longer need to be retrieved,
// typically because they have arrived or been discarded.
type WishlistDelta struct {
	New    map[bmodels.BlockID]struct{}
	Remove map[bmodels.BlockID]struct{}
}

// AttackBlockDetected reports a block the engine judged malicious,
// such as a second block produced by one creator for the same slot.
// The protocol controller is expected to ban the sender.
type AttackBlockDetected struct {
	ID bmodels.BlockID
}

// BlocksResults answers an earlier [BlocksAsked] event.
//
// Every requested block ID has an entry in Results.
// A nil value means the engine does not have that block.
type BlocksResults struct {
	Results map[bmodels.BlockID]*bmodels.Block
}

package bprotocol

import (
	"github.com/braid-engine/braid/bmodels"
)

// Event is a single notification from the protocol controller
// to the consensus engine.
//
// Exactly one of the fields must be set.
type Event struct {
	ReceivedBlock  *ReceivedBlock
	ReceivedHeader *ReceivedHeader
	BlocksAsked    *BlocksAsked
}

// Kind returns a short name for the populated field, for logging.
func (e Event) Kind() string {
	switch {
	case e.ReceivedBlock != nil:
		return "received_block"
	case e.ReceivedHeader != nil:
		return "received_header"
	case e.BlocksAsked != nil:
		return "blocks_asked"
	default:
		return "(empty)"
	}
}

// ReceivedBlock carries a full block received from a peer.
type ReceivedBlock struct {
	Block bmodels.Block
}

// ReceivedHeader carries a block header received from a peer,
// without the block body.
type ReceivedHeader struct {
	Header bmodels.SignedHeader
}

// BlocksAsked reports that peers asked this node for the listed blocks.
// The engine answers with a single [BlocksResults] command
// holding one entry per requested ID.
type BlocksAsked struct {
	IDs []bmodels.BlockID
}

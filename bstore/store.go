// Package bstore defines the shared block storage
// that the consensus worker and its collaborators read and write.
package bstore

import (
	"context"

	"github.com/braid-engine/braid/bmodels"
)

// Storage is shared block storage.
// Implementations must be safe for concurrent use:
// the worker writes while collaborators and test bodies read.
//
// StoreBlock is idempotent for a given block ID.
type Storage interface {
	StoreBlock(ctx context.Context, block bmodels.Block) error

	// Block returns the stored block and true, or the zero block and false
	// when id is unknown.
	Block(ctx context.Context, id bmodels.BlockID) (bmodels.Block, bool, error)

	HasBlock(ctx context.Context, id bmodels.BlockID) (bool, error)

	// BlockIDs returns the IDs of every stored block, in no particular order.
	BlockIDs(ctx context.Context) ([]bmodels.BlockID, error)

	// PruneBlocks removes the given blocks if present.
	// Unknown IDs are ignored.
	PruneBlocks(ctx context.Context, ids []bmodels.BlockID) error
}

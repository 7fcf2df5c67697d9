package bmodels

import (
	"fmt"

	"github.com/braid-engine/braid/bcrypto"
)

// BlockHeader is the signed portion of a block.
// Parents names exactly one parent block per thread, in thread order.
type BlockHeader struct {
	Slot           Slot                `json:"slot"`
	Parents        []BlockID           `json:"parents"`
	OperationsRoot bcrypto.Hash        `json:"operations_root"`
	Endorsements   []SignedEndorsement `json:"endorsements"`
}

// Block is a signed header plus the operations the header commits to.
// A block has no identity of its own; its ID is the header's ID.
type Block struct {
	Header     SignedHeader      `json:"header"`
	Operations []SignedOperation `json:"operations"`
}

func (b Block) ID() BlockID {
	return b.Header.ID
}

func (b Block) Slot() Slot {
	return b.Header.Content.Slot
}

// Verify checks the header signature, the operations root commitment,
// and each operation's own signature.
func (b Block) Verify() error {
	if err := b.Header.Verify(); err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}

	if got := OperationsRoot(b.Operations); got != b.Header.Content.OperationsRoot {
		return fmt.Errorf(
			"operations root mismatch: header commits to %s, operations hash to %s",
			b.Header.Content.OperationsRoot, got,
		)
	}

	for i, op := range b.Operations {
		if err := op.Verify(); err != nil {
			return fmt.Errorf("invalid operation at index %d: %w", i, err)
		}
	}

	return nil
}

// OperationsRoot returns the commitment a header makes to its operations:
// the hash of the concatenated operation IDs, in block order.
func OperationsRoot(ops []SignedOperation) bcrypto.Hash {
	buf := make([]byte, 0, len(ops)*bcrypto.HashSize)
	for _, op := range ops {
		buf = append(buf, op.ID.Bytes()...)
	}
	return bcrypto.ComputeHash(buf)
}

package bconsensus

import (
	"context"
	"fmt"

	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
)

// genesisSigner derives the deterministic signer for
// the genesis block of one thread.
func genesisSigner(seed string, thread uint8) (bcrypto.Ed25519Signer, error) {
	h := bcrypto.ComputeHash([]byte(fmt.Sprintf("%s/genesis/%d", seed, thread)))
	return bcrypto.NewEd25519SignerFromSeed(h.Bytes())
}

// createGenesisBlock builds and signs the genesis block for one thread.
// Genesis blocks have no parents and no operations,
// and every node derives identical copies from the configured seed.
func createGenesisBlock(ctx context.Context, cfg Config, thread uint8) (bmodels.Block, error) {
	signer, err := genesisSigner(cfg.GenesisKeySeed, thread)
	if err != nil {
		return bmodels.Block{}, fmt.Errorf("derive genesis signer for thread %d: %w", thread, err)
	}

	header := bmodels.BlockHeader{
		Slot:           bmodels.NewSlot(0, thread),
		OperationsRoot: bmodels.OperationsRoot(nil),
	}

	sh, err := bmodels.NewSignedHeader(ctx, signer, header)
	if err != nil {
		return bmodels.Block{}, fmt.Errorf("sign genesis header for thread %d: %w", thread, err)
	}

	return bmodels.Block{Header: sh}, nil
}

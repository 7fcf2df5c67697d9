package bconsensustest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braid-engine/braid/bconsensus"
	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bmodels"
)

// CreateKeyPair returns a fresh random signing key.
func CreateKeyPair(t *testing.T) bcrypto.Ed25519Signer {
	t.Helper()

	s, err := bcrypto.GenerateEd25519Signer()
	require.NoError(t, err, "failed to generate signing key")
	return s
}

// RandomAddress returns an address no key in the test controls.
func RandomAddress(t *testing.T) bmodels.Address {
	t.Helper()
	return bmodels.AddressFromPublicKey(CreateKeyPair(t).PubKey())
}

// RandomAddressOnThread returns a random address that maps to thread
// under the given thread count.
func RandomAddressOnThread(t *testing.T, threadCount, thread uint8) bmodels.Address {
	t.Helper()

	for {
		a := RandomAddress(t)
		if a.Thread(threadCount) == thread {
			return a
		}
	}
}

// CreateBlock builds an empty block at s on parents, signed by creator.
func CreateBlock(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, s bmodels.Slot, parents []bmodels.BlockID,
) bmodels.Block {
	t.Helper()
	return CreateBlockWithOperations(ctx, t, creator, s, parents, nil)
}

// CreateBlockWithOperations builds a block at s carrying ops,
// signed by creator.
func CreateBlockWithOperations(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, s bmodels.Slot, parents []bmodels.BlockID,
	ops []bmodels.SignedOperation,
) bmodels.Block {
	t.Helper()
	return CreateBlockWithEndorsements(ctx, t, creator, s, parents, ops, nil)
}

// CreateBlockWithEndorsements builds a block at s carrying ops and
// header endorsements, signed by creator.
func CreateBlockWithEndorsements(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, s bmodels.Slot, parents []bmodels.BlockID,
	ops []bmodels.SignedOperation, endorsements []bmodels.SignedEndorsement,
) bmodels.Block {
	t.Helper()

	sh, err := bmodels.NewSignedHeader(ctx, creator, bmodels.BlockHeader{
		Slot:           s,
		Parents:        parents,
		OperationsRoot: bmodels.OperationsRoot(ops),
		Endorsements:   endorsements,
	})
	require.NoError(t, err, "failed to sign block header at slot %v", s)

	return bmodels.Block{Header: sh, Operations: ops}
}

// CreateEndorsement signs an endorsement of endorsed at slot s under index.
func CreateEndorsement(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, s bmodels.Slot, index uint32, endorsed bmodels.BlockID,
) bmodels.SignedEndorsement {
	t.Helper()

	se, err := bmodels.NewSignedEndorsement(ctx, creator, bmodels.Endorsement{
		Slot:          s,
		Index:         index,
		EndorsedBlock: endorsed,
	})
	require.NoError(t, err, "failed to sign endorsement at slot %v", s)
	return se
}

// CreateTransaction signs a coin transfer from creator to recipient.
func CreateTransaction(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, recipient bmodels.Address,
	amount, fee, expirePeriod uint64,
) bmodels.SignedOperation {
	t.Helper()

	return signOperation(ctx, t, creator, fee, expirePeriod, bmodels.Transaction{
		Recipient: recipient,
		Amount:    bmodels.AmountFromRaw(amount),
	})
}

// CreateRollBuy signs a purchase of count rolls by creator.
func CreateRollBuy(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, count, fee, expirePeriod uint64,
) bmodels.SignedOperation {
	t.Helper()
	return signOperation(ctx, t, creator, fee, expirePeriod, bmodels.RollBuy{Count: count})
}

// CreateRollSell signs a sale of count rolls by creator.
func CreateRollSell(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, count, fee, expirePeriod uint64,
) bmodels.SignedOperation {
	t.Helper()
	return signOperation(ctx, t, creator, fee, expirePeriod, bmodels.RollSell{Count: count})
}

// CreateExecuteSC signs a smart contract execution carrying data.
func CreateExecuteSC(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, data []byte,
	maxGas, gasPrice, coins, fee, expirePeriod uint64,
) bmodels.SignedOperation {
	t.Helper()

	return signOperation(ctx, t, creator, fee, expirePeriod, bmodels.ExecuteSC{
		Data:     data,
		MaxGas:   maxGas,
		GasPrice: bmodels.AmountFromRaw(gasPrice),
		Coins:    bmodels.AmountFromRaw(coins),
	})
}

func signOperation(
	ctx context.Context, t *testing.T,
	creator bcrypto.Ed25519Signer, fee, expirePeriod uint64, kind bmodels.OperationKind,
) bmodels.SignedOperation {
	t.Helper()

	op, err := bmodels.NewSignedOperation(ctx, creator, bmodels.Operation{
		Fee:          bmodels.AmountFromRaw(fee),
		ExpirePeriod: expirePeriod,
		Kind:         kind,
	})
	require.NoError(t, err, "failed to sign operation")
	return op
}

// GetDummyBlockID derives a block ID from seed.
// No real block hashes to it, so it is safe to use as an unknown block.
func GetDummyBlockID(seed string) bmodels.BlockID {
	return bmodels.BlockID(bcrypto.ComputeHash([]byte(seed)))
}

// GetExportActiveTestBlock wraps a built block in the export form used
// by bootstrap graphs. Children are left empty; tests wiring multi-level
// bootstrap graphs fill them in afterward.
func GetExportActiveTestBlock(block bmodels.Block, parents []bconsensus.BlockParent, isFinal bool) bconsensus.ExportActiveBlock {
	return bconsensus.ExportActiveBlock{
		Block:   block,
		Parents: parents,
		IsFinal: isFinal,
	}
}

// LoadInitialStakingKeys reads an encrypted staking key file written by
// test setup, failing the test on any error. A missing file yields no
// keys, matching how the engine treats it.
func LoadInitialStakingKeys(t *testing.T, path, password string) []bcrypto.Ed25519Signer {
	t.Helper()

	keys, err := bconsensus.LoadStakingKeys(path, password)
	require.NoError(t, err, "failed to load staking keys from %s", path)
	return keys
}

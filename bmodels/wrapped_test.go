package bmodels_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/braid-engine/braid/bcrypto"
	"github.com/braid-engine/braid/bcrypto/bcryptotest"
	"github.com/braid-engine/braid/bmodels"
	"github.com/stretchr/testify/require"
)

func TestSignedHeader_verify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	signers := bcryptotest.DeterministicEd25519Signers(2)

	header := bmodels.BlockHeader{
		Slot:           bmodels.NewSlot(3, 1),
		Parents:        []bmodels.BlockID{{1}, {2}},
		OperationsRoot: bmodels.OperationsRoot(nil),
	}

	sh, err := bmodels.NewSignedHeader(ctx, signers[0], header)
	require.NoError(t, err)
	require.NoError(t, sh.Verify())

	// Same content signed by the same key yields the same ID.
	again, err := bmodels.NewSignedHeader(ctx, signers[0], header)
	require.NoError(t, err)
	require.Equal(t, sh.ID, again.ID)

	// A different signer yields a different ID.
	other, err := bmodels.NewSignedHeader(ctx, signers[1], header)
	require.NoError(t, err)
	require.NotEqual(t, sh.ID, other.ID)

	// Tampering with the content is detected.
	tampered := sh
	tampered.Content.Slot = bmodels.NewSlot(4, 1)
	require.ErrorIs(t, tampered.Verify(), bcrypto.ErrInvalidSignature)

	// Claiming another creator is detected.
	forged := sh
	forged.Creator = signers[1].PubKey()
	require.ErrorIs(t, forged.Verify(), bcrypto.ErrInvalidSignature)
}

func TestSignedHeader_jsonRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	signer := bcryptotest.DeterministicEd25519Signers(1)[0]

	sh, err := bmodels.NewSignedHeader(ctx, signer, bmodels.BlockHeader{
		Slot:           bmodels.NewSlot(9, 0),
		Parents:        []bmodels.BlockID{{0xaa}, {0xbb}},
		OperationsRoot: bmodels.OperationsRoot(nil),
	})
	require.NoError(t, err)

	raw, err := json.Marshal(sh)
	require.NoError(t, err)

	var back bmodels.SignedHeader
	require.NoError(t, json.Unmarshal(raw, &back))

	require.Equal(t, sh.ID, back.ID)
	require.Equal(t, sh.Content, back.Content)
	require.True(t, sh.Creator.Equal(back.Creator))
	require.NoError(t, back.Verify())
}

func TestBlock_verify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	signer := bcryptotest.DeterministicEd25519Signers(1)[0]

	op, err := bmodels.NewSignedOperation(ctx, signer, bmodels.Operation{
		Fee:          bmodels.AmountFromRaw(1),
		ExpirePeriod: 10,
		Kind: bmodels.Transaction{
			Recipient: bmodels.Address{5},
			Amount:    bmodels.AmountFromRaw(100),
		},
	})
	require.NoError(t, err)

	ops := []bmodels.SignedOperation{op}

	header, err := bmodels.NewSignedHeader(ctx, signer, bmodels.BlockHeader{
		Slot:           bmodels.NewSlot(1, 0),
		Parents:        []bmodels.BlockID{{1}, {2}},
		OperationsRoot: bmodels.OperationsRoot(ops),
	})
	require.NoError(t, err)

	blk := bmodels.Block{Header: header, Operations: ops}
	require.NoError(t, blk.Verify())
	require.Equal(t, header.ID, blk.ID())

	// A block whose header commits to a different operation set fails.
	missing := bmodels.Block{Header: header}
	require.Error(t, missing.Verify())
}

func TestOperation_jsonRoundTrip(t *testing.T) {
	t.Parallel()

	for name, kind := range map[string]bmodels.OperationKind{
		"transaction": bmodels.Transaction{Recipient: bmodels.Address{7}, Amount: bmodels.AmountFromRaw(42)},
		"roll buy":    bmodels.RollBuy{Count: 3},
		"roll sell":   bmodels.RollSell{Count: 2},
		"execute sc":  bmodels.ExecuteSC{Data: []byte{1, 2, 3}, MaxGas: 10_000, GasPrice: bmodels.AmountFromRaw(1), Coins: bmodels.AmountFromRaw(0)},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			op := bmodels.Operation{
				Fee:          bmodels.AmountFromRaw(5),
				ExpirePeriod: 77,
				Kind:         kind,
			}

			raw, err := json.Marshal(op)
			require.NoError(t, err)

			var back bmodels.Operation
			require.NoError(t, json.Unmarshal(raw, &back))
			require.Equal(t, op, back)
		})
	}
}

func TestAddress_thread(t *testing.T) {
	t.Parallel()

	signer := bcryptotest.DeterministicEd25519Signers(1)[0]
	addr := bmodels.AddressFromPublicKey(signer.PubKey())

	// Derivation is stable.
	require.Equal(t, addr, bmodels.AddressFromPublicKey(signer.PubKey()))

	// The thread is always within range.
	for _, tc := range []uint8{1, 2, 8, 32} {
		require.Less(t, addr.Thread(tc), tc)
	}

	parsed, err := bmodels.AddressFromString(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

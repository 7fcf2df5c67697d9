package bmodels

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/braid-engine/braid/bcrypto"
)

// The signed wrappers bind content to a creator key.
// The signature covers the canonical JSON encoding of
// {content, creator}, and the wrapper's ID is the BLAKE3
// digest of the signature, making IDs both content-derived
// and creator-bound.

func signableBytes(content any, creator bcrypto.PubKey) ([]byte, error) {
	env := struct {
		Content any    `json:"content"`
		Creator string `json:"creator"`
	}{
		Content: content,
		Creator: hex.EncodeToString(creator.PubKeyBytes()),
	}
	return json.Marshal(env)
}

func signContent(ctx context.Context, signer bcrypto.Signer, content any) (creator bcrypto.PubKey, sig []byte, id bcrypto.Hash, err error) {
	creator = signer.PubKey()

	msg, err := signableBytes(content, creator)
	if err != nil {
		return nil, nil, bcrypto.Hash{}, fmt.Errorf("failed to encode signable content: %w", err)
	}

	sig, err = signer.Sign(ctx, msg)
	if err != nil {
		return nil, nil, bcrypto.Hash{}, fmt.Errorf("failed to sign content: %w", err)
	}

	return creator, sig, bcrypto.ComputeHash(sig), nil
}

func verifyContent(content any, creator bcrypto.PubKey, sig []byte, id bcrypto.Hash) error {
	if creator == nil {
		return fmt.Errorf("missing creator public key")
	}

	msg, err := signableBytes(content, creator)
	if err != nil {
		return fmt.Errorf("failed to encode signable content: %w", err)
	}

	if !creator.Verify(msg, sig) {
		return bcrypto.ErrInvalidSignature
	}

	if got := bcrypto.ComputeHash(sig); got != id {
		return fmt.Errorf("id mismatch: derived %s, claimed %s", got, id)
	}

	return nil
}

type signedJSON[C any] struct {
	Content   C      `json:"content"`
	Creator   string `json:"creator"`
	Signature []byte `json:"signature"`
}

func marshalSigned[C any](content C, creator bcrypto.PubKey, sig []byte) ([]byte, error) {
	return json.Marshal(signedJSON[C]{
		Content:   content,
		Creator:   hex.EncodeToString(creator.PubKeyBytes()),
		Signature: sig,
	})
}

func unmarshalSigned[C any](b []byte) (content C, creator bcrypto.PubKey, sig []byte, id bcrypto.Hash, err error) {
	var aux signedJSON[C]
	if err = json.Unmarshal(b, &aux); err != nil {
		return content, nil, nil, bcrypto.Hash{}, err
	}

	keyBytes, err := hex.DecodeString(aux.Creator)
	if err != nil {
		return content, nil, nil, bcrypto.Hash{}, fmt.Errorf("invalid creator encoding: %w", err)
	}

	creator, err = bcrypto.NewEd25519PubKey(keyBytes)
	if err != nil {
		return content, nil, nil, bcrypto.Hash{}, err
	}

	return aux.Content, creator, aux.Signature, bcrypto.ComputeHash(aux.Signature), nil
}

// SignedHeader is a creator-signed block header.
// Its ID serves as the block's identifier.
type SignedHeader struct {
	Content   BlockHeader
	Creator   bcrypto.PubKey
	Signature []byte
	ID        BlockID
}

// NewSignedHeader signs content with signer and derives the header ID.
func NewSignedHeader(ctx context.Context, signer bcrypto.Signer, content BlockHeader) (SignedHeader, error) {
	creator, sig, id, err := signContent(ctx, signer, content)
	if err != nil {
		return SignedHeader{}, err
	}

	return SignedHeader{
		Content:   content,
		Creator:   creator,
		Signature: sig,
		ID:        BlockID(id),
	}, nil
}

func (sh SignedHeader) Verify() error {
	return verifyContent(sh.Content, sh.Creator, sh.Signature, bcrypto.Hash(sh.ID))
}

// CreatorAddress returns the address of the header's creator key.
func (sh SignedHeader) CreatorAddress() Address {
	return AddressFromPublicKey(sh.Creator)
}

func (sh SignedHeader) MarshalJSON() ([]byte, error) {
	return marshalSigned(sh.Content, sh.Creator, sh.Signature)
}

func (sh *SignedHeader) UnmarshalJSON(b []byte) error {
	content, creator, sig, id, err := unmarshalSigned[BlockHeader](b)
	if err != nil {
		return err
	}

	sh.Content = content
	sh.Creator = creator
	sh.Signature = sig
	sh.ID = BlockID(id)
	return nil
}

// SignedOperation is a creator-signed operation.
type SignedOperation struct {
	Content   Operation
	Creator   bcrypto.PubKey
	Signature []byte
	ID        OperationID
}

func NewSignedOperation(ctx context.Context, signer bcrypto.Signer, content Operation) (SignedOperation, error) {
	creator, sig, id, err := signContent(ctx, signer, content)
	if err != nil {
		return SignedOperation{}, err
	}

	return SignedOperation{
		Content:   content,
		Creator:   creator,
		Signature: sig,
		ID:        OperationID(id),
	}, nil
}

func (so SignedOperation) Verify() error {
	return verifyContent(so.Content, so.Creator, so.Signature, bcrypto.Hash(so.ID))
}

func (so SignedOperation) MarshalJSON() ([]byte, error) {
	return marshalSigned(so.Content, so.Creator, so.Signature)
}

func (so *SignedOperation) UnmarshalJSON(b []byte) error {
	content, creator, sig, id, err := unmarshalSigned[Operation](b)
	if err != nil {
		return err
	}

	so.Content = content
	so.Creator = creator
	so.Signature = sig
	so.ID = OperationID(id)
	return nil
}

// SignedEndorsement is a creator-signed endorsement.
type SignedEndorsement struct {
	Content   Endorsement
	Creator   bcrypto.PubKey
	Signature []byte
	ID        EndorsementID
}

func NewSignedEndorsement(ctx context.Context, signer bcrypto.Signer, content Endorsement) (SignedEndorsement, error) {
	creator, sig, id, err := signContent(ctx, signer, content)
	if err != nil {
		return SignedEndorsement{}, err
	}

	return SignedEndorsement{
		Content:   content,
		Creator:   creator,
		Signature: sig,
		ID:        EndorsementID(id),
	}, nil
}

func (se SignedEndorsement) Verify() error {
	return verifyContent(se.Content, se.Creator, se.Signature, bcrypto.Hash(se.ID))
}

func (se SignedEndorsement) MarshalJSON() ([]byte, error) {
	return marshalSigned(se.Content, se.Creator, se.Signature)
}

func (se *SignedEndorsement) UnmarshalJSON(b []byte) error {
	content, creator, sig, id, err := unmarshalSigned[Endorsement](b)
	if err != nil {
		return err
	}

	se.Content = content
	se.Creator = creator
	se.Signature = sig
	se.ID = EndorsementID(id)
	return nil
}

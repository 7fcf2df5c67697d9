package bmodels

import (
	"github.com/braid-engine/braid/bcrypto"
)

// BlockID is the content-derived identifier of a signed block.
type BlockID bcrypto.Hash

func BlockIDFromString(s string) (BlockID, error) {
	h, err := bcrypto.HashFromString(s)
	if err != nil {
		return BlockID{}, err
	}
	return BlockID(h), nil
}

func (id BlockID) String() string {
	return bcrypto.Hash(id).String()
}

func (id BlockID) Bytes() []byte {
	return bcrypto.Hash(id).Bytes()
}

func (id BlockID) MarshalText() ([]byte, error) {
	return bcrypto.Hash(id).MarshalText()
}

func (id *BlockID) UnmarshalText(b []byte) error {
	return (*bcrypto.Hash)(id).UnmarshalText(b)
}

// OperationID is the content-derived identifier of a signed operation.
type OperationID bcrypto.Hash

func (id OperationID) String() string {
	return bcrypto.Hash(id).String()
}

func (id OperationID) Bytes() []byte {
	return bcrypto.Hash(id).Bytes()
}

func (id OperationID) MarshalText() ([]byte, error) {
	return bcrypto.Hash(id).MarshalText()
}

func (id *OperationID) UnmarshalText(b []byte) error {
	return (*bcrypto.Hash)(id).UnmarshalText(b)
}

// EndorsementID is the content-derived identifier of a signed endorsement.
type EndorsementID bcrypto.Hash

func (id EndorsementID) String() string {
	return bcrypto.Hash(id).String()
}

func (id EndorsementID) MarshalText() ([]byte, error) {
	return bcrypto.Hash(id).MarshalText()
}

func (id *EndorsementID) UnmarshalText(b []byte) error {
	return (*bcrypto.Hash)(id).UnmarshalText(b)
}

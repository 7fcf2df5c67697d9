package bmodels

import (
	"github.com/braid-engine/braid/bcrypto"
)

// Address identifies an account: the BLAKE3 digest of its public key.
type Address bcrypto.Hash

// AddressFromPublicKey derives the address owning pub.
func AddressFromPublicKey(pub bcrypto.PubKey) Address {
	return Address(bcrypto.ComputeHash(pub.PubKeyBytes()))
}

// AddressFromString parses the hex form produced by [Address.String].
func AddressFromString(s string) (Address, error) {
	h, err := bcrypto.HashFromString(s)
	if err != nil {
		return Address{}, err
	}
	return Address(h), nil
}

// Thread returns the thread this address creates blocks on,
// in a lattice of threadCount threads.
func (a Address) Thread(threadCount uint8) uint8 {
	return a[0] % threadCount
}

func (a Address) String() string {
	return bcrypto.Hash(a).String()
}

func (a Address) MarshalText() ([]byte, error) {
	return bcrypto.Hash(a).MarshalText()
}

func (a *Address) UnmarshalText(b []byte) error {
	return (*bcrypto.Hash)(a).UnmarshalText(b)
}

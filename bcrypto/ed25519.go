package bcrypto

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Ed25519PubKey is a [PubKey] backed by a standard library ed25519 key.
type Ed25519PubKey ed25519.PublicKey

// NewEd25519PubKey validates the length of b
// and wraps it as an [Ed25519PubKey].
func NewEd25519PubKey(b []byte) (PubKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key length: want %d, got %d", ed25519.PublicKeySize, len(b))
	}
	return Ed25519PubKey(b), nil
}

func (e Ed25519PubKey) PubKeyBytes() []byte {
	return []byte(e)
}

func (e Ed25519PubKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(e), msg, sig)
}

// Equal reports whether other is an Ed25519PubKey with the same key material.
func (e Ed25519PubKey) Equal(other PubKey) bool {
	o, ok := other.(Ed25519PubKey)
	if !ok {
		return false
	}

	return ed25519.PublicKey(e).Equal(ed25519.PublicKey(o))
}

// Ed25519Signer is a [Signer] holding an in-process ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  Ed25519PubKey
}

func NewEd25519Signer(priv ed25519.PrivateKey) Ed25519Signer {
	return Ed25519Signer{
		priv: priv,
		pub:  Ed25519PubKey(priv.Public().(ed25519.PublicKey)),
	}
}

// NewEd25519SignerFromSeed derives a signer from a 32-byte seed,
// the form staking key files store.
func NewEd25519SignerFromSeed(seed []byte) (Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return Ed25519Signer{}, fmt.Errorf("invalid ed25519 seed length: want %d, got %d", ed25519.SeedSize, len(seed))
	}
	return NewEd25519Signer(ed25519.NewKeyFromSeed(seed)), nil
}

// GenerateEd25519Signer creates a signer from a fresh random key.
func GenerateEd25519Signer() (Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Ed25519Signer{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return NewEd25519Signer(priv), nil
}

func (s Ed25519Signer) PubKey() PubKey {
	return s.pub
}

// Sign signs input with pure ed25519.
// The context is unused; signing happens in process.
func (s Ed25519Signer) Sign(_ context.Context, input []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, input), nil
}

// Seed returns the 32-byte seed for key file export.
func (s Ed25519Signer) Seed() []byte {
	return s.priv.Seed()
}

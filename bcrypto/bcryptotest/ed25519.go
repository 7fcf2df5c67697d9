// Package bcryptotest provides deterministic key material for tests.
package bcryptotest

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/braid-engine/braid/bcrypto"
)

var (
	keyMu   sync.Mutex
	keyPool []ed25519.PrivateKey
)

// DeterministicEd25519Signers returns n signers derived from fixed seeds.
// Signer i is the same key in every test and every run,
// which keeps addresses and IDs in test logs stable across runs
// and lets repeated calls share one cached generation.
func DeterministicEd25519Signers(n int) []bcrypto.Ed25519Signer {
	keyMu.Lock()
	defer keyMu.Unlock()

	for len(keyPool) < n {
		// The seed must be exactly 32 bytes; a zero-padded index is.
		seed := fmt.Sprintf("%032d", len(keyPool))
		keyPool = append(keyPool, ed25519.NewKeyFromSeed([]byte(seed)))
	}

	// Key bytes are cloned so no two callers share a private key slice.
	signers := make([]bcrypto.Ed25519Signer, n)
	for i, priv := range keyPool[:n] {
		signers[i] = bcrypto.NewEd25519Signer(bytes.Clone(priv))
	}
	return signers
}

package bci

import (
	"crypto/ed25519"

	"golang.org/x/crypto/blake2b"

	"github.com/braid-engine/braid/bcrypto"
)

// SignerFromInsecurePassphrase derives a staking signer from a
// passphrase. The derivation is deterministic and unsalted, so the
// resulting key is only as secret as the passphrase; it exists for
// local development networks, never for value-bearing stake.
func SignerFromInsecurePassphrase(prefix, insecurePassphrase string) (bcrypto.Ed25519Signer, error) {
	h, err := blake2b.New(ed25519.SeedSize, nil)
	if err != nil {
		return bcrypto.Ed25519Signer{}, err
	}
	h.Write([]byte(prefix))
	h.Write([]byte(insecurePassphrase))

	return bcrypto.NewEd25519SignerFromSeed(h.Sum(nil))
}

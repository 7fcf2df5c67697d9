package bconsensus

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/braid-engine/braid/bcipher"
	"github.com/braid-engine/braid/bcrypto"
)

// LoadStakingKeys reads the staking signers from an encrypted key
// file: a password-sealed JSON array of hex seeds. A missing file is
// not an error; it loads as no staking keys, leaving the node a
// non-producing observer.
func LoadStakingKeys(path, password string) ([]bcrypto.Ed25519Signer, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staking key file: %w", err)
	}

	plain, err := bcipher.Decrypt(password, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt staking key file %s: %w", path, err)
	}

	var seeds []string
	if err := json.Unmarshal(plain, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted staking key file %s: %w", path, err)
	}

	signers := make([]bcrypto.Ed25519Signer, len(seeds))
	for i, s := range seeds {
		seed, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid seed at index %d in staking key file: %w", i, err)
		}
		signers[i], err = bcrypto.NewEd25519SignerFromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("unusable seed at index %d in staking key file: %w", i, err)
		}
	}

	return signers, nil
}

// SaveStakingKeys writes the staking signers to path as a
// password-sealed JSON array of hex seeds.
func SaveStakingKeys(path, password string, signers []bcrypto.Ed25519Signer) error {
	seeds := make([]string, len(signers))
	for i, s := range signers {
		seeds[i] = hex.EncodeToString(s.Seed())
	}

	plain, err := json.Marshal(seeds)
	if err != nil {
		return fmt.Errorf("failed to encode staking seeds: %w", err)
	}

	sealed, err := bcipher.Encrypt(password, plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt staking key file: %w", err)
	}

	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write staking key file: %w", err)
	}
	return nil
}

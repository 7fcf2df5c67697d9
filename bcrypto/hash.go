// Package bcrypto provides the hashing and signing primitives
// used for content addressing and block authentication.
package bcrypto

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// HashSize is the byte length of a [Hash].
const HashSize = 32

// Hash is a BLAKE3 digest used for content addressing.
type Hash [HashSize]byte

// ComputeHash returns the BLAKE3 digest of data.
func ComputeHash(data []byte) Hash {
	return blake3.Sum256(data)
}

// HashFromBytes converts a raw 32-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length: want %d, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromString parses the hex form produced by [Hash.String].
func HashFromString(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash encoding: %w", err)
	}
	return HashFromBytes(b)
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler,
// so hashes are usable as JSON object keys.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := HashFromString(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

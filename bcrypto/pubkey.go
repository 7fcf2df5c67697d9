package bcrypto

// PubKey is a public key capable of verifying signatures.
//
// Concrete implementations decide the underlying scheme;
// the engine only ever verifies through this interface.
type PubKey interface {
	// PubKeyBytes returns the raw bytes of the public key,
	// suitable for storage or transmission.
	PubKeyBytes() []byte

	// Equal reports whether other is the same key.
	Equal(other PubKey) bool

	// Verify reports whether sig is a valid signature of msg by this key.
	Verify(msg, sig []byte) bool
}

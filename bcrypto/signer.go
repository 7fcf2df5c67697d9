package bcrypto

import "context"

// Signer produces signatures that the matching [PubKey] verifies.
type Signer interface {
	// PubKey returns the public key half of the signer.
	PubKey() PubKey

	// Sign signs input.
	// The context allows implementations backed by remote signing
	// services to honor cancellation.
	Sign(ctx context.Context, input []byte) (signature []byte, err error)
}

package bcrypto

import "errors"

// ErrInvalidSignature indicates a signature that does not match
// its claimed public key and message.
var ErrInvalidSignature = errors.New("invalid signature")

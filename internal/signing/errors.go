package signing

import "errors"

var (
	// ErrInvalidKey is returned when key material is not a valid
	// secp256k1 scalar.
	ErrInvalidKey = errors.New("signing: invalid private key")

	// ErrMalformedSignature is returned for signatures with the wrong
	// length, an unknown recovery id, or non-canonical values.
	ErrMalformedSignature = errors.New("signing: malformed signature")

	// ErrRecoveryFailed is returned when no public key can be recovered
	// from a well-formed signature.
	ErrRecoveryFailed = errors.New("signing: recovery failed")
)

package authorization

import "errors"

var (
	// ErrInvalidChainID rejects nil, negative, or >256-bit chain ids.
	ErrInvalidChainID = errors.New("authorization: invalid chain id")

	// ErrInvalidDelegate rejects delegate addresses that are not exactly
	// 20 bytes.
	ErrInvalidDelegate = errors.New("authorization: invalid delegate address")

	// ErrInvalidAuthSignature rejects malformed authorization signatures.
	ErrInvalidAuthSignature = errors.New("authorization: invalid signature")
)

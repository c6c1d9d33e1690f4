package rlp

import "errors"

var (
	// ErrNegativeInteger is returned when a negative big integer is encoded.
	// RLP integers are unsigned.
	ErrNegativeInteger = errors.New("rlp: cannot encode negative integer")

	// ErrUnsupportedType is returned for value shapes the encoder does not
	// support (maps, channels, funcs, signed scalars).
	ErrUnsupportedType = errors.New("rlp: unsupported value type")
)

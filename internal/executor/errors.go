package executor

import "errors"

var (
	// ErrAlreadyInitialized is returned when Initialize is invoked twice.
	ErrAlreadyInitialized = errors.New("executor: already initialized")

	// ErrNotInitialized is returned when a gated operation runs before
	// Initialize.
	ErrNotInitialized = errors.New("executor: not initialized")

	// ErrDeadlineExpired is returned when a request's deadline is in the
	// past. A deadline equal to the current timestamp is still honored.
	ErrDeadlineExpired = errors.New("executor: deadline expired")

	// ErrNonceAlreadyUsed is returned when a request presents a
	// replay-protection nonce that was consumed by an earlier successful
	// invocation.
	ErrNonceAlreadyUsed = errors.New("executor: nonce already used")

	// ErrInvalidSignature is returned when the recovered signer does not
	// match the required identity (current admin for admin-scoped
	// requests) or the signature cannot be recovered at all.
	ErrInvalidSignature = errors.New("executor: invalid signature")

	// ErrNotAllowedCaller is returned when a batch is signed by a key
	// outside the allow-list.
	ErrNotAllowedCaller = errors.New("executor: signer is not an allowed caller")

	// ErrArrayLengthMismatch is returned when a caller update's address
	// and flag arrays differ in length.
	ErrArrayLengthMismatch = errors.New("executor: callers and flags length mismatch")

	// ErrCallFailed aborts a batch when a forwarded call reverts or
	// reports failure. The whole invocation unwinds: no nonce is
	// consumed and no partial batch is observable.
	ErrCallFailed = errors.New("executor: forwarded call failed")
)

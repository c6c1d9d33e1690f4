package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one forwarded sub-call: an opaque remote operation identified
// by target address, native value, and byte payload. Batch order is
// execution order.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// CallResult reports the outcome of one forwarded call.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// Invoker forwards a single call to its target and reports success or
// failure with any return bytes. The executor depends on this capability
// instead of the host ledger's call semantics so its gating and
// sequencing logic is testable in isolation. The host environment owns
// the commit/rollback boundary for the effects of forwarded calls.
type Invoker interface {
	Invoke(ctx context.Context, call Call) (CallResult, error)
}

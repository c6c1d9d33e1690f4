package executor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// The hash helpers below expose the exact preimages off-chain signers
// must sign for each gated operation. Signatures over these digests use
// the prefixed-message scheme (signing.SignMessage), never raw-digest
// signing.

var (
	batchArgs        abi.Arguments
	adminChangeArgs  abi.Arguments
	callerUpdateArgs abi.Arguments
)

func init() {
	callsType := mustNewType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "target", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	addressType := mustNewType("address", nil)
	addressSliceType := mustNewType("address[]", nil)
	boolSliceType := mustNewType("bool[]", nil)
	uint256Type := mustNewType("uint256", nil)

	batchArgs = abi.Arguments{
		{Name: "calls", Type: callsType},
		{Name: "nonce", Type: uint256Type},
		{Name: "deadline", Type: uint256Type},
	}
	adminChangeArgs = abi.Arguments{
		{Name: "newAdmin", Type: addressType},
		{Name: "nonce", Type: uint256Type},
		{Name: "deadline", Type: uint256Type},
	}
	callerUpdateArgs = abi.Arguments{
		{Name: "callers", Type: addressSliceType},
		{Name: "isAdding", Type: boolSliceType},
		{Name: "nonce", Type: uint256Type},
		{Name: "deadline", Type: uint256Type},
	}
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

// BatchHash returns the digest covering (calls, nonce, deadline).
func BatchHash(calls []Call, nonce, deadline uint64) (common.Hash, error) {
	packed, err := batchArgs.Pack(normalizeCalls(calls), u256(nonce), u256(deadline))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "executor: packing batch preimage")
	}
	return crypto.Keccak256Hash(packed), nil
}

// AdminChangeHash returns the digest covering (newAdmin, nonce, deadline).
func AdminChangeHash(newAdmin common.Address, nonce, deadline uint64) (common.Hash, error) {
	packed, err := adminChangeArgs.Pack(newAdmin, u256(nonce), u256(deadline))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "executor: packing admin-change preimage")
	}
	return crypto.Keccak256Hash(packed), nil
}

// CallerUpdateHash returns the digest covering (callers, isAdding, nonce,
// deadline). Array lengths are not validated here; UpdateCallers rejects
// mismatched arrays before any signature work.
func CallerUpdateHash(callers []common.Address, isAdding []bool, nonce, deadline uint64) (common.Hash, error) {
	if callers == nil {
		callers = []common.Address{}
	}
	if isAdding == nil {
		isAdding = []bool{}
	}
	packed, err := callerUpdateArgs.Pack(callers, isAdding, u256(nonce), u256(deadline))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "executor: packing caller-update preimage")
	}
	return crypto.Keccak256Hash(packed), nil
}

// abiCall mirrors the tuple component layout of the calls type.
type abiCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

func normalizeCalls(calls []Call) []abiCall {
	out := make([]abiCall, len(calls))
	for i, c := range calls {
		value := c.Value
		if value == nil {
			value = new(big.Int)
		}
		data := c.Data
		if data == nil {
			data = []byte{}
		}
		out[i] = abiCall{Target: c.Target, Value: value, Data: data}
	}
	return out
}

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

package executor_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/delegation-relay/internal/executor"
)

func TestBatchHashDeterministic(t *testing.T) {
	calls := someCalls()
	first, err := executor.BatchHash(calls, 1, 100)
	require.NoError(t, err)
	second, err := executor.BatchHash(calls, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEqual(t, common.Hash{}, first)
}

func TestBatchHashBindsEveryField(t *testing.T) {
	calls := someCalls()
	base, err := executor.BatchHash(calls, 1, 100)
	require.NoError(t, err)

	byNonce, err := executor.BatchHash(calls, 2, 100)
	require.NoError(t, err)
	assert.NotEqual(t, base, byNonce)

	byDeadline, err := executor.BatchHash(calls, 1, 101)
	require.NoError(t, err)
	assert.NotEqual(t, base, byDeadline)

	mutated := someCalls()
	mutated[0].Value = big.NewInt(11)
	byValue, err := executor.BatchHash(mutated, 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, base, byValue)

	byOrder, err := executor.BatchHash([]executor.Call{calls[1], calls[0], calls[2]}, 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, base, byOrder)
}

// Nil value and nil data hash identically to their explicit zero forms,
// so signers and verifiers normalizing differently still agree.
func TestBatchHashNormalizesNilFields(t *testing.T) {
	target := common.HexToAddress("0x1111111111111111111111111111111111111111")
	implicit, err := executor.BatchHash([]executor.Call{{Target: target}}, 1, 100)
	require.NoError(t, err)
	explicit, err := executor.BatchHash([]executor.Call{{Target: target, Value: big.NewInt(0), Data: []byte{}}}, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, explicit, implicit)
}

func TestAdminChangeHashBindsEveryField(t *testing.T) {
	newAdmin := common.HexToAddress("0x2222222222222222222222222222222222222222")
	base, err := executor.AdminChangeHash(newAdmin, 1, 100)
	require.NoError(t, err)

	byAdmin, err := executor.AdminChangeHash(common.HexToAddress("0x3333333333333333333333333333333333333333"), 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, base, byAdmin)

	byNonce, err := executor.AdminChangeHash(newAdmin, 2, 100)
	require.NoError(t, err)
	assert.NotEqual(t, base, byNonce)
}

func TestCallerUpdateHashBindsDirection(t *testing.T) {
	callers := []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")}
	grant, err := executor.CallerUpdateHash(callers, []bool{true}, 1, 100)
	require.NoError(t, err)
	revoke, err := executor.CallerUpdateHash(callers, []bool{false}, 1, 100)
	require.NoError(t, err)
	assert.NotEqual(t, grant, revoke)
}

// The three operation kinds never share a digest even for overlapping
// scalar inputs, so a signature for one kind cannot authorize another.
func TestOperationHashesAreDomainSeparated(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")

	batch, err := executor.BatchHash(nil, 1, 100)
	require.NoError(t, err)
	admin, err := executor.AdminChangeHash(addr, 1, 100)
	require.NoError(t, err)
	update, err := executor.CallerUpdateHash([]common.Address{addr}, []bool{true}, 1, 100)
	require.NoError(t, err)

	assert.NotEqual(t, batch, admin)
	assert.NotEqual(t, batch, update)
	assert.NotEqual(t, admin, update)
}

package services_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/delegation-relay/internal/authorization"
	"github.com/cyphera/delegation-relay/internal/services"
	"github.com/cyphera/delegation-relay/internal/signing"
)

const (
	authorityKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	relayerKeyHex   = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	relayerAddrHex  = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	delegateAddrHex = "0x0eac89b3b669c4b29c7a45eecd1d1c2b8e3594dd"
)

// fakeBackend serves canned chain state and captures broadcasts.
type fakeBackend struct {
	chainID *big.Int
	nonces  map[common.Address]uint64
	tipCap  *big.Int
	baseFee *big.Int
	sent    []*gethtypes.Transaction
	sendErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(11155111),
		nonces:  make(map[common.Address]uint64),
		tipCap:  big.NewInt(1_500_000_000),
		baseFee: big.NewInt(12_000_000_000),
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	return f.nonces[account], nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.tipCap), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{BaseFee: new(big.Int).Set(f.baseFee)}, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func TestBuildAuthorizationSponsored(t *testing.T) {
	backend := newFakeBackend()
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	backend.nonces[signing.AddressOf(authorityKey)] = 4

	signed, err := svc.BuildAuthorization(context.Background(), authorityKey,
		common.HexToAddress(delegateAddrHex), common.HexToAddress(relayerAddrHex))
	require.NoError(t, err)

	// A sponsored flow uses the pending nonce as-is.
	assert.Equal(t, uint64(4), signed.Nonce)
	assert.Equal(t, common.HexToAddress(delegateAddrHex), signed.Delegate)
	assert.Equal(t, backend.chainID, signed.ChainID)

	authority, err := signed.Authority()
	require.NoError(t, err)
	assert.Equal(t, signing.AddressOf(authorityKey), authority)
}

// When the authority sponsors its own transaction, the transaction nonce
// is consumed before the authorization is processed, so the
// authorization nonce must sit one higher.
func TestBuildAuthorizationSelfSponsored(t *testing.T) {
	backend := newFakeBackend()
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	authority := signing.AddressOf(authorityKey)
	backend.nonces[authority] = 4

	signed, err := svc.BuildAuthorization(context.Background(), authorityKey,
		common.HexToAddress(delegateAddrHex), authority)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), signed.Nonce)
}

func TestDelegate(t *testing.T) {
	backend := newFakeBackend()
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)
	relayer := signing.AddressOf(relayerKey)
	backend.nonces[relayer] = 11

	auth, err := svc.BuildAuthorization(context.Background(), authorityKey,
		common.HexToAddress(delegateAddrHex), relayer)
	require.NoError(t, err)

	hash, err := svc.Delegate(context.Background(), services.DelegateParams{
		RelayerKey:    relayerKey,
		Authorization: auth,
		To:            signing.AddressOf(authorityKey),
		Data:          []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(gethtypes.SetCodeTxType), tx.Type())
	assert.Equal(t, uint64(11), tx.Nonce())
	assert.Equal(t, uint64(services.DefaultGasLimit), tx.Gas())
	assert.Equal(t, backend.tipCap, tx.GasTipCap())
	// Fee cap covers two base-fee doublings on top of the tip.
	wantFeeCap := new(big.Int).Add(backend.tipCap, new(big.Int).Mul(backend.baseFee, big.NewInt(2)))
	assert.Equal(t, wantFeeCap, tx.GasFeeCap())

	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	assert.Equal(t, common.HexToAddress(delegateAddrHex), authList[0].Address)

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(backend.chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, relayer, sender)
}

func TestDelegateCustomGas(t *testing.T) {
	backend := newFakeBackend()
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)

	auth, err := svc.BuildAuthorization(context.Background(), authorityKey,
		common.HexToAddress(delegateAddrHex), signing.AddressOf(relayerKey))
	require.NoError(t, err)

	_, err = svc.Delegate(context.Background(), services.DelegateParams{
		RelayerKey:    relayerKey,
		Authorization: auth,
		Gas:           1_200_000,
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, uint64(1_200_000), backend.sent[0].Gas())
}

func TestDelegateBroadcastFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("replacement transaction underpriced")
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)

	auth, err := svc.BuildAuthorization(context.Background(), authorityKey,
		common.HexToAddress(delegateAddrHex), signing.AddressOf(relayerKey))
	require.NoError(t, err)

	_, err = svc.Delegate(context.Background(), services.DelegateParams{
		RelayerKey:    relayerKey,
		Authorization: auth,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement transaction underpriced")
	assert.Empty(t, backend.sent)
}

func TestRevoke(t *testing.T) {
	backend := newFakeBackend()
	svc := services.NewDelegationService(backend, nil)
	authorityKey, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)

	_, err = svc.Revoke(context.Background(), authorityKey, relayerKey)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	// Revocation is a delegation to the zero address.
	assert.Equal(t, authorization.RevocationAddress, authList[0].Address)
	require.NotNil(t, tx.To())
	assert.Equal(t, signing.AddressOf(authorityKey), *tx.To())
}

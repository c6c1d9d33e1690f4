package txbuilder_test

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
	"github.com/cyphera/delegation-relay/internal/signing"
	"github.com/cyphera/delegation-relay/internal/txbuilder"
)

const (
	authorityKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	relayerKeyHex   = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	relayerAddrHex  = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	delegateAddrHex = "0x0eac89b3b669c4b29c7a45eecd1d1c2b8e3594dd"
)

func signedAuthorization(t *testing.T, chainID *big.Int, nonce uint64) authorization.SignedAuthorization {
	t.Helper()
	key, err := signing.ParseKey(authorityKeyHex)
	require.NoError(t, err)
	signed, err := authorization.Sign(key, authorization.Authorization{
		ChainID:  chainID,
		Delegate: common.HexToAddress(delegateAddrHex),
		Nonce:    nonce,
	})
	require.NoError(t, err)
	return signed
}

func TestBuildSetCodeTransaction(t *testing.T) {
	chainID := big.NewInt(11155111)
	auth := signedAuthorization(t, chainID, 0)

	tx, err := txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Nonce:          9,
		GasTipCap:      big.NewInt(1_000_000_000),
		GasFeeCap:      big.NewInt(30_000_000_000),
		Gas:            150_000,
		To:             common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"),
		Value:          big.NewInt(123),
		Data:           []byte{0xde, 0xad},
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(gethtypes.SetCodeTxType), tx.Type())
	assert.Equal(t, uint64(9), tx.Nonce())
	assert.Equal(t, uint64(150_000), tx.Gas())
	assert.Equal(t, big.NewInt(123), tx.Value())
	assert.Equal(t, []byte{0xde, 0xad}, tx.Data())
	require.NotNil(t, tx.To())
	assert.Equal(t, common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"), *tx.To())

	authList := tx.SetCodeAuthorizations()
	require.Len(t, authList, 1)
	assert.Equal(t, common.HexToAddress(delegateAddrHex), authList[0].Address)
	assert.Equal(t, uint64(0), authList[0].Nonce)
}

func TestBuildValidation(t *testing.T) {
	chainID := big.NewInt(11155111)
	auth := signedAuthorization(t, chainID, 0)

	_, err := txbuilder.Build(txbuilder.Params{
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	assert.ErrorIs(t, err, txbuilder.ErrMissingChainID)

	_, err = txbuilder.Build(txbuilder.Params{ChainID: chainID})
	assert.ErrorIs(t, err, txbuilder.ErrEmptyAuthorizationList)

	_, err = txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Value:          big.NewInt(-1),
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	assert.Error(t, err)
}

func TestSignAndRecoverSender(t *testing.T) {
	chainID := big.NewInt(11155111)
	auth := signedAuthorization(t, chainID, 0)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)

	tx, err := txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Nonce:          0,
		GasTipCap:      big.NewInt(1_000_000_000),
		GasFeeCap:      big.NewInt(30_000_000_000),
		Gas:            100_000,
		To:             common.HexToAddress(delegateAddrHex),
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	require.NoError(t, err)

	signed, err := txbuilder.Sign(tx, chainID, relayerKey)
	require.NoError(t, err)

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(relayerAddrHex), sender)
}

type fakeBroadcaster struct {
	sent []*gethtypes.Transaction
	err  error
}

func (f *fakeBroadcaster) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, tx)
	return nil
}

func TestSubmit(t *testing.T) {
	chainID := big.NewInt(11155111)
	auth := signedAuthorization(t, chainID, 0)
	relayerKey, err := signing.ParseKey(relayerKeyHex)
	require.NoError(t, err)

	tx, err := txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Gas:            100_000,
		To:             common.HexToAddress(delegateAddrHex),
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	require.NoError(t, err)
	signed, err := txbuilder.Sign(tx, chainID, relayerKey)
	require.NoError(t, err)

	broadcaster := &fakeBroadcaster{}
	hash, err := txbuilder.Submit(context.Background(), broadcaster, signed)
	require.NoError(t, err)
	assert.Equal(t, signed.Hash(), hash)
	require.Len(t, broadcaster.sent, 1)
}

func TestSubmitRejection(t *testing.T) {
	chainID := big.NewInt(11155111)
	auth := signedAuthorization(t, chainID, 0)

	tx, err := txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Gas:            100_000,
		Authorizations: []authorization.SignedAuthorization{auth},
	})
	require.NoError(t, err)

	cause := errors.New("nonce too low")
	broadcaster := &fakeBroadcaster{err: cause}
	_, err = txbuilder.Submit(context.Background(), broadcaster, tx)
	require.ErrorIs(t, err, txbuilder.ErrSubmitFailed)
	// The rejection reason surfaces verbatim.
	assert.Contains(t, err.Error(), "nonce too low")
	assert.Empty(t, broadcaster.sent)
}

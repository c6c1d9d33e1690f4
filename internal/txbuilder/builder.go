// Package txbuilder assembles, signs, and broadcasts EIP-7702 typed
// transactions (type 0x04) carrying an authorization list.
package txbuilder

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/cyphera/delegation-relay/internal/authorization"
)

// Params carries everything needed to assemble an unsigned set-code
// transaction. Value and the fee caps may be nil (treated as zero).
type Params struct {
	ChainID        *big.Int
	Nonce          uint64
	GasTipCap      *big.Int // maxPriorityFeePerGas
	GasFeeCap      *big.Int // maxFeePerGas
	Gas            uint64
	To             common.Address
	Value          *big.Int
	Data           []byte
	AccessList     gethtypes.AccessList
	Authorizations []authorization.SignedAuthorization
}

var (
	// ErrMissingChainID is returned when Params.ChainID is nil.
	ErrMissingChainID = errors.New("txbuilder: chain id is required")

	// ErrEmptyAuthorizationList is returned when a set-code transaction
	// is built without any authorization entry.
	ErrEmptyAuthorizationList = errors.New("txbuilder: authorization list is empty")

	// ErrSubmitFailed wraps broadcast rejections. The underlying cause is
	// preserved verbatim; no retry is attempted.
	ErrSubmitFailed = errors.New("txbuilder: transaction submission failed")
)

// Build assembles an unsigned type-0x04 transaction from p.
func Build(p Params) (*gethtypes.Transaction, error) {
	if p.ChainID == nil {
		return nil, ErrMissingChainID
	}
	if len(p.Authorizations) == 0 {
		return nil, ErrEmptyAuthorizationList
	}
	chainID, overflow := uint256.FromBig(p.ChainID)
	if overflow {
		return nil, errors.Wrap(ErrMissingChainID, "chain id exceeds 256 bits")
	}
	authList := make([]gethtypes.SetCodeAuthorization, 0, len(p.Authorizations))
	for i, sa := range p.Authorizations {
		entry, err := sa.Entry()
		if err != nil {
			return nil, errors.Wrapf(err, "authorization %d", i)
		}
		authList = append(authList, entry)
	}
	tipCap, err := bigToU256("gas tip cap", p.GasTipCap)
	if err != nil {
		return nil, err
	}
	feeCap, err := bigToU256("gas fee cap", p.GasFeeCap)
	if err != nil {
		return nil, err
	}
	value, err := bigToU256("value", p.Value)
	if err != nil {
		return nil, err
	}
	inner := &gethtypes.SetCodeTx{
		ChainID:    chainID,
		Nonce:      p.Nonce,
		GasTipCap:  tipCap,
		GasFeeCap:  feeCap,
		Gas:        p.Gas,
		To:         p.To,
		Value:      value,
		Data:       p.Data,
		AccessList: p.AccessList,
		AuthList:   authList,
	}
	return gethtypes.NewTx(inner), nil
}

// Sign signs tx with the fee payer's key under the latest signer for
// chainID.
func Sign(tx *gethtypes.Transaction, chainID *big.Int, key *ecdsa.PrivateKey) (*gethtypes.Transaction, error) {
	if chainID == nil {
		return nil, ErrMissingChainID
	}
	signer := gethtypes.LatestSignerForChainID(chainID)
	signed, err := gethtypes.SignTx(tx, signer, key)
	if err != nil {
		return nil, errors.Wrap(err, "txbuilder: signing failed")
	}
	return signed, nil
}

// Broadcaster is the raw-broadcast boundary. *ethclient.Client satisfies
// it; tests inject fakes.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
}

// Submit broadcasts the signed transaction once and returns its hash.
// Rejections surface as-is; resubmission with a fresh nonce is the
// caller's decision.
func Submit(ctx context.Context, b Broadcaster, tx *gethtypes.Transaction) (common.Hash, error) {
	if err := b.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, errors.Wrap(ErrSubmitFailed, err.Error())
	}
	return tx.Hash(), nil
}

func bigToU256(field string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, errors.Errorf("txbuilder: %s is negative", field)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errors.Errorf("txbuilder: %s exceeds 256 bits", field)
	}
	return u, nil
}

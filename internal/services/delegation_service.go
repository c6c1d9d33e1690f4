// Package services orchestrates the off-chain delegation flow: fetch
// chain inputs, build and sign an authorization, assemble the set-code
// transaction, and broadcast it.
package services

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/delegation-relay/internal/authorization"
	"github.com/cyphera/delegation-relay/internal/signing"
	"github.com/cyphera/delegation-relay/internal/txbuilder"
)

// DefaultGasLimit is used when a caller does not size the transaction.
// Delegate-and-execute batches fit comfortably; callers with bigger
// batches pass their own limit.
const DefaultGasLimit = 400_000

// DefaultRPCTimeout bounds each network round-trip sequence. There is no
// retry: a failed fetch or broadcast surfaces immediately.
const DefaultRPCTimeout = 30 * time.Second

// EthBackend is the network boundary the service depends on.
// *ethclient.Client satisfies it.
type EthBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
}

// DelegationService builds, signs, and submits EIP-7702 transactions.
type DelegationService struct {
	backend EthBackend
	logger  *zap.Logger
	timeout time.Duration
}

// NewDelegationService creates a delegation service over backend.
func NewDelegationService(backend EthBackend, logger *zap.Logger) *DelegationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DelegationService{
		backend: backend,
		logger:  logger,
		timeout: DefaultRPCTimeout,
	}
}

// BuildAuthorization fetches the authority's pending nonce and signs an
// authorization delegating to delegate. When the authority itself will
// also send the set-code transaction (sponsor equals the authority
// address), the authorization nonce is bumped by one because the
// transaction consumes the current nonce first.
func (s *DelegationService) BuildAuthorization(ctx context.Context, authorityKey *ecdsa.PrivateKey, delegate common.Address, sponsor common.Address) (authorization.SignedAuthorization, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	authority := signing.AddressOf(authorityKey)
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return authorization.SignedAuthorization{}, errors.Wrap(err, "fetching chain id")
	}
	nonce, err := s.backend.PendingNonceAt(ctx, authority)
	if err != nil {
		return authorization.SignedAuthorization{}, errors.Wrap(err, "fetching authority nonce")
	}
	if sponsor == authority {
		nonce++
	}

	signed, err := authorization.Sign(authorityKey, authorization.Authorization{
		ChainID:  chainID,
		Delegate: delegate,
		Nonce:    nonce,
	})
	if err != nil {
		return authorization.SignedAuthorization{}, err
	}
	s.logger.Info("authorization signed",
		zap.String("authority", authority.Hex()),
		zap.String("delegate", delegate.Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("chain_id", chainID.String()),
	)
	return signed, nil
}

// DelegateParams describes one sponsored delegation submission. The
// relayer pays fees; Data optionally invokes the delegate code in the
// authority's context within the same transaction.
type DelegateParams struct {
	RelayerKey    *ecdsa.PrivateKey
	Authorization authorization.SignedAuthorization
	To            common.Address
	Value         *big.Int
	Data          []byte
	Gas           uint64
}

// Delegate assembles a type-0x04 transaction around the given
// authorization, signs it with the relayer key, and broadcasts it once.
func (s *DelegationService) Delegate(ctx context.Context, p DelegateParams) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	authority, err := p.Authorization.Authority()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "verifying authorization")
	}

	relayer := signing.AddressOf(p.RelayerKey)
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "fetching chain id")
	}
	nonce, err := s.backend.PendingNonceAt(ctx, relayer)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "fetching relayer nonce")
	}
	tipCap, feeCap, err := s.suggestFees(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gas := p.Gas
	if gas == 0 {
		gas = DefaultGasLimit
	}
	tx, err := txbuilder.Build(txbuilder.Params{
		ChainID:        chainID,
		Nonce:          nonce,
		GasTipCap:      tipCap,
		GasFeeCap:      feeCap,
		Gas:            gas,
		To:             p.To,
		Value:          p.Value,
		Data:           p.Data,
		Authorizations: []authorization.SignedAuthorization{p.Authorization},
	})
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := txbuilder.Sign(tx, chainID, p.RelayerKey)
	if err != nil {
		return common.Hash{}, err
	}
	txHash, err := txbuilder.Submit(ctx, s.backend, signed)
	if err != nil {
		return common.Hash{}, err
	}
	s.logger.Info("delegation submitted",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("authority", authority.Hex()),
		zap.String("delegate", p.Authorization.Delegate.Hex()),
		zap.String("relayer", relayer.Hex()),
	)
	return txHash, nil
}

// Revoke submits a delegation to the zero address, clearing the
// authority's delegation.
func (s *DelegationService) Revoke(ctx context.Context, authorityKey, relayerKey *ecdsa.PrivateKey) (common.Hash, error) {
	auth, err := s.BuildAuthorization(ctx, authorityKey, authorization.RevocationAddress, signing.AddressOf(relayerKey))
	if err != nil {
		return common.Hash{}, err
	}
	return s.Delegate(ctx, DelegateParams{
		RelayerKey:    relayerKey,
		Authorization: auth,
		To:            signing.AddressOf(authorityKey),
	})
}

// suggestFees derives EIP-1559 fee caps from the node: tip from the fee
// suggestion oracle, fee cap at twice the head base fee plus the tip.
func (s *DelegationService) suggestFees(ctx context.Context) (tipCap, feeCap *big.Int, err error) {
	tipCap, err = s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching gas tip cap")
	}
	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "fetching chain head")
	}
	feeCap = new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return tipCap, feeCap, nil
}

// Package authorization builds, hashes, and signs EIP-7702 authorization
// tuples: the signed statements by which an EOA delegates its execution
// context to deployed contract code for the duration of one transaction.
package authorization

import (
	"crypto/ecdsa"
	"math/big"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/cyphera/delegation-relay/internal/rlp"
	"github.com/cyphera/delegation-relay/internal/signing"
)

// MagicPrefix is the EIP-7702 domain-separation byte. It is concatenated
// as a single raw byte in front of the RLP payload, never inside the list.
const MagicPrefix byte = 0x05

// RevocationAddress is the delegate sentinel that clears an existing
// delegation. It hashes and signs exactly like any other address.
var RevocationAddress = common.Address{}

// Authorization is an unsigned delegation grant. A zero ChainID means the
// authorization is valid on any chain (it is RLP-encoded as the empty
// byte string, per protocol convention).
type Authorization struct {
	ChainID  *big.Int
	Delegate common.Address
	Nonce    uint64
}

// SigHash returns keccak256(0x05 || rlp([chainId, delegate, nonce])),
// the digest an authority signs. Pure and deterministic.
func (a Authorization) SigHash() (common.Hash, error) {
	chainID := a.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	if chainID.Sign() < 0 {
		return common.Hash{}, errors.Wrap(ErrInvalidChainID, "negative chain id")
	}
	payload, err := rlp.EncodeList(chainID, a.Delegate, a.Nonce)
	if err != nil {
		return common.Hash{}, err
	}
	preimage := make([]byte, 0, 1+len(payload))
	preimage = append(preimage, MagicPrefix)
	preimage = append(preimage, payload...)
	return crypto.Keccak256Hash(preimage), nil
}

// SignedAuthorization is an authorization plus the signature the
// transaction layer carries in its authorization list.
type SignedAuthorization struct {
	Authorization
	YParity uint8
	R       *uint256.Int
	S       *uint256.Int
}

// Sign produces a SignedAuthorization by signing the authorization digest
// with the authority's key. The digest is signed raw: authorization
// signing never uses the prefixed-message scheme.
func Sign(key *ecdsa.PrivateKey, auth Authorization) (SignedAuthorization, error) {
	digest, err := auth.SigHash()
	if err != nil {
		return SignedAuthorization{}, err
	}
	sig, err := signing.SignDigest(key, digest)
	if err != nil {
		return SignedAuthorization{}, err
	}
	return SignedAuthorization{
		Authorization: auth,
		YParity:       sig[64],
		R:             new(uint256.Int).SetBytes(sig[:32]),
		S:             new(uint256.Int).SetBytes(sig[32:64]),
	}, nil
}

// Assemble validates raw tuple parts and packages them as a signed
// authorization. The delegate must be exactly 20 bytes and the signature
// 65 bytes with a 0/1 parity byte.
func Assemble(chainID *big.Int, delegate []byte, nonce uint64, sig []byte) (SignedAuthorization, error) {
	if chainID == nil || chainID.Sign() < 0 {
		return SignedAuthorization{}, errors.Wrap(ErrInvalidChainID, "chain id must be a non-negative integer")
	}
	if _, overflow := uint256.FromBig(chainID); overflow {
		return SignedAuthorization{}, errors.Wrap(ErrInvalidChainID, "chain id exceeds 256 bits")
	}
	if len(delegate) != common.AddressLength {
		return SignedAuthorization{}, errors.Wrapf(ErrInvalidDelegate, "got %d bytes, want %d", len(delegate), common.AddressLength)
	}
	if len(sig) != signing.SignatureLength {
		return SignedAuthorization{}, errors.Wrapf(ErrInvalidAuthSignature, "signature length %d", len(sig))
	}
	if sig[64] > 1 {
		return SignedAuthorization{}, errors.Wrapf(ErrInvalidAuthSignature, "y parity %d", sig[64])
	}
	return SignedAuthorization{
		Authorization: Authorization{
			ChainID:  new(big.Int).Set(chainID),
			Delegate: common.BytesToAddress(delegate),
			Nonce:    nonce,
		},
		YParity: sig[64],
		R:       new(uint256.Int).SetBytes(sig[:32]),
		S:       new(uint256.Int).SetBytes(sig[32:64]),
	}, nil
}

// Authority recovers the EOA that signed the authorization.
func (sa SignedAuthorization) Authority() (common.Address, error) {
	if sa.R == nil || sa.S == nil {
		return common.Address{}, ErrInvalidAuthSignature
	}
	digest, err := sa.SigHash()
	if err != nil {
		return common.Address{}, err
	}
	sig := make([]byte, signing.SignatureLength)
	sa.R.WriteToSlice(sig[:32])
	sa.S.WriteToSlice(sig[32:64])
	sig[64] = sa.YParity
	return signing.RecoverDigest(digest, sig)
}

// Entry converts the signed authorization into the authorization-list
// entry shape the typed-transaction layer consumes.
func (sa SignedAuthorization) Entry() (gethtypes.SetCodeAuthorization, error) {
	chainID := sa.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	id, overflow := uint256.FromBig(chainID)
	if overflow {
		return gethtypes.SetCodeAuthorization{}, errors.Wrap(ErrInvalidChainID, "chain id exceeds 256 bits")
	}
	if sa.R == nil || sa.S == nil {
		return gethtypes.SetCodeAuthorization{}, ErrInvalidAuthSignature
	}
	return gethtypes.SetCodeAuthorization{
		ChainID: *id,
		Address: sa.Delegate,
		Nonce:   sa.Nonce,
		V:       sa.YParity,
		R:       *sa.R,
		S:       *sa.S,
	}, nil
}

// Package signing provides the two secp256k1 signing schemes the relay
// uses. They are deliberately exposed as separately named operations:
//
//   - SignDigest/RecoverDigest sign the raw 32-byte digest and are used
//     only for EIP-7702 authorization tuples.
//   - SignMessage/RecoverMessage wrap the digest in the EIP-191
//     "\x19Ethereum Signed Message:\n32" prefix and are used for the
//     executor's admin, caller-update, and batch requests.
//
// A digest signed under one scheme never verifies under the other, so a
// caller cannot accidentally authorize the wrong kind of request.
package signing

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the byte length of an [R || S || V] signature.
const SignatureLength = 65

// ParseKey parses a hex-encoded secp256k1 private key, with or without
// a 0x prefix.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if len(hexKey) >= 2 && hexKey[0] == '0' && (hexKey[1] == 'x' || hexKey[1] == 'X') {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return key, nil
}

// AddressOf returns the account address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// SignDigest signs the raw 32-byte digest directly. The returned
// signature is [R || S || V] with V being the recovery id (0 or 1).
// Nonce derivation is deterministic (RFC 6979), so identical inputs
// always produce identical signatures.
func SignDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	if key == nil || key.D == nil {
		return nil, ErrInvalidKey
	}
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return sig, nil
}

// RecoverDigest recovers the address that produced sig over the raw digest.
func RecoverDigest(digest common.Hash, sig []byte) (common.Address, error) {
	normalized, err := normalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(digest[:], normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrRecoveryFailed, err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignMessage signs the EIP-191 prefixed form of the digest. The returned
// signature carries V as 27 or 28, matching what on-chain ecrecover and
// wallet tooling expect for personal-message signatures.
func SignMessage(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	if key == nil || key.D == nil {
		return nil, ErrInvalidKey
	}
	wrapped := accounts.TextHash(digest[:])
	sig, err := crypto.Sign(wrapped, key)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	sig[64] += 27
	return sig, nil
}

// RecoverMessage recovers the address that signed the EIP-191 prefixed
// form of the digest.
func RecoverMessage(digest common.Hash, sig []byte) (common.Address, error) {
	normalized, err := normalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	wrapped := accounts.TextHash(digest[:])
	pub, err := crypto.SigToPub(wrapped, normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrRecoveryFailed, err.Error())
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// normalizeSignature validates shape and signature values and rewrites V
// to the 0/1 recovery id the recovery primitive expects. Accepted V
// conventions are {0,1} and {27,28}; anything else is malformed, as is a
// non-canonical (high-S) signature.
func normalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, errors.Wrapf(ErrMalformedSignature, "length %d", len(sig))
	}
	v := sig[64]
	if v == 27 || v == 28 {
		v -= 27
	}
	if v > 1 {
		return nil, errors.Wrapf(ErrMalformedSignature, "recovery id %d", sig[64])
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return nil, errors.Wrap(ErrMalformedSignature, "non-canonical signature values")
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig[:64])
	normalized[64] = v
	return normalized, nil
}

package handlers

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cyphera/delegation-relay/internal/authorization"
	"github.com/cyphera/delegation-relay/internal/services"
	"github.com/cyphera/delegation-relay/internal/signing"
)

// DelegationHandler handles delegation-related operations
type DelegationHandler struct {
	common *CommonServices
}

// NewDelegationHandler creates a new DelegationHandler instance
func NewDelegationHandler(common *CommonServices) *DelegationHandler {
	return &DelegationHandler{common: common}
}

// BuildAuthorization signs an authorization tuple with the server-side
// authority key. Intended for development and demo flows; production
// clients sign their own authorizations and call SubmitDelegation.
func (h *DelegationHandler) BuildAuthorization(c *gin.Context) {
	if h.common.authorityKey == nil {
		sendError(c, http.StatusBadRequest, "No authority key configured on this relay", nil)
		return
	}
	var req BuildAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	delegate := h.common.defaultDelegate
	if req.Delegate != "" {
		if !common.IsHexAddress(req.Delegate) {
			sendError(c, http.StatusBadRequest, "Invalid delegate address", nil)
			return
		}
		delegate = common.HexToAddress(req.Delegate)
	}

	signed, err := h.common.delegation.BuildAuthorization(
		c.Request.Context(),
		h.common.authorityKey,
		delegate,
		signing.AddressOf(h.common.relayerKey),
	)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to build authorization", err)
		return
	}
	sigHash, err := signed.SigHash()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to hash authorization", err)
		return
	}
	sendSuccess(c, http.StatusOK, BuildAuthorizationResponse{
		Authority:   signing.AddressOf(h.common.authorityKey).Hex(),
		SigningHash: sigHash.Hex(),
		Authorization: AuthorizationEntryPayload{
			ChainID: signed.ChainID.Uint64(),
			Address: signed.Delegate.Hex(),
			Nonce:   signed.Nonce,
			YParity: signed.YParity,
			R:       "0x" + hex.EncodeToString(signed.R.Bytes()),
			S:       "0x" + hex.EncodeToString(signed.S.Bytes()),
		},
	})
}

// SubmitDelegation accepts a client-signed authorization entry, wraps it
// in a type-0x04 transaction paid by the relayer, and broadcasts it.
func (h *DelegationHandler) SubmitDelegation(c *gin.Context) {
	var req SubmitDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	signed, err := assembleAuthorization(req.Authorization)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid authorization entry", err)
		return
	}
	authority, err := signed.Authority()
	if err != nil {
		sendError(c, http.StatusBadRequest, "Authorization signature does not recover", err)
		return
	}

	to := authority
	if req.To != "" {
		if !common.IsHexAddress(req.To) {
			sendError(c, http.StatusBadRequest, "Invalid recipient address", nil)
			return
		}
		to = common.HexToAddress(req.To)
	}
	value := new(big.Int)
	if req.Value != "" {
		if _, ok := value.SetString(req.Value, 10); !ok {
			sendError(c, http.StatusBadRequest, "Invalid value", nil)
			return
		}
	}
	data, err := decodeHexPayload(req.Data)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid call data", err)
		return
	}

	txHash, err := h.common.delegation.Delegate(c.Request.Context(), services.DelegateParams{
		RelayerKey:    h.common.relayerKey,
		Authorization: signed,
		To:            to,
		Value:         value,
		Data:          data,
		Gas:           req.Gas,
	})
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to submit delegation", err)
		return
	}
	sendSuccess(c, http.StatusOK, SubmitDelegationResponse{
		TransactionHash: txHash.Hex(),
		Authority:       authority.Hex(),
	})
}

// RevokeDelegation submits a zero-address authorization for the
// server-side authority, clearing its delegation.
func (h *DelegationHandler) RevokeDelegation(c *gin.Context) {
	if h.common.authorityKey == nil {
		sendError(c, http.StatusBadRequest, "No authority key configured on this relay", nil)
		return
	}
	txHash, err := h.common.delegation.Revoke(c.Request.Context(), h.common.authorityKey, h.common.relayerKey)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to revoke delegation", err)
		return
	}
	sendSuccess(c, http.StatusOK, SubmitDelegationResponse{
		TransactionHash: txHash.Hex(),
		Authority:       signing.AddressOf(h.common.authorityKey).Hex(),
	})
}

func assembleAuthorization(p AuthorizationEntryPayload) (authorization.SignedAuthorization, error) {
	if !common.IsHexAddress(p.Address) {
		return authorization.SignedAuthorization{}, errors.New("delegate is not a valid address")
	}
	r, err := decodeWord(p.R)
	if err != nil {
		return authorization.SignedAuthorization{}, errors.Wrap(err, "r")
	}
	s, err := decodeWord(p.S)
	if err != nil {
		return authorization.SignedAuthorization{}, errors.Wrap(err, "s")
	}
	sig := make([]byte, signing.SignatureLength)
	copy(sig[:32], r)
	copy(sig[32:64], s)
	sig[64] = p.YParity
	return authorization.Assemble(
		new(big.Int).SetUint64(p.ChainID),
		common.HexToAddress(p.Address).Bytes(),
		p.Nonce,
		sig,
	)
}

// decodeWord decodes a hex quantity of at most 32 bytes, left-padded.
// Quantities may have an odd number of digits ("0x1" is 0x01).
func decodeWord(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) > 32 {
		return nil, errors.Errorf("quantity exceeds 32 bytes (%d)", len(raw))
	}
	word := make([]byte, 32)
	copy(word[32-len(raw):], raw)
	return word, nil
}

// decodeHexPayload decodes raw byte payloads. Unlike quantities, an
// odd-length string here is malformed input, not something to pad.
func decodeHexPayload(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

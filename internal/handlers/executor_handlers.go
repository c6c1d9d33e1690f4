package handlers

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cyphera/delegation-relay/internal/executor"
)

// ExecutorHandler exposes the executor's signing preimages so off-chain
// signers can produce exactly the digest each gated operation verifies.
// Returned hashes are the raw digests; signers must apply the
// prefixed-message scheme when signing them.
type ExecutorHandler struct{}

// NewExecutorHandler creates a new ExecutorHandler instance
func NewExecutorHandler() *ExecutorHandler {
	return &ExecutorHandler{}
}

// BatchHash returns the digest covering (calls, nonce, deadline).
func (h *ExecutorHandler) BatchHash(c *gin.Context) {
	var req BatchHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	calls, err := parseCalls(req.Calls)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid call entry", err)
		return
	}
	hash, err := executor.BatchHash(calls, req.Nonce, req.Deadline)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to compute batch hash", err)
		return
	}
	sendSuccess(c, http.StatusOK, HashResponse{Hash: hash.Hex()})
}

// AdminChangeHash returns the digest covering (newAdmin, nonce, deadline).
func (h *ExecutorHandler) AdminChangeHash(c *gin.Context) {
	var req AdminChangeHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !common.IsHexAddress(req.NewAdmin) {
		sendError(c, http.StatusBadRequest, "Invalid admin address", nil)
		return
	}
	hash, err := executor.AdminChangeHash(common.HexToAddress(req.NewAdmin), req.Nonce, req.Deadline)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to compute admin-change hash", err)
		return
	}
	sendSuccess(c, http.StatusOK, HashResponse{Hash: hash.Hex()})
}

// CallerUpdateHash returns the digest covering (callers, isAdding, nonce,
// deadline).
func (h *ExecutorHandler) CallerUpdateHash(c *gin.Context) {
	var req CallerUpdateHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Callers) != len(req.IsAdding) {
		sendError(c, http.StatusBadRequest, "callers and isAdding must have equal length", executor.ErrArrayLengthMismatch)
		return
	}
	callers := make([]common.Address, 0, len(req.Callers))
	for _, addr := range req.Callers {
		if !common.IsHexAddress(addr) {
			sendError(c, http.StatusBadRequest, "Invalid caller address", nil)
			return
		}
		callers = append(callers, common.HexToAddress(addr))
	}
	hash, err := executor.CallerUpdateHash(callers, req.IsAdding, req.Nonce, req.Deadline)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to compute caller-update hash", err)
		return
	}
	sendSuccess(c, http.StatusOK, HashResponse{Hash: hash.Hex()})
}

func parseCalls(payloads []CallPayload) ([]executor.Call, error) {
	calls := make([]executor.Call, 0, len(payloads))
	for i, p := range payloads {
		if !common.IsHexAddress(p.Target) {
			return nil, errors.Errorf("call %d: invalid target address", i)
		}
		value := new(big.Int)
		if p.Value != "" {
			if _, ok := value.SetString(p.Value, 10); !ok {
				return nil, errors.Errorf("call %d: invalid value", i)
			}
		}
		data, err := decodeHexPayload(p.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "call %d: invalid data", i)
		}
		calls = append(calls, executor.Call{
			Target: common.HexToAddress(p.Target),
			Value:  value,
			Data:   data,
		})
	}
	return calls, nil
}

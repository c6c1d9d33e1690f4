package handlers

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cyphera/delegation-relay/internal/logger"
	"github.com/cyphera/delegation-relay/internal/services"
)

// CommonServices holds common dependencies used across handlers. The
// relayer key is required; the authority key is optional and only
// enables the server-side authorization signing endpoint.
type CommonServices struct {
	delegation      *services.DelegationService
	relayerKey      *ecdsa.PrivateKey
	authorityKey    *ecdsa.PrivateKey
	defaultDelegate common.Address
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(delegation *services.DelegationService, relayerKey, authorityKey *ecdsa.PrivateKey, defaultDelegate common.Address) *CommonServices {
	return &CommonServices{
		delegation:      delegation,
		relayerKey:      relayerKey,
		authorityKey:    authorityKey,
		defaultDelegate: defaultDelegate,
	}
}

// sendError is a helper function that combines logging and error response.
// It logs the error with the given message and sends a JSON error response.
func sendError(c *gin.Context, statusCode int, message string, err error) {
	if logger.Log != nil {
		logger.Error(message,
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

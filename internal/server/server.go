package server

import (
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cyphera/delegation-relay/internal/auth"
	"github.com/cyphera/delegation-relay/internal/handlers"
	"github.com/cyphera/delegation-relay/internal/services"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Delegation      *services.DelegationService
	RelayerKey      *ecdsa.PrivateKey
	AuthorityKey    *ecdsa.PrivateKey // optional
	DefaultDelegate common.Address
	APIKey          string // optional: gates /api/v1 when set
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.CorrelationIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handlers.CorrelationIDHeader, auth.APIKeyHeader},
		ExposeHeaders:    []string{handlers.CorrelationIDHeader},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	commonServices := handlers.NewCommonServices(deps.Delegation, deps.RelayerKey, deps.AuthorityKey, deps.DefaultDelegate)
	healthHandler := handlers.NewHealthHandler()
	delegationHandler := handlers.NewDelegationHandler(commonServices)
	executorHandler := handlers.NewExecutorHandler()

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1", auth.APIKeyMiddleware(deps.APIKey))
	{
		v1.POST("/authorizations", delegationHandler.BuildAuthorization)
		v1.POST("/delegations", delegationHandler.SubmitDelegation)
		v1.POST("/delegations/revoke", delegationHandler.RevokeDelegation)

		hashes := v1.Group("/executor/hashes")
		{
			hashes.POST("/batch", executorHandler.BatchHash)
			hashes.POST("/admin", executorHandler.AdminChangeHash)
			hashes.POST("/callers", executorHandler.CallerUpdateHash)
		}
	}

	return router
}

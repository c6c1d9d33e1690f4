package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cyphera/delegation-relay/internal/config"
	"github.com/cyphera/delegation-relay/internal/logger"
	"github.com/cyphera/delegation-relay/internal/server"
	"github.com/cyphera/delegation-relay/internal/services"
	"github.com/cyphera/delegation-relay/internal/signing"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.InitLogger(cfg.Stage)
	defer logger.Sync()

	relayerKey, err := signing.ParseKey(cfg.RelayerKeyHex)
	if err != nil {
		logger.Fatal("Invalid relayer private key", zap.Error(err))
	}
	var authorityKey *ecdsa.PrivateKey
	if cfg.AuthorityKeyHex != "" {
		authorityKey, err = signing.ParseKey(cfg.AuthorityKeyHex)
		if err != nil {
			logger.Fatal("Invalid authority private key", zap.Error(err))
		}
	}
	var defaultDelegate common.Address
	if cfg.DelegateAddress != "" {
		if !common.IsHexAddress(cfg.DelegateAddress) {
			logger.Fatal("Invalid delegate contract address", zap.String("address", cfg.DelegateAddress))
		}
		defaultDelegate = common.HexToAddress(cfg.DelegateAddress)
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		logger.Fatal("Failed to connect to RPC endpoint", zap.Error(err))
	}
	defer client.Close()

	delegationService := services.NewDelegationService(client, logger.Log)

	router := server.NewRouter(server.Dependencies{
		Delegation:      delegationService,
		RelayerKey:      relayerKey,
		AuthorityKey:    authorityKey,
		DefaultDelegate: defaultDelegate,
		APIKey:          cfg.APIKey,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("relayer", signing.AddressOf(relayerKey).Hex()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

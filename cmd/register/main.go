package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/tee"
	"solver/internal/vault"
	"solver/pkg/utils"
)

// Одноразовая регистрация solver'а в registry: проверка среды,
// аттестация, затем запись чексуммы бинаря и кодхэша в контракт.
// Запускается один раз перед первым стартом cmd/solver.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	gate := tee.NewGate(cfg.TEE, logger)
	if err := gate.VerifyEnvironment(); err != nil {
		logger.Fatal("environment verification failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	attestation, err := gate.GenerateAttestation(ctx)
	if err != nil {
		logger.Fatal("attestation failed", zap.Error(err))
	}

	client, err := vault.NewClient(cfg.Vault, logger)
	if err != nil {
		logger.Fatal("failed to create vault client", zap.Error(err))
	}

	registered, err := client.IsRegistered(ctx)
	if err != nil {
		logger.Fatal("registration check failed", zap.Error(err))
	}
	if registered {
		logger.Info("solver already registered", zap.String("account", client.AccountID()))
		return
	}

	txHash, err := client.RegisterSolver(ctx, attestation.Checksum, attestation.Codehash)
	if err != nil {
		logger.Fatal("registration failed", zap.Error(err))
	}

	logger.Info("solver registered",
		zap.String("account", client.AccountID()),
		zap.String("tx_hash", txHash),
		zap.String("checksum", attestation.Checksum),
	)
}

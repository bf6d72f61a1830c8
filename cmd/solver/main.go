package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solver/internal/api"
	"solver/internal/config"
	"solver/internal/feed"
	"solver/internal/liquidity"
	"solver/internal/models"
	"solver/internal/monitor"
	"solver/internal/repository"
	"solver/internal/scheduler"
	"solver/internal/solver"
	"solver/internal/tee"
	"solver/internal/vault"
	"solver/internal/venue"
	"solver/pkg/utils"
)

func main() {
	// .env удобен для локальной разработки; в production переменные
	// приходят из окружения
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

	logger.Info("solver starting",
		zap.Int64s("chain_ids", cfg.Venue.ChainIDs),
		zap.String("tee_mode", cfg.TEE.Mode),
	)

	// ============ Аттестация среды ============
	// Без подтверждённой среды торговать нельзя: любой сбой фатален

	gate := tee.NewGate(cfg.TEE, logger)
	if err := gate.VerifyEnvironment(); err != nil {
		logger.Fatal("environment verification failed", zap.Error(err))
	}

	attestCtx, cancelAttest := context.WithTimeout(context.Background(), time.Minute)
	attestation, err := gate.GenerateAttestation(attestCtx)
	cancelAttest()
	if err != nil {
		logger.Fatal("attestation failed", zap.Error(err))
	}
	logger.Info("environment attested", zap.String("checksum", attestation.Checksum))

	// ============ Settlement ledger ============

	vaultClient, err := vault.NewClient(cfg.Vault, logger)
	if err != nil {
		logger.Fatal("failed to create vault client", zap.Error(err))
	}

	// Незарегистрированный solver не имеет права на капитал пула
	regCtx, cancelReg := context.WithTimeout(context.Background(), 30*time.Second)
	registered, err := vaultClient.IsRegistered(regCtx)
	cancelReg()
	if err != nil {
		logger.Fatal("registration check failed", zap.Error(err))
	}
	if !registered {
		logger.Error("solver is not registered, run cmd/register first")
		os.Exit(1)
	}

	// ============ Опциональная история исполнений ============

	var db *sql.DB
	var history solver.History
	var executionRepo *repository.ExecutionRepository
	if cfg.Database.URL != "" {
		dbCtx, cancelDB := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = repository.Open(dbCtx, cfg.Database.URL)
		cancelDB()
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		executionRepo = repository.NewExecutionRepository(db)
		history = executionRepo
		logger.Info("execution history enabled")
	}

	// ============ Ядро ============

	venueClient := venue.NewClient(cfg.Venue, logger)
	ledger := liquidity.NewLedger(cfg.Solver.SupportedTokens, logger)
	engine := solver.NewEngine(cfg.Solver, venueClient, vaultClient, ledger, history, logger)

	// USD-оценка балансов через кэш цен venue
	prices := func(chainID int64, token string) (float64, bool) {
		priceCtx, cancelPrice := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelPrice()
		usd, ok, err := venueClient.GetTokenPriceUSD(priceCtx, chainID, token)
		if err != nil {
			return 0, false
		}
		return usd, ok
	}
	mon := monitor.New(engine, ledger, cfg.Solver, prices, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Стартовые балансы до первого ордера
	if err := refreshBalances(ctx, vaultClient, ledger); err != nil {
		logger.Fatal("initial balance refresh failed", zap.Error(err))
	}

	// ============ Периодические задачи ============

	sched := scheduler.New(logger)
	sched.Add(scheduler.Task{
		Name:     "balance_refresh",
		Interval: cfg.Scheduler.BalanceInterval,
		Run: func(ctx context.Context) error {
			return refreshBalances(ctx, vaultClient, ledger)
		},
	})
	sched.Add(scheduler.Task{
		Name:     "rebalance_check",
		Interval: cfg.Scheduler.RebalanceInterval,
		Run: func(ctx context.Context) error {
			for _, action := range ledger.DetectImbalances(cfg.Solver.RebalanceThresholdPct) {
				logger.Info("rebalance recommended",
					zap.String("symbol", action.Symbol),
					zap.Int64("from_chain", action.FromChain),
					zap.Int64("to_chain", action.ToChain),
					zap.String("amount", action.Amount.String()),
					zap.String("reason", action.Reason),
				)
			}
			return nil
		},
	})
	sched.Add(scheduler.Task{
		Name:     "metrics_refresh",
		Interval: cfg.Scheduler.MetricsInterval,
		Run: func(ctx context.Context) error {
			mon.RefreshMetrics()
			return nil
		},
	})
	sched.Add(scheduler.Task{
		Name:     "health_check",
		Interval: cfg.Scheduler.HealthInterval,
		Run: func(ctx context.Context) error {
			health := mon.Health()
			if health.Status != monitor.StatusHealthy {
				logger.Warn("health degraded", zap.Any("checks", health.Checks))
			}
			return nil
		},
	})
	sched.Start(ctx)

	// ============ Поток ордеров ============

	poller := feed.NewPoller(venueClient, cfg.Venue.ChainIDs, cfg.Venue.PollInterval, engine.HandleOrder, logger)
	poller.Start(ctx)

	if cfg.Venue.WSURL != "" {
		stream := feed.NewStream(cfg.Venue.WSURL, cfg.Venue.WSReconnectDelay, engine.HandleOrder, logger)
		go stream.Run(ctx)
	}

	// ============ HTTP сервер ============

	handlers := api.NewHandlers(mon, executionRepo, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(handlers, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// ============ Graceful shutdown ============

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Сначала останавливаем источники работы, потом ждём обработки в полёте
	cancel()
	poller.Wait()
	sched.Wait()
	engine.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	logger.Info("solver stopped")
}

// refreshBalances подтягивает тоталы пула и перезаписывает их в леджере
func refreshBalances(ctx context.Context, vaultClient *vault.Client, ledger *liquidity.Ledger) error {
	tokens := ledger.Tokens()
	ids := make([]models.TokenID, 0, len(tokens))
	for _, token := range tokens {
		ids = append(ids, token.ID())
	}

	totals, err := vaultClient.GetBalances(ctx, ids)
	if err != nil {
		return err
	}
	ledger.Refresh(totals)
	return nil
}

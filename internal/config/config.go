package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"solver/internal/models"
	"solver/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Venue     VenueConfig
	Vault     VaultConfig
	Solver    SolverConfig
	TEE       TEEConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера (health/metrics/stats)
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig - настройки Postgres для истории исполнений
// Пустой URL = история не ведётся
type DatabaseConfig struct {
	URL string
}

// VenueConfig - настройки клиента венью (auction relayer API)
type VenueConfig struct {
	APIURL       string
	APIKey       string
	WSURL        string // пустой = стрим ордеров выключен, только polling
	ChainIDs     []int64
	PollInterval time.Duration
	HTTPTimeout  time.Duration

	// Rate limit запросов к API
	RateLimit float64
	RateBurst int

	// Reconnect стрима ордеров
	WSReconnectDelay time.Duration
}

// VaultConfig - настройки settlement-леджера (vault + реестр solver'ов)
type VaultConfig struct {
	NodeURL          string
	AccountID        string
	PrivateKey       string
	RegistryContract string
	VaultContract    string
	PoolID           int
}

// SolverConfig - торговые параметры solver'а
type SolverConfig struct {
	MinProfitBps          float64
	MaxGasPriceGwei       float64
	RebalanceThresholdPct float64
	LiquidityBufferPct    float64
	MinOrderSizeUSD       float64
	MaxOrderSizeUSD       float64
	OrderExpiry           time.Duration
	ConfirmTimeout        time.Duration
	ProcessingTTL         time.Duration // TTL флага обработки ордера

	SupportedTokens []models.Token
}

// TEEConfig - настройки аттестации исполняемой среды
type TEEConfig struct {
	// Mode: "production" - обязательная аттестация через внешний сервис,
	// "development" - явный short-circuit с всегда-валидной записью
	Mode                string
	AttestationEndpoint string
	APIKey              string
	QuotePath           string
	RuntimeSocket       string
}

// SchedulerConfig - интервалы периодических задач
type SchedulerConfig struct {
	BalanceInterval   time.Duration
	RebalanceInterval time.Duration
	MetricsInterval   time.Duration
	HealthInterval    time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// TEE режимы
const (
	TEEModeProduction  = "production"
	TEEModeDevelopment = "development"
)

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Venue: VenueConfig{
			APIURL:           getEnv("VENUE_API_URL", "https://api.1inch.dev/fusion"),
			APIKey:           getEnv("VENUE_API_KEY", ""),
			WSURL:            getEnv("VENUE_WS_URL", ""),
			PollInterval:     getEnvAsDuration("VENUE_POLL_INTERVAL", 5*time.Second),
			HTTPTimeout:      getEnvAsDuration("VENUE_HTTP_TIMEOUT", 30*time.Second),
			RateLimit:        getEnvAsFloat("VENUE_RATE_LIMIT", 10),
			RateBurst:        getEnvAsInt("VENUE_RATE_BURST", 20),
			WSReconnectDelay: getEnvAsDuration("VENUE_WS_RECONNECT_DELAY", 5*time.Second),
		},
		Vault: VaultConfig{
			NodeURL:          getEnv("VAULT_NODE_URL", ""),
			AccountID:        getEnv("VAULT_ACCOUNT_ID", ""),
			PrivateKey:       getEnv("VAULT_PRIVATE_KEY", ""),
			RegistryContract: getEnv("SOLVER_REGISTRY_CONTRACT", ""),
			VaultContract:    getEnv("INTENTS_VAULT_CONTRACT", ""),
			PoolID:           getEnvAsInt("SOLVER_POOL_ID", 0),
		},
		Solver: SolverConfig{
			MinProfitBps:          getEnvAsFloat("MIN_PROFIT_BPS", 30),
			MaxGasPriceGwei:       getEnvAsFloat("MAX_GAS_PRICE_GWEI", 100),
			RebalanceThresholdPct: getEnvAsFloat("REBALANCE_THRESHOLD_PERCENT", 20),
			LiquidityBufferPct:    getEnvAsFloat("LIQUIDITY_BUFFER_PERCENT", 10),
			MinOrderSizeUSD:       getEnvAsFloat("MIN_ORDER_SIZE_USD", 10),
			MaxOrderSizeUSD:       getEnvAsFloat("MAX_ORDER_SIZE_USD", 1000000),
			OrderExpiry:           getEnvAsDuration("ORDER_EXPIRY", 180*time.Second),
			ConfirmTimeout:        getEnvAsDuration("CONFIRM_TIMEOUT", 2*time.Minute),
			ProcessingTTL:         getEnvAsDuration("PROCESSING_TTL", 5*time.Minute),
		},
		TEE: TEEConfig{
			// Без дефолта: development-обход аттестации включается
			// только явным значением
			Mode:                getEnv("TEE_MODE", ""),
			AttestationEndpoint: getEnv("TEE_ATTESTATION_ENDPOINT", ""),
			APIKey:              getEnv("TEE_API_KEY", ""),
			QuotePath:           getEnv("TEE_QUOTE_PATH", "/dev/attestation/quote"),
			RuntimeSocket:       getEnv("TEE_RUNTIME_SOCKET", "/var/run/tappd.sock"),
		},
		Scheduler: SchedulerConfig{
			BalanceInterval:   getEnvAsDuration("BALANCE_INTERVAL", 1*time.Minute),
			RebalanceInterval: getEnvAsDuration("REBALANCE_INTERVAL", 5*time.Minute),
			MetricsInterval:   getEnvAsDuration("METRICS_INTERVAL", 30*time.Second),
			HealthInterval:    getEnvAsDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	chains, err := parseChainIDs(getEnv("VENUE_CHAIN_IDS", "1"))
	if err != nil {
		return nil, err
	}
	cfg.Venue.ChainIDs = chains

	tokens, err := parseSupportedTokens(getEnv("SUPPORTED_TOKENS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Solver.SupportedTokens = tokens

	// Запечатанный ключ имеет приоритет: на диске и в окружении enclave
	// приватный ключ хранится только в зашифрованном виде
	if sealed := getEnv("VAULT_PRIVATE_KEY_SEALED", ""); sealed != "" {
		key, err := crypto.Unseal(sealed, []byte(getEnv("SEAL_KEY", "")))
		if err != nil {
			return nil, fmt.Errorf("VAULT_PRIVATE_KEY_SEALED: %w", err)
		}
		cfg.Vault.PrivateKey = string(key)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет критичные параметры и числовые диапазоны
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Venue.APIKey == "" {
		return fmt.Errorf("VENUE_API_KEY is required")
	}

	if len(c.Venue.ChainIDs) == 0 {
		return fmt.Errorf("VENUE_CHAIN_IDS must list at least one chain")
	}

	for _, id := range c.Venue.ChainIDs {
		if _, ok := Chains[id]; !ok {
			return fmt.Errorf("VENUE_CHAIN_IDS contains unsupported chain %d", id)
		}
	}

	if c.Venue.PollInterval < time.Second {
		return fmt.Errorf("VENUE_POLL_INTERVAL must be at least 1s, got %v", c.Venue.PollInterval)
	}

	if c.Vault.AccountID == "" {
		return fmt.Errorf("VAULT_ACCOUNT_ID is required")
	}

	if c.Vault.RegistryContract == "" || c.Vault.VaultContract == "" {
		return fmt.Errorf("SOLVER_REGISTRY_CONTRACT and INTENTS_VAULT_CONTRACT are required")
	}

	if c.Solver.MinProfitBps < 0 || c.Solver.MinProfitBps > 10000 {
		return fmt.Errorf("MIN_PROFIT_BPS must be in [0, 10000], got %v", c.Solver.MinProfitBps)
	}

	if c.Solver.RebalanceThresholdPct < 0 || c.Solver.RebalanceThresholdPct > 100 {
		return fmt.Errorf("REBALANCE_THRESHOLD_PERCENT must be in [0, 100], got %v", c.Solver.RebalanceThresholdPct)
	}

	if c.Solver.LiquidityBufferPct < 0 || c.Solver.LiquidityBufferPct > 100 {
		return fmt.Errorf("LIQUIDITY_BUFFER_PERCENT must be in [0, 100], got %v", c.Solver.LiquidityBufferPct)
	}

	if c.Solver.MinOrderSizeUSD < 0 {
		return fmt.Errorf("MIN_ORDER_SIZE_USD cannot be negative, got %v", c.Solver.MinOrderSizeUSD)
	}

	if c.Solver.MaxOrderSizeUSD < c.Solver.MinOrderSizeUSD {
		return fmt.Errorf("MAX_ORDER_SIZE_USD (%v) must be >= MIN_ORDER_SIZE_USD (%v)",
			c.Solver.MaxOrderSizeUSD, c.Solver.MinOrderSizeUSD)
	}

	if c.Solver.OrderExpiry < 30*time.Second {
		return fmt.Errorf("ORDER_EXPIRY must be at least 30s, got %v", c.Solver.OrderExpiry)
	}

	if c.Solver.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT must be positive, got %v", c.Solver.ConfirmTimeout)
	}

	if c.Solver.ProcessingTTL <= 0 {
		return fmt.Errorf("PROCESSING_TTL must be positive, got %v", c.Solver.ProcessingTTL)
	}

	if len(c.Solver.SupportedTokens) == 0 {
		return fmt.Errorf("SUPPORTED_TOKENS must list at least one token")
	}

	if c.TEE.Mode == "" {
		return fmt.Errorf("TEE_MODE is required (%q or %q)",
			TEEModeProduction, TEEModeDevelopment)
	}

	if c.TEE.Mode != TEEModeProduction && c.TEE.Mode != TEEModeDevelopment {
		return fmt.Errorf("TEE_MODE must be %q or %q, got %q",
			TEEModeProduction, TEEModeDevelopment, c.TEE.Mode)
	}

	if c.TEE.Mode == TEEModeProduction && c.TEE.AttestationEndpoint == "" {
		return fmt.Errorf("TEE_ATTESTATION_ENDPOINT is required in production TEE mode")
	}

	if c.Scheduler.BalanceInterval < time.Second || c.Scheduler.RebalanceInterval < time.Second ||
		c.Scheduler.MetricsInterval < time.Second || c.Scheduler.HealthInterval < time.Second {
		return fmt.Errorf("scheduler intervals must be at least 1s")
	}

	return nil
}

// parseChainIDs разбирает список сетей "1,137,42161"
func parseChainIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("VENUE_CHAIN_IDS: invalid chain id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseSupportedTokens разбирает список токенов "chainId:address:symbol,..."
func parseSupportedTokens(s string) ([]models.Token, error) {
	var tokens []models.Token
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("SUPPORTED_TOKENS: expected chainId:address:symbol, got %q", part)
		}
		chainID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SUPPORTED_TOKENS: invalid chain id %q", fields[0])
		}
		if fields[1] == "" || fields[2] == "" {
			return nil, fmt.Errorf("SUPPORTED_TOKENS: empty address or symbol in %q", part)
		}
		tokens = append(tokens, models.Token{
			ChainID:  chainID,
			Address:  strings.ToLower(fields[1]),
			Symbol:   strings.ToUpper(fields[2]),
			Decimals: 18, // дефолт; точное значение подтягивается из сети
		})
	}
	return tokens, nil
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package tee

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/models"
	"solver/pkg/crypto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки гейта
var (
	ErrNoRuntimeSocket    = errors.New("tee runtime socket not found")
	ErrQuoteUnavailable   = errors.New("attestation quote unavailable")
	ErrAttestationInvalid = errors.New("attestation rejected by authority")
	ErrNotAttested        = errors.New("environment not attested")
)

// Gate - двухфазная проверка доверенной среды исполнения
//
// Фаза 1 - VerifyEnvironment: процесс действительно внутри enclave
// (есть runtime socket). Фаза 2 - GenerateAttestation: quote среды
// подтверждён внешним authority. Обе фазы обязательны в production;
// development-режим - явный short-circuit с всегда-валидной записью.
type Gate struct {
	cfg    config.TEEConfig
	http   *http.Client
	logger *zap.Logger

	mu          sync.RWMutex
	attestation *models.Attestation
}

// NewGate создаёт гейт аттестации
func NewGate(cfg config.TEEConfig, logger *zap.Logger) *Gate {
	return &Gate{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.Named("tee"),
	}
}

// VerifyEnvironment проверяет что процесс работает внутри enclave
func (g *Gate) VerifyEnvironment() error {
	if g.cfg.Mode == config.TEEModeDevelopment {
		g.logger.Warn("tee verification skipped: development mode")
		return nil
	}

	info, err := os.Stat(g.cfg.RuntimeSocket)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoRuntimeSocket, g.cfg.RuntimeSocket)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%w: %s is not a socket", ErrNoRuntimeSocket, g.cfg.RuntimeSocket)
	}

	g.logger.Info("tee runtime socket found", zap.String("socket", g.cfg.RuntimeSocket))
	return nil
}

// GenerateAttestation получает quote среды и подтверждает его у authority
//
// Успешный результат сохраняется в гейте; все последующие проверки
// IsAttested опираются на него.
func (g *Gate) GenerateAttestation(ctx context.Context) (*models.Attestation, error) {
	checksum, err := executableChecksum()
	if err != nil {
		return nil, fmt.Errorf("executable checksum: %w", err)
	}

	if g.cfg.Mode == config.TEEModeDevelopment {
		att := &models.Attestation{
			Quote:     "dev-quote",
			Checksum:  checksum,
			Codehash:  "dev-codehash",
			IsValid:   true,
			Timestamp: time.Now(),
		}
		g.store(att)
		g.logger.Warn("using development attestation")
		return att, nil
	}

	quote, err := os.ReadFile(g.cfg.QuotePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	codehash, valid, err := g.submitQuote(ctx, quote, checksum)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrAttestationInvalid
	}

	att := &models.Attestation{
		Quote:     string(quote),
		Checksum:  checksum,
		Codehash:  codehash,
		IsValid:   true,
		Timestamp: time.Now(),
	}
	g.store(att)

	g.logger.Info("attestation confirmed",
		zap.String("checksum", checksum),
		zap.String("codehash", codehash),
	)
	return att, nil
}

// submitQuote отправляет quote внешнему authority на проверку
func (g *Gate) submitQuote(ctx context.Context, quote []byte, checksum string) (string, bool, error) {
	body, err := json.Marshal(map[string]string{
		"quote":    string(quote),
		"checksum": checksum,
	})
	if err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.AttestationEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("attestation authority: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("attestation authority returned %d", resp.StatusCode)
	}

	var result struct {
		Codehash string `json:"codehash"`
		IsValid  bool   `json:"isValid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false, fmt.Errorf("decode attestation response: %w", err)
	}
	return result.Codehash, result.IsValid, nil
}

// IsAttested сообщает прошла ли среда обе фазы проверки
func (g *Gate) IsAttested() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.attestation != nil && g.attestation.IsValid
}

// Attestation возвращает текущую запись аттестации
func (g *Gate) Attestation() (*models.Attestation, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.attestation == nil {
		return nil, ErrNotAttested
	}
	copied := *g.attestation
	return &copied, nil
}

// Checksum возвращает чексумму бинаря из текущей аттестации
func (g *Gate) Checksum() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.attestation == nil {
		return ""
	}
	return g.attestation.Checksum
}

// Codehash возвращает кодхэш среды из текущей аттестации
func (g *Gate) Codehash() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.attestation == nil {
		return ""
	}
	return g.attestation.Codehash
}

func (g *Gate) store(att *models.Attestation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attestation = att
}

func executableChecksum() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", err
	}
	return crypto.FileChecksum(path)
}

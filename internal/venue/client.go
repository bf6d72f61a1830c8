package venue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solver/internal/config"
	"solver/internal/models"
	"solver/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnauthorized - венью отклонило API ключ
var ErrUnauthorized = errors.New("venue rejected api key")

// Client - HTTP клиент relayer API венью
//
// Все ошибки сети и 5xx трактуются как временные и ретраятся с backoff;
// 401 - перманентная ошибка конфигурации. Цены и газ кэшируются с TTL,
// частота запросов ограничена token-bucket лимитером.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	cache    *priceCache
	retryCfg retry.Config
	logger   *zap.Logger
}

// NewClient создаёт клиент венью
func NewClient(cfg config.VenueConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.APIURL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cache:    newPriceCache(),
		retryCfg: retry.NetworkConfig(),
		logger:   logger.Named("venue"),
	}
}

// ListActiveOrders возвращает активные ордера сети
func (c *Client) ListActiveOrders(ctx context.Context, chainID int64) ([]*models.Order, error) {
	var resp activeOrdersResponse
	path := fmt.Sprintf("/relayer/v1.0/%d/orders/active", chainID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list active orders chain %d: %w", chainID, err)
	}

	now := time.Now()
	orders := make([]*models.Order, 0, len(resp.Orders))
	for _, raw := range resp.Orders {
		order, err := raw.toModel(chainID, now)
		if err != nil {
			// Некорректный ордер не валит весь тик
			c.logger.Warn("skipping malformed order",
				zap.String("order_hash", raw.OrderHash),
				zap.Error(err),
			)
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// GetOrderStatus возвращает статус ордера на венью
func (c *Client) GetOrderStatus(ctx context.Context, chainID int64, orderHash string) (string, error) {
	var resp statusResponse
	path := fmt.Sprintf("/relayer/v1.0/%d/orders/%s/status", chainID, orderHash)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("order status %s: %w", orderHash, err)
	}
	return mapOrderStatus(resp.Status), nil
}

// GetTokenPriceUSD возвращает USD-цену токена
//
// ok=false означает отсутствие цены у венью - такой токен пропускается,
// это не ошибка. Сетевые сбои возвращаются ошибкой.
func (c *Client) GetTokenPriceUSD(ctx context.Context, chainID int64, token string) (float64, bool, error) {
	key := priceKey(chainID, token)
	if price, ok := c.cache.get(key); ok {
		return price, true, nil
	}

	var resp map[string]float64
	path := fmt.Sprintf("/price/v1.1/%d?addresses=%s&currency=USD", chainID, strings.ToLower(token))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return 0, false, fmt.Errorf("token price %d:%s: %w", chainID, token, err)
	}

	price, ok := resp[strings.ToLower(token)]
	if !ok || price <= 0 {
		return 0, false, nil
	}

	c.cache.set(key, price, priceTTL)
	return price, true, nil
}

// GetGasPrice возвращает цену газа сети в gwei
func (c *Client) GetGasPrice(ctx context.Context, chainID int64) (float64, error) {
	key := gasKey(chainID)
	if gwei, ok := c.cache.get(key); ok {
		return gwei, nil
	}

	var resp gasPriceResponse
	path := fmt.Sprintf("/gas/v1.0/%d", chainID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return 0, fmt.Errorf("gas price chain %d: %w", chainID, err)
	}

	if resp.GasPriceGwei <= 0 {
		return 0, fmt.Errorf("gas price chain %d: non-positive value %v", chainID, resp.GasPriceGwei)
	}

	c.cache.set(key, resp.GasPriceGwei, gasTTL)
	return resp.GasPriceGwei, nil
}

// ============================================================
// Транспорт
// ============================================================

// getJSON выполняет GET с rate limit'ом и retry на временных ошибках
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	operation := func() (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return struct{}{}, retry.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return struct{}{}, retry.Permanent(ErrUnauthorized)
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("venue returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, retry.Permanent(fmt.Errorf("venue returned %d: %s", resp.StatusCode, data))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("decode response: %w", err)
		}
		return struct{}{}, nil
	}

	cfg := c.retryCfg
	cfg.RetryIf = retry.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("retrying venue request",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	_, err := retry.DoWithResult(ctx, operation, cfg)
	return err
}

// mapOrderStatus приводит статус API к доменным константам
func mapOrderStatus(apiStatus string) string {
	switch strings.ToLower(apiStatus) {
	case "open", "pending":
		return models.OrderStatusPending
	case "filled":
		return models.OrderStatusFilled
	case "partially-filled", "partially_filled":
		return models.OrderStatusPartiallyFilled
	case "cancelled":
		return models.OrderStatusCancelled
	case "expired":
		return models.OrderStatusExpired
	default:
		return models.OrderStatusPending
	}
}

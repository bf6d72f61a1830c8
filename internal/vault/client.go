package vault

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/models"
	"solver/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки клиента
var (
	ErrInvalidPrivateKey = errors.New("invalid vault private key")
	ErrRPCFailure        = errors.New("vault rpc failure")
)

// Client - клиент settlement-ledger ноды (контракты registry и vault)
//
// Транспорт - JSON-RPC 2.0 поверх HTTP POST. View-методы идут без подписи,
// change-методы подписываются ed25519 ключом аккаунта solver'а.
type Client struct {
	nodeURL          string
	accountID        string
	privateKey       ed25519.PrivateKey
	registryContract string
	vaultContract    string
	poolID           int

	http      *http.Client
	retryCfg  retry.Config
	requestID atomic.Int64
	logger    *zap.Logger
}

// NewClient создаёт клиент settlement-ledger ноды
//
// PrivateKey - hex seed (32 байта) или полный ключ (64 байта).
func NewClient(cfg config.VaultConfig, logger *zap.Logger) (*Client, error) {
	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		nodeURL:          cfg.NodeURL,
		accountID:        cfg.AccountID,
		privateKey:       key,
		registryContract: cfg.RegistryContract,
		vaultContract:    cfg.VaultContract,
		poolID:           cfg.PoolID,
		http:             &http.Client{Timeout: 15 * time.Second},
		retryCfg:         retry.NetworkConfig(),
		logger:           logger.Named("vault"),
	}, nil
}

func parsePrivateKey(raw string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	switch len(seed) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(seed), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(seed), nil
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidPrivateKey, len(seed))
	}
}

// AccountID возвращает идентификатор аккаунта solver'а
func (c *Client) AccountID() string {
	return c.accountID
}

// ============================================================
// Vault контракт
// ============================================================

// GetBalances возвращает общие балансы пула по списку токенов
//
// Ответ используется ledger'ом для периодического refresh: перезаписывает
// только total, locked остаётся на стороне процесса.
func (c *Client) GetBalances(ctx context.Context, tokenIDs []models.TokenID) (map[models.TokenID]decimal.Decimal, error) {
	params := map[string]interface{}{
		"contract": c.vaultContract,
		"poolId":   c.poolID,
		"tokenIds": tokenIDs,
	}

	var raw map[string]string
	if err := c.view(ctx, "vault_getBalances", params, &raw); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}

	balances := make(map[models.TokenID]decimal.Decimal, len(raw))
	for id, amount := range raw {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			c.logger.Warn("skipping unparseable balance",
				zap.String("token_id", id),
				zap.String("amount", amount),
			)
			continue
		}
		balances[models.TokenID(id)] = value
	}
	return balances, nil
}

// ExecuteOrder исполняет ордер средствами пула, возвращает хэш транзакции
func (c *Client) ExecuteOrder(ctx context.Context, params models.ExecutionParams) (string, error) {
	args := map[string]interface{}{
		"contract":       c.vaultContract,
		"poolId":         c.poolID,
		"orderHash":      params.Order.OrderHash,
		"chainId":        params.Order.ChainID,
		"takerAsset":     params.Order.TakerAsset,
		"executionPrice": params.ExecutionPrice.String(),
		"signature":      params.Order.Signature,
		"deadline":       params.Deadline.Unix(),
	}

	var resp struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := c.change(ctx, "vault_executeOrder", args, &resp); err != nil {
		return "", fmt.Errorf("execute order %s: %w", params.Order.OrderHash, err)
	}
	return resp.TransactionHash, nil
}

// Withdraw выводит средства пула на адрес целевой сети
//
// Используется rebalance-механикой для перемещения капитала между сетями.
func (c *Client) Withdraw(ctx context.Context, token models.Token, amount decimal.Decimal, recipient string) (string, error) {
	args := map[string]interface{}{
		"contract":  c.vaultContract,
		"poolId":    c.poolID,
		"tokenId":   token.ID(),
		"amount":    amount.String(),
		"recipient": recipient,
	}

	var resp struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := c.change(ctx, "vault_withdraw", args, &resp); err != nil {
		return "", fmt.Errorf("withdraw %s: %w", token.ID(), err)
	}
	return resp.TransactionHash, nil
}

// ============================================================
// Registry контракт
// ============================================================

// IsRegistered проверяет зарегистрирован ли solver в registry
func (c *Client) IsRegistered(ctx context.Context) (bool, error) {
	params := map[string]interface{}{
		"contract":  c.registryContract,
		"accountId": c.accountID,
		"poolId":    c.poolID,
	}

	var resp struct {
		Registered bool `json:"registered"`
	}
	if err := c.view(ctx, "registry_isRegistered", params, &resp); err != nil {
		return false, fmt.Errorf("registry check: %w", err)
	}
	return resp.Registered, nil
}

// RegisterSolver регистрирует solver с чексуммой бинаря и кодхэшем среды
func (c *Client) RegisterSolver(ctx context.Context, checksum, codehash string) (string, error) {
	args := map[string]interface{}{
		"contract":  c.registryContract,
		"accountId": c.accountID,
		"poolId":    c.poolID,
		"checksum":  checksum,
		"codehash":  codehash,
	}

	var resp struct {
		TransactionHash string `json:"transactionHash"`
	}
	if err := c.change(ctx, "registry_registerSolver", args, &resp); err != nil {
		return "", fmt.Errorf("register solver: %w", err)
	}
	return resp.TransactionHash, nil
}

// ============================================================
// JSON-RPC транспорт
// ============================================================

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

// view - чтение состояния без подписи
func (c *Client) view(ctx context.Context, method string, params, out interface{}) error {
	return c.call(ctx, method, params, out)
}

// change - мутация состояния, параметры подписываются ключом аккаунта
func (c *Client) change(ctx context.Context, method string, args map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}

	signature := ed25519.Sign(c.privateKey, payload)
	params := map[string]interface{}{
		"signerId":  c.accountID,
		"args":      args,
		"signature": hex.EncodeToString(signature),
	}
	return c.call(ctx, method, params, out)
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	request := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return struct{}{}, fmt.Errorf("%w: node returned %d", ErrRPCFailure, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, retry.Permanent(fmt.Errorf("%w: node returned %d", ErrRPCFailure, resp.StatusCode))
		}

		var rpcResp rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
			return struct{}{}, fmt.Errorf("decode rpc response: %w", err)
		}
		if rpcResp.Error != nil {
			// Ошибки контракта детерминированы, повторять бессмысленно
			return struct{}{}, retry.Permanent(fmt.Errorf("%w: %d %s", ErrRPCFailure, rpcResp.Error.Code, rpcResp.Error.Message))
		}
		if out != nil {
			if err := json.Unmarshal(rpcResp.Result, out); err != nil {
				return struct{}{}, fmt.Errorf("decode rpc result: %w", err)
			}
		}
		return struct{}{}, nil
	}

	cfg := c.retryCfg
	cfg.RetryIf = retry.IsRetryable
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("retrying rpc call",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	_, err = retry.DoWithResult(ctx, operation, cfg)
	return err
}

package solver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/feed"
	"solver/internal/liquidity"
	"solver/internal/models"
	"solver/pkg/utils"
)

// ============================================================
// Исполнительное ядро
// ============================================================
//
// Путь ордера: дедупликация арендой -> валидация -> оценка профитности
// -> блокировка капитала -> сабмит -> ожидание подтверждения.
// Любой отказ после блокировки возвращает ровно заблокированную сумму.
// Каждый ордер обрабатывается своей goroutine с собственной границей
// ошибок: паника одной обработки не валит процесс.

// Ошибки ядра
var (
	ErrOrderExpired = errors.New("order deadline passed")
	ErrNotConfirmed = errors.New("execution not confirmed in time")
)

// PriceVenue - рыночные данные и статусы ордеров венью
type PriceVenue interface {
	GetTokenPriceUSD(ctx context.Context, chainID int64, token string) (float64, bool, error)
	GetGasPrice(ctx context.Context, chainID int64) (float64, error)
	GetOrderStatus(ctx context.Context, chainID int64, orderHash string) (string, error)
}

// Executor - исполнение ордера средствами пула
type Executor interface {
	ExecuteOrder(ctx context.Context, params models.ExecutionParams) (string, error)
}

// History - опциональная запись истории исполнений
type History interface {
	SaveExecution(ctx context.Context, record *models.ExecutionRecord) error
}

// SignatureVerifier проверяет подпись ордера перед исполнением
type SignatureVerifier interface {
	VerifySignature(order *models.Order) error
}

// permissiveVerifier принимает любой ордер с непустой подписью;
// криптографическая проверка подписи живёт за границей ядра
type permissiveVerifier struct{}

func (permissiveVerifier) VerifySignature(order *models.Order) error {
	if order.Signature == "" {
		return errors.New("missing signature")
	}
	return nil
}

// Engine - координатор исполнения ордеров
type Engine struct {
	cfg      config.SolverConfig
	venue    PriceVenue
	executor Executor
	ledger   *liquidity.Ledger
	leases   *feed.LeaseSet
	history  History // nil = история не ведётся
	verifier SignatureVerifier
	logger   *zap.Logger

	confirmPoll time.Duration
	now         func() time.Time

	mu    sync.Mutex
	stats Stats
	wg    sync.WaitGroup
}

// Stats - накопительная статистика ядра с момента старта
type Stats struct {
	Processed      uint64  `json:"processed"`
	Skipped        uint64  `json:"skipped"`
	Confirmed      uint64  `json:"confirmed"`
	Failed         uint64  `json:"failed"`
	TotalProfitUSD float64 `json:"total_profit_usd"`
	TotalGasUSD    float64 `json:"total_gas_usd"`
}

// NewEngine создаёт исполнительное ядро
func NewEngine(
	cfg config.SolverConfig,
	venue PriceVenue,
	executor Executor,
	ledger *liquidity.Ledger,
	history History,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		venue:       venue,
		executor:    executor,
		ledger:      ledger,
		leases:      feed.NewLeaseSet(cfg.ProcessingTTL),
		history:     history,
		verifier:    permissiveVerifier{},
		logger:      logger.Named("engine"),
		confirmPoll: 2 * time.Second,
		now:         time.Now,
	}
}

// SetSignatureVerifier подменяет проверку подписи ордеров
func (e *Engine) SetSignatureVerifier(v SignatureVerifier) {
	e.verifier = v
}

// HandleOrder - точка входа для поллера и стрима
//
// Аренда берётся до запуска goroutine: повторная доставка того же
// ордера (второй источник, следующий тик) отсекается здесь.
func (e *Engine) HandleOrder(ctx context.Context, order *models.Order) {
	if !e.leases.Acquire(order.OrderHash) {
		return
	}

	OrdersDiscovered.WithLabelValues(chainLabel(order.ChainID)).Inc()
	ActiveExecutions.Inc()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer ActiveExecutions.Dec()
		defer e.leases.Release(order.OrderHash)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("panic in order processing",
					zap.String("order_hash", order.OrderHash),
					zap.Any("panic", r),
				)
			}
		}()

		e.process(ctx, order)
	}()
}

// Wait блокируется до завершения всех запущенных обработок
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Stats возвращает снимок статистики
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// process ведёт ордер через машину состояний
func (e *Engine) process(ctx context.Context, order *models.Order) {
	chain := chainLabel(order.ChainID)
	logger := e.logger.With(
		zap.String("order_hash", order.OrderHash),
		zap.Int64("chain_id", order.ChainID),
	)

	state := StateDiscovered
	e.bump(func(s *Stats) { s.Processed++ })

	if err := e.validate(order); err != nil {
		e.skip(&state, chain, "invalid", logger, err)
		return
	}
	e.advance(logger, &state, StateValidated)

	// Аукцион, закончившийся давно и так и не исполненный, с большой
	// вероятностью уже не наполняем по конечной цене
	if e.cfg.OrderExpiry > 0 && e.now().Sub(order.AuctionEndTime) > e.cfg.OrderExpiry {
		e.skip(&state, chain, "stale_auction", logger, nil)
		return
	}

	eval, skipReason, err := e.evaluate(ctx, order)
	if err != nil {
		logger.Error("order evaluation failed", zap.Error(err))
		e.advance(logger, &state, StateFailed)
		e.bump(func(s *Stats) { s.Skipped++ })
		return
	}
	if skipReason != "" {
		e.skip(&state, chain, skipReason, logger, nil)
		return
	}

	ProfitObserved.WithLabelValues(chain).Observe(eval.ProfitBps)

	if eval.ProfitBps < e.cfg.MinProfitBps {
		logger.Debug("order below profit threshold",
			zap.Float64("profit_bps", eval.ProfitBps),
			zap.Float64("min_bps", e.cfg.MinProfitBps),
		)
		e.skip(&state, chain, "unprofitable", logger, nil)
		return
	}

	if eval.InputUSD < e.cfg.MinOrderSizeUSD || eval.InputUSD > e.cfg.MaxOrderSizeUSD {
		e.skip(&state, chain, "size", logger, nil)
		return
	}

	// Дедлайн проверяется перед блокировкой: капитал не трогаем
	// ради ордера, который уже не исполнить
	if order.Expired(e.now()) {
		e.skip(&state, chain, "expired", logger, ErrOrderExpired)
		return
	}

	params := models.ExecutionParams{
		Order:              order,
		ExecutionPrice:     eval.ExecutionPrice,
		EstimatedProfitUSD: eval.NetProfitUSD,
		GasCostUSD:         eval.GasCostUSD(),
		Deadline:           order.Deadline,
	}

	// Блокировка отдаваемого капитала: taker-актив по цене аукциона
	lockAmount := eval.ExecutionPrice
	if err := e.ledger.Lock(order.ChainID, order.TakerAsset, lockAmount); err != nil {
		e.skip(&state, chain, "insufficient_liquidity", logger, err)
		return
	}
	e.advance(logger, &state, StateLiquidityLocked)

	startedAt := e.now()
	txHash, err := e.executor.ExecuteOrder(ctx, params)
	if err != nil {
		// Failed -> Unlocked: возвращаем ровно заблокированную сумму
		e.advance(logger, &state, StateFailed)
		e.ledger.Unlock(order.ChainID, order.TakerAsset, lockAmount)
		e.advance(logger, &state, StateUnlocked)
		e.fail(ctx, chain, params, logger, fmt.Errorf("submission: %w", err))
		return
	}
	e.advance(logger, &state, StateSubmitted)

	logger.Info("order submitted",
		zap.String("tx_hash", txHash),
		zap.String("execution_price", eval.ExecutionPrice.String()),
		zap.Float64("expected_profit_usd", eval.NetProfitUSD),
	)

	if err := e.awaitConfirmation(ctx, order); err != nil {
		e.advance(logger, &state, StateFailed)
		e.ledger.Unlock(order.ChainID, order.TakerAsset, lockAmount)
		e.advance(logger, &state, StateUnlocked)
		e.fail(ctx, chain, params, logger, err)
		return
	}

	// Исполненный капитал потрачен: резерв держим до ближайшего
	// refresh, иначе available временно завысится на потраченное
	e.advance(logger, &state, StateConfirmed)
	duration := e.now().Sub(startedAt).Seconds()
	RecordExecution(chain, true, eval.NetProfitUSD, params.GasCostUSD, duration)
	e.bump(func(s *Stats) {
		s.Confirmed++
		s.TotalProfitUSD += eval.NetProfitUSD
		s.TotalGasUSD += params.GasCostUSD
	})

	logger.Info("order confirmed",
		zap.Stringer("state", state),
		zap.Float64("profit_usd", eval.NetProfitUSD),
		zap.Float64("duration_sec", duration),
	)

	e.record(ctx, params, models.ExecutionStatusConfirmed, "")
}

// advance переводит попытку в next; нарушение графа переходов - баг,
// фиксируем его в логе, но обработку не прерываем
func (e *Engine) advance(logger *zap.Logger, state *ExecutionState, next ExecutionState) {
	if !CanTransition(*state, next) {
		logger.Error("invalid state transition",
			zap.Stringer("from", *state),
			zap.Stringer("to", next),
		)
	}
	*state = next
}

// validate проверяет форму ордера
func (e *Engine) validate(order *models.Order) error {
	if err := utils.ValidateOrderHash(order.OrderHash); err != nil {
		return fmt.Errorf("order hash: %w", err)
	}
	if err := utils.ValidateAddress(order.Maker); err != nil {
		return fmt.Errorf("maker: %w", err)
	}
	if err := utils.ValidateAddress(order.MakerAsset); err != nil {
		return fmt.Errorf("maker asset: %w", err)
	}
	if err := utils.ValidateAddress(order.TakerAsset); err != nil {
		return fmt.Errorf("taker asset: %w", err)
	}
	if err := e.verifier.VerifySignature(order); err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	if !order.MakingAmount.IsPositive() || !order.TakingAmount.IsPositive() {
		return errors.New("non-positive amounts")
	}
	return nil
}

// fullEvaluation - оценка с запомненными входами газа
type fullEvaluation struct {
	Evaluation
	gasCostUSD float64
}

func (f fullEvaluation) GasCostUSD() float64 { return f.gasCostUSD }

// evaluate собирает рыночные входы и считает профит
//
// Отсутствие цены любого из токенов - не ошибка: такой ордер
// неоцениваем и пропускается.
func (e *Engine) evaluate(ctx context.Context, order *models.Order) (fullEvaluation, string, error) {
	var zero fullEvaluation

	makerUSD, ok, err := e.venue.GetTokenPriceUSD(ctx, order.ChainID, order.MakerAsset)
	if err != nil {
		return zero, "", err
	}
	if !ok {
		return zero, "no_price", nil
	}

	takerUSD, ok, err := e.venue.GetTokenPriceUSD(ctx, order.ChainID, order.TakerAsset)
	if err != nil {
		return zero, "", err
	}
	if !ok {
		return zero, "no_price", nil
	}

	gasPriceGwei, err := e.venue.GetGasPrice(ctx, order.ChainID)
	if err != nil {
		return zero, "", err
	}
	if gasPriceGwei > e.cfg.MaxGasPriceGwei {
		return zero, "gas_too_high", nil
	}

	chainInfo, ok := config.Chains[order.ChainID]
	if !ok {
		return zero, "unsupported_chain", nil
	}
	nativeUSD, ok, err := e.venue.GetTokenPriceUSD(ctx, order.ChainID, chainInfo.NativeToken)
	if err != nil {
		return zero, "", err
	}
	if !ok {
		return zero, "no_price", nil
	}

	gasCostUSD := EstimateGasCostUSD(order, gasPriceGwei, nativeUSD)
	eval := EvaluateOrder(order, e.now(), Quote{
		MakerPriceUSD: makerUSD,
		TakerPriceUSD: takerUSD,
		GasCostUSD:    gasCostUSD,
	})

	return fullEvaluation{Evaluation: eval, gasCostUSD: gasCostUSD}, "", nil
}

// awaitConfirmation опрашивает статус ордера до подтверждения или таймаута
func (e *Engine) awaitConfirmation(ctx context.Context, order *models.Order) error {
	deadline := e.now().Add(e.cfg.ConfirmTimeout)

	ticker := time.NewTicker(e.confirmPoll)
	defer ticker.Stop()

	for {
		status, err := e.venue.GetOrderStatus(ctx, order.ChainID, order.OrderHash)
		if err == nil {
			switch status {
			case models.OrderStatusFilled:
				return nil
			case models.OrderStatusCancelled, models.OrderStatusExpired:
				return fmt.Errorf("order became %s", status)
			}
		} else {
			e.logger.Warn("status poll failed",
				zap.String("order_hash", order.OrderHash),
				zap.Error(err),
			)
		}

		if !e.now().Before(deadline) {
			return ErrNotConfirmed
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// skip завершает попытку отказом без исполнения
func (e *Engine) skip(state *ExecutionState, chain, reason string, logger *zap.Logger, err error) {
	e.advance(logger, state, StateFailed)
	RecordSkip(chain, reason)
	e.bump(func(s *Stats) { s.Skipped++ })
	if err != nil {
		logger.Debug("order skipped", zap.String("reason", reason), zap.Error(err))
	}
}

func (e *Engine) fail(ctx context.Context, chain string, params models.ExecutionParams, logger *zap.Logger, err error) {
	RecordExecution(chain, false, 0, 0, 0)
	e.bump(func(s *Stats) { s.Failed++ })
	logger.Error("order execution failed", zap.Error(err))
	e.record(ctx, params, models.ExecutionStatusFailed, err.Error())
}

// record пишет запись истории, если репозиторий подключён
func (e *Engine) record(ctx context.Context, params models.ExecutionParams, status, errMsg string) {
	if e.history == nil {
		return
	}

	now := e.now()
	rec := &models.ExecutionRecord{
		OrderHash:      params.Order.OrderHash,
		ChainID:        params.Order.ChainID,
		TakerAsset:     params.Order.TakerAsset,
		ExecutionPrice: params.ExecutionPrice.String(),
		ProfitUSD:      params.EstimatedProfitUSD,
		GasCostUSD:     params.GasCostUSD,
		Status:         status,
		ErrorMessage:   errMsg,
		CreatedAt:      now,
	}
	if status == models.ExecutionStatusConfirmed {
		rec.ConfirmedAt = &now
	}

	if err := e.history.SaveExecution(ctx, rec); err != nil {
		e.logger.Warn("failed to save execution record",
			zap.String("order_hash", rec.OrderHash),
			zap.Error(err),
		)
	}
}

func (e *Engine) bump(fn func(*Stats)) {
	e.mu.Lock()
	fn(&e.stats)
	e.mu.Unlock()
}

func chainLabel(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

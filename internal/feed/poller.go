package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solver/internal/models"
)

// OrderSource - источник активных ордеров сети
type OrderSource interface {
	ListActiveOrders(ctx context.Context, chainID int64) ([]*models.Order, error)
}

// Handler - обработчик обнаруженного ордера
//
// Вызывается синхронно из цикла поллинга; обработчик сам решает
// уходить ли в отдельную goroutine.
type Handler func(ctx context.Context, order *models.Order)

// Poller опрашивает венью по каждой сети независимо
//
// Сбой или медленный ответ одной сети не задерживает циклы остальных:
// на каждую сеть - своя goroutine со своим ticker'ом. Ошибки тика
// логируются и не прерывают поллинг.
type Poller struct {
	source   OrderSource
	chainIDs []int64
	interval time.Duration
	handler  Handler
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewPoller создаёт поллер активных ордеров
func NewPoller(source OrderSource, chainIDs []int64, interval time.Duration, handler Handler, logger *zap.Logger) *Poller {
	return &Poller{
		source:   source,
		chainIDs: chainIDs,
		interval: interval,
		handler:  handler,
		logger:   logger.Named("poller"),
	}
}

// Start запускает по goroutine на каждую сеть
//
// Первый опрос выполняется сразу, далее по интервалу. Возврат из
// Wait гарантируется после отмены контекста.
func (p *Poller) Start(ctx context.Context) {
	for _, chainID := range p.chainIDs {
		p.wg.Add(1)
		go p.pollChain(ctx, chainID)
	}

	p.logger.Info("poller started",
		zap.Int64s("chain_ids", p.chainIDs),
		zap.Duration("interval", p.interval),
	)
}

// Wait блокируется до завершения всех циклов поллинга
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) pollChain(ctx context.Context, chainID int64) {
	defer p.wg.Done()

	logger := p.logger.With(zap.Int64("chain_id", chainID))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, chainID, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("chain polling stopped")
			return
		case <-ticker.C:
			p.tick(ctx, chainID, logger)
		}
	}
}

func (p *Poller) tick(ctx context.Context, chainID int64, logger *zap.Logger) {
	orders, err := p.source.ListActiveOrders(ctx, chainID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("failed to list active orders", zap.Error(err))
		return
	}

	now := time.Now()
	dispatched := 0
	for _, order := range orders {
		// Истёкшие не доходят до обработчика
		if order.Expired(now) {
			continue
		}
		p.handler(ctx, order)
		dispatched++
	}

	if dispatched > 0 {
		logger.Debug("orders dispatched", zap.Int("count", dispatched))
	}
}

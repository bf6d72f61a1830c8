package monitor

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/liquidity"
	"solver/internal/models"
	"solver/internal/solver"
)

// ============================================================
// Health и снимки состояния процесса
// ============================================================

// Статусы здоровья
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Пороги
const (
	memoryDegradedBytes = 1 << 30 // 1 GiB
	failureRateDegraded = 0.5
	minAttemptsForRate  = 10
)

// Check - результат одной проверки
type Check struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Health - сводное состояние процесса
type Health struct {
	Status    string           `json:"status"`
	UptimeSec float64          `json:"uptime_sec"`
	Checks    map[string]Check `json:"checks"`
}

// Snapshot - снимок состояния для /stats
type Snapshot struct {
	UptimeSec    float64                                `json:"uptime_sec"`
	Engine       solver.Stats                           `json:"engine"`
	Balances     map[models.TokenID]models.BalanceEntry `json:"balances"`
	LiquidityUSD *models.BalanceSummary                 `json:"liquidity_usd,omitempty"`
	Goroutines   int                                    `json:"goroutines"`
}

// Monitor наблюдает за ядром и леджером
type Monitor struct {
	engine    *solver.Engine
	ledger    *liquidity.Ledger
	cfg       config.SolverConfig
	prices    liquidity.PriceSource // nil = USD-оценка недоступна
	logger    *zap.Logger
	startedAt time.Time
}

// New создаёт монитор
func New(engine *solver.Engine, ledger *liquidity.Ledger, cfg config.SolverConfig, prices liquidity.PriceSource, logger *zap.Logger) *Monitor {
	return &Monitor{
		engine:    engine,
		ledger:    ledger,
		cfg:       cfg,
		prices:    prices,
		logger:    logger.Named("monitor"),
		startedAt: time.Now(),
	}
}

// Health выполняет все проверки и сводит статус к худшему из них
func (m *Monitor) Health() Health {
	checks := map[string]Check{
		"liquidity":   m.checkLiquidity(),
		"performance": m.checkPerformance(),
		"memory":      m.checkMemory(),
	}

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			break
		}
		if check.Status == StatusDegraded {
			overall = StatusDegraded
		}
	}

	return Health{
		Status:    overall,
		UptimeSec: time.Since(m.startedAt).Seconds(),
		Checks:    checks,
	}
}

// checkLiquidity следит за запасом свободного капитала
//
// Утилизация выше 100-буфер означает что резерв на новые ордера
// практически исчерпан.
func (m *Monitor) checkLiquidity() Check {
	if len(m.ledger.Tokens()) == 0 {
		return Check{Status: StatusUnhealthy, Detail: "no tokens configured"}
	}

	utilization := m.ledger.Utilization()
	limit := 100 - m.cfg.LiquidityBufferPct
	if utilization > limit {
		return Check{
			Status: StatusDegraded,
			Detail: "liquidity buffer exhausted",
		}
	}
	return Check{Status: StatusHealthy}
}

// checkPerformance следит за долей отказов исполнения
func (m *Monitor) checkPerformance() Check {
	stats := m.engine.Stats()
	attempts := stats.Confirmed + stats.Failed
	if attempts < minAttemptsForRate {
		return Check{Status: StatusHealthy}
	}

	rate := float64(stats.Failed) / float64(attempts)
	if rate > failureRateDegraded {
		return Check{Status: StatusDegraded, Detail: "high execution failure rate"}
	}
	return Check{Status: StatusHealthy}
}

func (m *Monitor) checkMemory() Check {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	if mem.Alloc > memoryDegradedBytes {
		return Check{Status: StatusDegraded, Detail: "high memory usage"}
	}
	return Check{Status: StatusHealthy}
}

// Stats возвращает снимок состояния процесса
func (m *Monitor) Stats() Snapshot {
	snap := Snapshot{
		UptimeSec:  time.Since(m.startedAt).Seconds(),
		Engine:     m.engine.Stats(),
		Balances:   m.ledger.Snapshot(),
		Goroutines: runtime.NumGoroutine(),
	}
	if m.prices != nil {
		summary := m.ledger.Summary(m.prices)
		snap.LiquidityUSD = &summary
	}
	return snap
}

// RefreshMetrics обновляет gauge-метрики ликвидности
//
// Вызывается планировщиком по интервалу метрик.
func (m *Monitor) RefreshMetrics() {
	solver.LiquidityUtilization.Set(m.ledger.Utilization())
	for id, entry := range m.ledger.Snapshot() {
		locked, _ := entry.Locked.Float64()
		solver.LiquidityLocked.WithLabelValues(string(id)).Set(locked)
	}
	if m.prices != nil {
		solver.LiquidityValueUSD.Set(m.ledger.Summary(m.prices).TotalValueUSD)
	}
}

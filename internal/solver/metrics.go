package solver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики исполнительного ядра
// ============================================================

// ============ Счётчики ордеров ============

// OrdersDiscovered - ордера, дошедшие до обработки (после дедупликации)
var OrdersDiscovered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "orders_discovered_total",
		Help:      "Total number of orders picked up for processing",
	},
	[]string{"chain"},
)

// OrdersSkipped - пропущенные ордера по причинам
var OrdersSkipped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "orders_skipped_total",
		Help:      "Total number of orders skipped before submission",
	},
	[]string{"chain", "reason"}, // expired, invalid, no_price, gas_too_high, unprofitable, size, insufficient_liquidity
)

// OrdersExecuted - результат исполнения отправленных ордеров
var OrdersExecuted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "orders_executed_total",
		Help:      "Total number of submitted orders by outcome",
	},
	[]string{"chain", "result"}, // result: confirmed, failed
)

// ProfitTotal - суммарный чистый профит подтверждённых исполнений
var ProfitTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "profit_usd_total",
		Help:      "Total realized net profit in USD",
	},
)

// GasSpentTotal - суммарные оценённые затраты на газ
var GasSpentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "gas_cost_usd_total",
		Help:      "Total estimated gas cost of confirmed executions in USD",
	},
)

// ============ Латентность ============

// ExecutionDuration - время от решения до подтверждения
var ExecutionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "execution_duration_seconds",
		Help:      "Time from submission to confirmation in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
	[]string{"chain"},
)

// ============ Состояние ============

// ActiveExecutions - количество попыток исполнения в полёте
var ActiveExecutions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "active_executions",
		Help:      "Current number of in-flight execution attempts",
	},
)

// LiquidityLocked - заблокированный капитал по токенам
var LiquidityLocked = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "solver",
		Subsystem: "liquidity",
		Name:      "locked_balance",
		Help:      "Currently locked balance per token",
	},
	[]string{"token_id"},
)

// LiquidityUtilization - доля заблокированного капитала в процентах
var LiquidityUtilization = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "solver",
		Subsystem: "liquidity",
		Name:      "utilization_percent",
		Help:      "Share of total capital currently locked, in percent",
	},
)

// LiquidityValueUSD - суммарная оценка капитала пула в USD
var LiquidityValueUSD = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "solver",
		Subsystem: "liquidity",
		Name:      "total_value_usd",
		Help:      "Estimated total pool capital in USD",
	},
)

// ProfitObserved - распределение профитности оценённых ордеров в bps
var ProfitObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "solver",
		Subsystem: "engine",
		Name:      "profit_observed_bps",
		Help:      "Observed net profit of evaluated orders in basis points",
		Buckets:   []float64{-100, -50, -10, 0, 10, 30, 50, 100, 250, 500},
	},
	[]string{"chain"},
)

// ============ Вспомогательные функции ============

// RecordSkip записывает пропуск ордера
func RecordSkip(chain, reason string) {
	OrdersSkipped.WithLabelValues(chain, reason).Inc()
}

// RecordExecution записывает исход исполнения
func RecordExecution(chain string, confirmed bool, netProfitUSD, gasCostUSD, durationSec float64) {
	result := "failed"
	if confirmed {
		result = "confirmed"
		ProfitTotal.Add(netProfitUSD)
		GasSpentTotal.Add(gasCostUSD)
		ExecutionDuration.WithLabelValues(chain).Observe(durationSec)
	}
	OrdersExecuted.WithLabelValues(chain, result).Inc()
}

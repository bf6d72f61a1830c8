package liquidity

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solver/internal/models"
)

// rebalance.go - детектор дисбаланса ликвидности между сетями
//
// Балансы одного логического актива (по символу) сравниваются со средним
// по сетям. Отклонение больше configured-процента от среднего порождает
// рекомендацию перелить капитал из самой избыточной сети в самую
// дефицитную. Рекомендации не исполняются автоматически: asset-перелив
// между сетями остаётся ручной операцией.

// symbolBalances - балансы одного символа по сетям
type symbolBalances struct {
	total   decimal.Decimal
	byChain map[int64]decimal.Decimal
}

// DetectImbalances возвращает рекомендации перебалансировки
//
// thresholdPct - допустимое отклонение от среднего в процентах.
// Символ, представленный только в одной сети, дисбаланса не образует.
func (l *Ledger) DetectImbalances(thresholdPct float64) []models.RebalanceAction {
	l.mu.Lock()

	// Группировка по символу под мьютексом, анализ - уже без него
	bySymbol := make(map[string]*symbolBalances)
	for id, entry := range l.balances {
		token := l.tokens[id]
		sb, ok := bySymbol[token.Symbol]
		if !ok {
			sb = &symbolBalances{byChain: make(map[int64]decimal.Decimal)}
			bySymbol[token.Symbol] = sb
		}
		sb.total = sb.total.Add(entry.Total)
		sb.byChain[token.ChainID] = sb.byChain[token.ChainID].Add(entry.Total)
	}
	l.mu.Unlock()

	threshold := decimal.NewFromFloat(thresholdPct)

	var actions []models.RebalanceAction
	seen := make(map[string]bool)

	for symbol, sb := range bySymbol {
		if len(sb.byChain) < 2 {
			continue
		}

		avg := sb.total.Div(decimal.NewFromInt(int64(len(sb.byChain))))
		limit := avg.Mul(threshold).Div(decimal.NewFromInt(100))

		for chainID, balance := range sb.byChain {
			deviation := balance.Sub(avg).Abs()
			if deviation.LessThanOrEqual(limit) {
				continue
			}

			from := chainWithExcess(sb, avg)
			to := chainWithDeficit(sb, avg)
			if from == to {
				continue
			}

			// Избыточная и дефицитная сети одни на символ: одинаковые
			// рекомендации от разных отклонившихся сетей схлопываются
			key := fmt.Sprintf("%s:%d:%d", symbol, from, to)
			if seen[key] {
				continue
			}
			seen[key] = true

			actions = append(actions, models.RebalanceAction{
				Symbol:    symbol,
				FromChain: from,
				ToChain:   to,
				Amount:    deviation,
				Reason: fmt.Sprintf("chain %d deviates %s from average %s",
					chainID, deviation.StringFixed(2), avg.StringFixed(2)),
			})

			l.logger.Info("rebalance recommended",
				zap.String("symbol", symbol),
				zap.Int64("from_chain", from),
				zap.Int64("to_chain", to),
				zap.String("amount", deviation.String()),
			)
		}
	}

	return actions
}

// chainWithExcess возвращает сеть с максимальным избытком над средним
func chainWithExcess(sb *symbolBalances, avg decimal.Decimal) int64 {
	var maxChain int64
	maxExcess := decimal.Zero

	for chainID, balance := range sb.byChain {
		excess := balance.Sub(avg)
		if excess.GreaterThan(maxExcess) {
			maxExcess = excess
			maxChain = chainID
		}
	}
	return maxChain
}

// chainWithDeficit возвращает сеть с максимальным дефицитом против среднего
func chainWithDeficit(sb *symbolBalances, avg decimal.Decimal) int64 {
	var minChain int64
	maxDeficit := decimal.Zero

	for chainID, balance := range sb.byChain {
		deficit := avg.Sub(balance)
		if deficit.GreaterThan(maxDeficit) {
			maxDeficit = deficit
			minChain = chainID
		}
	}
	return minChain
}

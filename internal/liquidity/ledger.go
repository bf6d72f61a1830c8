package liquidity

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solver/internal/models"
)

// Ошибки леджера
var (
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrUnknownToken        = errors.New("token is not tracked by the ledger")
)

// Ledger - in-memory учёт ликвидности по ключу (chainId, token)
//
// Total - авторитетный баланс, периодически обновляется из settlement-леджера.
// Locked - собственная резервация solver'а под исполняемые ордера.
//
// Инварианты:
//   - 0 <= Locked <= Total для каждого ключа
//   - Available = Total - Locked никогда не отрицателен
//   - Lock/Unlock - единственные мутаторы Locked
//
// Lock - атомарный read-modify-write под мьютексом: частичных блокировок
// нет, при нехватке средств леджер не меняется. Дизайн предполагает один
// процесс-владелец леджера, распределённые блокировки не требуются.
type Ledger struct {
	mu       sync.Mutex
	balances map[models.TokenID]*models.BalanceEntry
	tokens   map[models.TokenID]models.Token
	logger   *zap.Logger
}

// NewLedger создаёт леджер для списка поддерживаемых токенов
func NewLedger(tokens []models.Token, logger *zap.Logger) *Ledger {
	l := &Ledger{
		balances: make(map[models.TokenID]*models.BalanceEntry, len(tokens)),
		tokens:   make(map[models.TokenID]models.Token, len(tokens)),
		logger:   logger.Named("ledger"),
	}
	for _, t := range tokens {
		id := t.ID()
		l.tokens[id] = t
		l.balances[id] = &models.BalanceEntry{}
	}
	return l
}

// Refresh перезаписывает Total по каждому ключу из снимка settlement-леджера
//
// Locked не затрагивается: резервации переживают обновление балансов,
// поэтому Available меняется ровно на дельту Total.
func (l *Ledger) Refresh(totals map[models.TokenID]decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, total := range totals {
		entry, ok := l.balances[id]
		if !ok {
			// Неизвестные токены из vault'а не отслеживаем
			continue
		}
		entry.Total = total
	}
}

// AvailableBalance возвращает свободный остаток (Total - Locked)
func (l *Ledger) AvailableBalance(chainID int64, token string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.balances[models.MakeTokenID(chainID, token)]
	if !ok {
		return decimal.Zero
	}
	return entry.Available()
}

// Lock резервирует amount, если он не превышает свободный остаток
//
// Единая неделимая операция: проверка и инкремент Locked происходят
// под одним захватом мьютекса. При отказе леджер не изменён.
func (l *Ledger) Lock(chainID int64, token string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := models.MakeTokenID(chainID, token)
	entry, ok := l.balances[id]
	if !ok {
		return ErrUnknownToken
	}

	if amount.GreaterThan(entry.Available()) {
		l.logger.Warn("lock rejected",
			zap.String("token", string(id)),
			zap.String("amount", amount.String()),
			zap.String("available", entry.Available().String()),
		)
		return ErrInsufficientBalance
	}

	entry.Locked = entry.Locked.Add(amount)
	l.logger.Debug("locked",
		zap.String("token", string(id)),
		zap.String("amount", amount.String()),
	)
	return nil
}

// Unlock снимает резервацию amount, не опуская Locked ниже нуля
//
// Floor на нуле защищает от двойного unlock: леджер никогда не
// показывает Available больше Total.
func (l *Ledger) Unlock(chainID int64, token string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := models.MakeTokenID(chainID, token)
	entry, ok := l.balances[id]
	if !ok {
		return
	}

	newLocked := entry.Locked.Sub(amount)
	if newLocked.IsNegative() {
		newLocked = decimal.Zero
	}
	entry.Locked = newLocked
	l.logger.Debug("unlocked",
		zap.String("token", string(id)),
		zap.String("amount", amount.String()),
	)
}

// Tokens возвращает список отслеживаемых токенов
func (l *Ledger) Tokens() []models.Token {
	l.mu.Lock()
	defer l.mu.Unlock()

	tokens := make([]models.Token, 0, len(l.tokens))
	for _, t := range l.tokens {
		tokens = append(tokens, t)
	}
	return tokens
}

// Snapshot возвращает копию всех балансов
func (l *Ledger) Snapshot() map[models.TokenID]models.BalanceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[models.TokenID]models.BalanceEntry, len(l.balances))
	for id, entry := range l.balances {
		snapshot[id] = *entry
	}
	return snapshot
}

// PriceSource отдаёт USD-цену токена; ok=false, если цена недоступна
type PriceSource func(chainID int64, token string) (float64, bool)

// Summary считает сводку ликвидности в USD по кэшу цен
//
// Токены без известной цены вносят нулевую стоимость.
func (l *Ledger) Summary(price PriceSource) models.BalanceSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	summary := models.BalanceSummary{
		ByChain:  make(map[int64]float64),
		BySymbol: make(map[string]float64),
	}

	for id, entry := range l.balances {
		token := l.tokens[id]
		usd, ok := price(token.ChainID, token.Address)
		if !ok {
			continue
		}
		value, _ := entry.Total.Float64()
		valueUSD := value * usd

		summary.TotalValueUSD += valueUSD
		summary.ByChain[token.ChainID] += valueUSD
		summary.BySymbol[token.Symbol] += valueUSD
	}

	return summary
}

// Utilization возвращает долю зарезервированной ликвидности в процентах
//
// Считается по количеству токенов без взвешивания в USD; используется
// health-проверкой против буфера ликвидности.
func (l *Ledger) Utilization() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	locked := decimal.Zero
	for _, entry := range l.balances {
		total = total.Add(entry.Total)
		locked = locked.Add(entry.Locked)
	}

	if total.IsZero() {
		return 0
	}
	ratio, _ := locked.Div(total).Float64()
	return ratio * 100
}

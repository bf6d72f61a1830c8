package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenID - ключ баланса в формате "chainId:address" (адрес в lower case)
type TokenID string

// MakeTokenID собирает ключ баланса из chainId и адреса токена
func MakeTokenID(chainID int64, address string) TokenID {
	return TokenID(fmt.Sprintf("%d:%s", chainID, strings.ToLower(address)))
}

// Token - поддерживаемый токен из конфигурации
type Token struct {
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ID возвращает ключ баланса токена
func (t Token) ID() TokenID {
	return MakeTokenID(t.ChainID, t.Address)
}

// BalanceEntry - состояние баланса по одному токену
//
// Total - авторитетное значение, обновляется из settlement-леджера.
// Locked - внутренняя резервация solver'а под исполняемые ордера.
// Инвариант: 0 <= Locked <= Total, Available никогда не отрицателен.
type BalanceEntry struct {
	Total  decimal.Decimal `json:"total"`
	Locked decimal.Decimal `json:"locked"`
}

// Available возвращает свободный остаток (Total - Locked)
func (b BalanceEntry) Available() decimal.Decimal {
	return b.Total.Sub(b.Locked)
}

// RebalanceAction - рекомендация перебалансировки между сетями
//
// Производное, не авторитетное состояние: пересчитывается на каждом
// тике планировщика и нигде не сохраняется.
type RebalanceAction struct {
	Symbol    string          `json:"symbol"`
	FromChain int64           `json:"from_chain"`
	ToChain   int64           `json:"to_chain"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// BalanceSummary - сводка ликвидности в USD
type BalanceSummary struct {
	TotalValueUSD float64            `json:"total_value_usd"`
	ByChain       map[int64]float64  `json:"by_chain"`
	BySymbol      map[string]float64 `json:"by_symbol"`
}

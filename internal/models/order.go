package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order - Dutch-auction ордер, полученный от венью
//
// Ордер создаётся внешней системой и наблюдается solver'ом только для чтения.
// Цена taker-стороны линейно движется от AuctionStartAmount к AuctionEndAmount
// в окне [AuctionStartTime, AuctionEndTime]. После Deadline ордер неактуален.
type Order struct {
	OrderHash string `json:"orderHash"`
	Maker     string `json:"maker"`
	Receiver  string `json:"receiver"`
	ChainID   int64  `json:"chainId"`

	MakerAsset   string          `json:"makerAsset"`
	TakerAsset   string          `json:"takerAsset"`
	MakingAmount decimal.Decimal `json:"makingAmount"`
	TakingAmount decimal.Decimal `json:"takingAmount"`

	Deadline  time.Time `json:"deadline"`
	Nonce     string    `json:"nonce"`
	Signature string    `json:"signature"`

	// Параметры аукциона
	AuctionStartTime   time.Time       `json:"auctionStartTime"`
	AuctionEndTime     time.Time       `json:"auctionEndTime"`
	AuctionStartAmount decimal.Decimal `json:"auctionStartAmount"`
	AuctionEndAmount   decimal.Decimal `json:"auctionEndAmount"`

	// Дополнительные метаданные (влияют на оценку газа)
	QuoteID      string   `json:"quoteId,omitempty"`
	Whitelist    []string `json:"whitelist,omitempty"`
	Interactions []string `json:"interactions,omitempty"`
	Permit       string   `json:"permit,omitempty"`
}

// Expired возвращает true, если дедлайн ордера прошёл
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.Deadline)
}

// ExecutionParams - параметры исполнения профитного ордера
//
// Transient-объект: создаётся на один ордер после проверки профитности,
// уничтожается после завершения попытки. Нигде не персистится.
type ExecutionParams struct {
	Order              *Order
	ExecutionPrice     decimal.Decimal // цена аукциона на момент решения
	EstimatedProfitUSD float64
	GasCostUSD         float64
	Deadline           time.Time
}

// Статусы ордера на венью
const (
	OrderStatusPending         = "pending"
	OrderStatusFilled          = "filled"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusCancelled       = "cancelled"
	OrderStatusExpired         = "expired"
)

// ExecutionRecord - запись о попытке исполнения (для истории в БД)
type ExecutionRecord struct {
	ID             string     `json:"id" db:"id"`
	OrderHash      string     `json:"order_hash" db:"order_hash"`
	ChainID        int64      `json:"chain_id" db:"chain_id"`
	TakerAsset     string     `json:"taker_asset" db:"taker_asset"`
	ExecutionPrice string     `json:"execution_price" db:"execution_price"`
	ProfitUSD      float64    `json:"profit_usd" db:"profit_usd"`
	GasCostUSD     float64    `json:"gas_cost_usd" db:"gas_cost_usd"`
	Status         string     `json:"status" db:"status"` // confirmed, failed
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// Статусы записи исполнения
const (
	ExecutionStatusConfirmed = "confirmed"
	ExecutionStatusFailed    = "failed"
)

package venue

import (
	"time"

	"github.com/shopspring/decimal"

	"solver/internal/models"
)

// types.go - wire-формат relayer API венью
//
// Времена аукциона приходят в миллисекундах unix, deadline - в секундах,
// суммы - десятичными строками. Маппинг в доменную модель изолирован здесь.

// apiOrder - ордер в формате API
type apiOrder struct {
	OrderHash    string `json:"orderHash"`
	Maker        string `json:"maker"`
	Receiver     string `json:"receiver"`
	MakerAsset   string `json:"makerAsset"`
	TakerAsset   string `json:"takerAsset"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
	Deadline     int64  `json:"deadline"`
	Nonce        string `json:"nonce"`
	Signature    string `json:"signature"`

	AuctionStartTime   int64  `json:"auctionStartTime"`
	AuctionEndTime     int64  `json:"auctionEndTime"`
	AuctionStartAmount string `json:"auctionStartAmount"`
	AuctionEndAmount   string `json:"auctionEndAmount"`

	QuoteID      string   `json:"quoteId"`
	Whitelist    []string `json:"whitelist"`
	Interactions []string `json:"interactions"`
	Permit       string   `json:"permit"`
}

// activeOrdersResponse - ответ на запрос активных ордеров
type activeOrdersResponse struct {
	Orders []apiOrder `json:"orders"`
}

// statusResponse - ответ на запрос статуса ордера
type statusResponse struct {
	Status string `json:"status"`
}

// gasPriceResponse - цена газа сети в gwei
type gasPriceResponse struct {
	GasPriceGwei float64 `json:"gasPriceGwei"`
}

// Типы событий стрима ордеров
const (
	EventOrderCreated   = "order_created"
	EventOrderFilled    = "order_filled"
	EventOrderCancelled = "order_cancelled"
)

// orderEventWire - событие стрима в формате API
type orderEventWire struct {
	Event   string   `json:"event"`
	ChainID int64    `json:"chainId"`
	Order   apiOrder `json:"order"`
}

// OrderEvent - декодированное событие стрима ордеров
type OrderEvent struct {
	Type  string
	Order *models.Order
}

// DecodeOrderEvent разбирает одно событие стрима
func DecodeOrderEvent(data []byte, now time.Time) (*OrderEvent, error) {
	var wire orderEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	event := &OrderEvent{Type: wire.Event}
	if wire.Event == EventOrderCreated {
		order, err := wire.Order.toModel(wire.ChainID, now)
		if err != nil {
			return nil, err
		}
		event.Order = order
	}
	return event, nil
}

// toModel переводит wire-формат в доменную модель
func (o apiOrder) toModel(chainID int64, now time.Time) (*models.Order, error) {
	makingAmount, err := decimal.NewFromString(o.MakingAmount)
	if err != nil {
		return nil, err
	}
	takingAmount, err := decimal.NewFromString(o.TakingAmount)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderHash:    o.OrderHash,
		Maker:        o.Maker,
		Receiver:     o.Receiver,
		ChainID:      chainID,
		MakerAsset:   o.MakerAsset,
		TakerAsset:   o.TakerAsset,
		MakingAmount: makingAmount,
		TakingAmount: takingAmount,
		Deadline:     time.Unix(o.Deadline, 0),
		Nonce:        o.Nonce,
		Signature:    o.Signature,
		QuoteID:      o.QuoteID,
		Whitelist:    o.Whitelist,
		Interactions: o.Interactions,
		Permit:       o.Permit,
	}

	if o.Receiver == "" {
		order.Receiver = o.Maker
	}

	// Ордеры без параметров аукциона трактуются как фиксированная цена:
	// вырожденное окно на текущем моменте с taking amount с обеих сторон
	if o.AuctionStartTime > 0 && o.AuctionEndTime > 0 {
		order.AuctionStartTime = time.UnixMilli(o.AuctionStartTime)
		order.AuctionEndTime = time.UnixMilli(o.AuctionEndTime)
	} else {
		order.AuctionStartTime = now
		order.AuctionEndTime = now
	}

	if o.AuctionStartAmount != "" {
		if order.AuctionStartAmount, err = decimal.NewFromString(o.AuctionStartAmount); err != nil {
			return nil, err
		}
	} else {
		order.AuctionStartAmount = takingAmount
	}

	if o.AuctionEndAmount != "" {
		if order.AuctionEndAmount, err = decimal.NewFromString(o.AuctionEndAmount); err != nil {
			return nil, err
		}
	} else {
		order.AuctionEndAmount = takingAmount
	}

	return order, nil
}

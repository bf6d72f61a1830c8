package solver

import (
	"time"

	"github.com/shopspring/decimal"

	"solver/internal/models"
	"solver/pkg/utils"
)

// pricer.go - цена Dutch-аукциона и оценка профитности
//
// Цена taker-стороны линейно движется от стартовой к конечной сумме
// внутри окна аукциона; за границами окна цена зажата на краях.
// Оценка профитности чистая: все входы (цены, стоимость газа) приходят
// снаружи, никаких I/O.

// CurrentAuctionPrice возвращает цену аукциона в момент now
//
//	price = start + (end - start) * (now - start) / (end - start)
func CurrentAuctionPrice(order *models.Order, now time.Time) decimal.Decimal {
	if !now.After(order.AuctionStartTime) {
		return order.AuctionStartAmount
	}
	if !now.Before(order.AuctionEndTime) {
		return order.AuctionEndAmount
	}

	duration := order.AuctionEndTime.Sub(order.AuctionStartTime)
	if duration <= 0 {
		return order.AuctionEndAmount
	}
	elapsed := now.Sub(order.AuctionStartTime)

	diff := order.AuctionEndAmount.Sub(order.AuctionStartAmount)
	fraction := decimal.NewFromInt(elapsed.Milliseconds()).
		Div(decimal.NewFromInt(duration.Milliseconds()))

	return order.AuctionStartAmount.Add(diff.Mul(fraction))
}

// Quote - внешние входы оценки профитности
type Quote struct {
	MakerPriceUSD float64 // цена maker-актива (входная сторона ордера)
	TakerPriceUSD float64 // цена taker-актива (сторона по цене аукциона)
	GasCostUSD    float64
}

// Evaluation - результат оценки ордера
type Evaluation struct {
	ExecutionPrice decimal.Decimal // цена аукциона на момент оценки
	GrossProfitUSD float64
	NetProfitUSD   float64
	InputUSD       float64 // USD-нотионал maker-стороны
	ProfitBps      float64
}

// EvaluateOrder считает профит исполнения ордера в момент now
//
// Gross = taker-сторона по текущей цене аукциона минус вход
// maker-стороны; net вычитает газ. Bps считается от входного нотионала.
func EvaluateOrder(order *models.Order, now time.Time, quote Quote) Evaluation {
	price := CurrentAuctionPrice(order, now)

	inputUSD := order.MakingAmount.InexactFloat64() * quote.MakerPriceUSD
	revenueUSD := price.InexactFloat64() * quote.TakerPriceUSD

	gross := revenueUSD - inputUSD
	net := gross - quote.GasCostUSD

	return Evaluation{
		ExecutionPrice: price,
		GrossProfitUSD: gross,
		NetProfitUSD:   net,
		InputUSD:       inputUSD,
		ProfitBps:      utils.ProfitBps(net, inputUSD),
	}
}

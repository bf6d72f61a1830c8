package solver

import (
	"solver/internal/models"
	"solver/pkg/utils"
)

// gas.go - оценка газа исполнения ордера
//
// Базовая стоимость fill-транзакции плюс надбавки за каждый interaction
// и каждую запись whitelist'а: они раздувают calldata и добавляют
// внешние вызовы при сеттлменте.

const (
	baseGasUnits         = 150_000
	gasPerInteraction    = 50_000
	gasPerWhitelistEntry = 10_000
)

// EstimateGasUnits возвращает оценку газа для исполнения ордера
func EstimateGasUnits(order *models.Order) uint64 {
	units := uint64(baseGasUnits)
	units += uint64(len(order.Interactions)) * gasPerInteraction
	units += uint64(len(order.Whitelist)) * gasPerWhitelistEntry
	return units
}

// EstimateGasCostUSD переводит оценку газа в доллары
func EstimateGasCostUSD(order *models.Order, gasPriceGwei, nativePriceUSD float64) float64 {
	return utils.GasCostUSD(EstimateGasUnits(order), gasPriceGwei, nativePriceUSD)
}

package utils

import "math"

// math.go - математические утилиты для расчёта экономики исполнения
//
// Все функции чистые, без побочных эффектов.

// weiPerGwei - количество wei в одном gwei
const weiPerGwei = 1e9

// weiPerEther - количество wei в одном нативном токене
const weiPerEther = 1e18

// GasCostUSD переводит стоимость газа в доллары
//
// Параметры:
//   - gasUnits: оценка единиц газа на исполнение
//   - gasPriceGwei: цена газа в gwei
//   - nativePriceUSD: USD-цена нативного токена сети
//
// Возвращает стоимость в USD; 0, если любой вход неположителен.
func GasCostUSD(gasUnits uint64, gasPriceGwei, nativePriceUSD float64) float64 {
	if gasUnits == 0 || gasPriceGwei <= 0 || nativePriceUSD <= 0 {
		return 0
	}
	costWei := float64(gasUnits) * gasPriceGwei * weiPerGwei
	return costWei / weiPerEther * nativePriceUSD
}

// ProfitBps возвращает прибыль в базисных пунктах от входной стоимости
//
// 1 bps = 0.01%. Для нулевой входной стоимости возвращает 0 -
// такой ордер не может быть оценён.
func ProfitBps(netProfitUSD, inputValueUSD float64) float64 {
	if inputValueUSD <= 0 {
		return 0
	}
	return netProfitUSD / inputValueUSD * 10000
}

// PercentOf возвращает pct процентов от value
func PercentOf(value, pct float64) float64 {
	return value * pct / 100
}

// RoundUSD округляет долларовую сумму до центов
func RoundUSD(v float64) float64 {
	return math.Round(v*100) / 100
}

package config

// Chain - статические параметры поддерживаемой сети
type Chain struct {
	ChainID        int64
	Name           string
	NativeCurrency string
	// Адрес wrapped-нативного токена - по нему берётся USD-цена газа
	NativeToken   string
	BlockTime     float64 // секунд на блок
	Confirmations int     // требуемое число подтверждений
}

// Chains - таблица поддерживаемых сетей
var Chains = map[int64]Chain{
	1: {
		ChainID:        1,
		Name:           "Ethereum",
		NativeCurrency: "ETH",
		NativeToken:    "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
		BlockTime:      12,
		Confirmations:  3,
	},
	10: {
		ChainID:        10,
		Name:           "Optimism",
		NativeCurrency: "ETH",
		NativeToken:    "0x4200000000000000000000000000000000000006", // WETH
		BlockTime:      2,
		Confirmations:  1,
	},
	56: {
		ChainID:        56,
		Name:           "BSC",
		NativeCurrency: "BNB",
		NativeToken:    "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", // WBNB
		BlockTime:      3,
		Confirmations:  5,
	},
	137: {
		ChainID:        137,
		Name:           "Polygon",
		NativeCurrency: "MATIC",
		NativeToken:    "0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270", // WMATIC
		BlockTime:      2,
		Confirmations:  10,
	},
	8453: {
		ChainID:        8453,
		Name:           "Base",
		NativeCurrency: "ETH",
		NativeToken:    "0x4200000000000000000000000000000000000006", // WETH
		BlockTime:      2,
		Confirmations:  1,
	},
	42161: {
		ChainID:        42161,
		Name:           "Arbitrum",
		NativeCurrency: "ETH",
		NativeToken:    "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", // WETH
		BlockTime:      0.25,
		Confirmations:  1,
	},
	43114: {
		ChainID:        43114,
		Name:           "Avalanche",
		NativeCurrency: "AVAX",
		NativeToken:    "0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7", // WAVAX
		BlockTime:      2,
		Confirmations:  10,
	},
}

// ChainName возвращает имя сети или её номер, если сеть неизвестна
func ChainName(chainID int64) string {
	if c, ok := Chains[chainID]; ok {
		return c.Name
	}
	return "unknown"
}

// ConfirmationsFor возвращает требуемое число подтверждений для сети
// Для неизвестной сети - консервативный дефолт
func ConfirmationsFor(chainID int64) int {
	if c, ok := Chains[chainID]; ok {
		return c.Confirmations
	}
	return 3
}

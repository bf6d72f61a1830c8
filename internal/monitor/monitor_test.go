package monitor

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solver/internal/config"
	"solver/internal/liquidity"
	"solver/internal/models"
	"solver/internal/solver"
)

func newTestMonitor(t *testing.T, tokens []models.Token) (*Monitor, *liquidity.Ledger) {
	t.Helper()

	ledger := liquidity.NewLedger(tokens, zap.NewNop())
	cfg := config.SolverConfig{LiquidityBufferPct: 20}
	engine := solver.NewEngine(cfg, nil, nil, ledger, nil, zap.NewNop())
	m := New(engine, ledger, cfg, nil, zap.NewNop())
	return m, ledger
}

func usdtToken() models.Token {
	return models.Token{ChainID: 1, Address: "0xaaa", Symbol: "USDT", Decimals: 6}
}

func TestHealthHealthy(t *testing.T) {
	m, ledger := newTestMonitor(t, []models.Token{usdtToken()})
	ledger.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): decimal.NewFromInt(1000),
	})

	health := m.Health()
	if health.Status != StatusHealthy {
		t.Errorf("ожидали healthy, получили %s: %+v", health.Status, health.Checks)
	}
	if len(health.Checks) != 3 {
		t.Errorf("ожидали 3 проверки, получили %d", len(health.Checks))
	}
}

func TestHealthNoTokensIsUnhealthy(t *testing.T) {
	m, _ := newTestMonitor(t, nil)

	health := m.Health()
	if health.Status != StatusUnhealthy {
		t.Errorf("без токенов ожидали unhealthy, получили %s", health.Status)
	}
	if m.Health().Checks["liquidity"].Status != StatusUnhealthy {
		t.Error("проверка liquidity должна быть unhealthy")
	}
}

func TestHealthDegradedWhenBufferExhausted(t *testing.T) {
	m, ledger := newTestMonitor(t, []models.Token{usdtToken()})
	ledger.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): decimal.NewFromInt(1000),
	})

	// Утилизация 90% при буфере 20% (лимит 80%)
	if err := ledger.Lock(1, "0xaaa", decimal.NewFromInt(900)); err != nil {
		t.Fatal(err)
	}

	health := m.Health()
	if health.Status != StatusDegraded {
		t.Errorf("ожидали degraded, получили %s", health.Status)
	}
	if health.Checks["liquidity"].Detail == "" {
		t.Error("degraded проверка должна объяснять причину")
	}
}

func TestStatsSnapshot(t *testing.T) {
	m, ledger := newTestMonitor(t, []models.Token{usdtToken()})
	ledger.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): decimal.NewFromInt(1000),
	})

	snap := m.Stats()
	if snap.Goroutines <= 0 {
		t.Error("goroutines должен быть положительным")
	}
	if len(snap.Balances) != 1 {
		t.Errorf("ожидали 1 баланс, получили %d", len(snap.Balances))
	}
	if snap.Engine.Processed != 0 {
		t.Errorf("свежий движок без обработок: %+v", snap.Engine)
	}
	if snap.LiquidityUSD != nil {
		t.Error("без источника цен USD-оценки быть не должно")
	}
}

func TestStatsLiquidityUSD(t *testing.T) {
	ledger := liquidity.NewLedger([]models.Token{usdtToken()}, zap.NewNop())
	ledger.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): decimal.NewFromInt(1000),
	})

	cfg := config.SolverConfig{LiquidityBufferPct: 20}
	engine := solver.NewEngine(cfg, nil, nil, ledger, nil, zap.NewNop())
	prices := func(chainID int64, token string) (float64, bool) {
		return 2.0, true
	}
	m := New(engine, ledger, cfg, prices, zap.NewNop())

	snap := m.Stats()
	if snap.LiquidityUSD == nil {
		t.Fatal("ожидали USD-оценку ликвидности")
	}
	if snap.LiquidityUSD.TotalValueUSD != 2000 {
		t.Errorf("ожидали 2000 USD, получили %f", snap.LiquidityUSD.TotalValueUSD)
	}
	if snap.LiquidityUSD.BySymbol["USDT"] != 2000 {
		t.Errorf("ожидали 2000 USD по USDT, получили %f", snap.LiquidityUSD.BySymbol["USDT"])
	}
}

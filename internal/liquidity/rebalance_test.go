package liquidity

import (
	"testing"

	"github.com/shopspring/decimal"

	"solver/internal/models"
)

// ============================================================
// DetectImbalances
// ============================================================

func TestDetectImbalances(t *testing.T) {
	tests := []struct {
		name         string
		totals       map[models.TokenID]decimal.Decimal
		thresholdPct float64
		wantActions  int
		wantFrom     int64
		wantTo       int64
		wantAmount   string
	}{
		{
			// Сценарий 700/300: среднее 500, порог 20% = 100,
			// отклонение 200 -> перелив chainA (1) -> chainB (137)
			name: "imbalance above threshold",
			totals: map[models.TokenID]decimal.Decimal{
				models.MakeTokenID(1, "0xaaa"):   dec("700"),
				models.MakeTokenID(137, "0xbbb"): dec("300"),
			},
			thresholdPct: 20,
			wantActions:  1,
			wantFrom:     1,
			wantTo:       137,
			wantAmount:   "200",
		},
		{
			// 550/450: среднее 500, отклонение 50 <= порога 100
			name: "deviation within threshold",
			totals: map[models.TokenID]decimal.Decimal{
				models.MakeTokenID(1, "0xaaa"):   dec("550"),
				models.MakeTokenID(137, "0xbbb"): dec("450"),
			},
			thresholdPct: 20,
			wantActions:  0,
		},
		{
			name: "perfectly balanced",
			totals: map[models.TokenID]decimal.Decimal{
				models.MakeTokenID(1, "0xaaa"):   dec("500"),
				models.MakeTokenID(137, "0xbbb"): dec("500"),
			},
			thresholdPct: 20,
			wantActions:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			l.Refresh(tt.totals)

			actions := l.DetectImbalances(tt.thresholdPct)

			if len(actions) != tt.wantActions {
				t.Fatalf("actions = %d, want %d: %+v", len(actions), tt.wantActions, actions)
			}
			if tt.wantActions == 0 {
				return
			}

			a := actions[0]
			if a.Symbol != "USDC" {
				t.Errorf("symbol = %s, want USDC", a.Symbol)
			}
			if a.FromChain != tt.wantFrom || a.ToChain != tt.wantTo {
				t.Errorf("direction = %d->%d, want %d->%d", a.FromChain, a.ToChain, tt.wantFrom, tt.wantTo)
			}
			if !a.Amount.Equal(dec(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", a.Amount, tt.wantAmount)
			}
		})
	}
}

func TestDetectImbalancesSingleChainSymbol(t *testing.T) {
	// WETH живёт только в одной сети - дисбаланс невозможен
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xccc"): dec("100"),
	})

	if actions := l.DetectImbalances(20); len(actions) != 0 {
		t.Errorf("single-chain symbol produced actions: %+v", actions)
	}
}

func TestDetectImbalancesDeduplicates(t *testing.T) {
	// Обе сети отклоняются от среднего, но рекомендация одна:
	// из избыточной в дефицитную
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"):   dec("900"),
		models.MakeTokenID(137, "0xbbb"): dec("100"),
	})

	actions := l.DetectImbalances(20)
	if len(actions) != 1 {
		t.Fatalf("actions = %d, want 1 (deduplicated)", len(actions))
	}
	if actions[0].FromChain != 1 || actions[0].ToChain != 137 {
		t.Errorf("direction = %d->%d, want 1->137", actions[0].FromChain, actions[0].ToChain)
	}
}

package liquidity

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solver/internal/models"
)

func testTokens() []models.Token {
	return []models.Token{
		{ChainID: 1, Address: "0xaaa", Symbol: "USDC"},
		{ChainID: 137, Address: "0xbbb", Symbol: "USDC"},
		{ChainID: 1, Address: "0xccc", Symbol: "WETH"},
	}
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(testTokens(), zap.NewNop())
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ============================================================
// Lock / Unlock
// ============================================================

func TestLockUnlockRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("1000"),
	})

	before := l.AvailableBalance(1, "0xaaa")

	if err := l.Lock(1, "0xaaa", dec("400")); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if got := l.AvailableBalance(1, "0xaaa"); !got.Equal(dec("600")) {
		t.Errorf("available after lock = %s, want 600", got)
	}

	l.Unlock(1, "0xaaa", dec("400"))

	after := l.AvailableBalance(1, "0xaaa")
	if !after.Equal(before) {
		t.Errorf("available after round trip = %s, want %s", after, before)
	}
}

func TestLockInsufficientBalance(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("100"),
	})

	err := l.Lock(1, "0xaaa", dec("100.01"))
	if err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Леджер не изменён: ни Total, ни Locked
	snapshot := l.Snapshot()
	entry := snapshot[models.MakeTokenID(1, "0xaaa")]
	if !entry.Total.Equal(dec("100")) || !entry.Locked.IsZero() {
		t.Errorf("ledger mutated on failed lock: total=%s locked=%s", entry.Total, entry.Locked)
	}
}

func TestLockExactAvailable(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("100"),
	})

	if err := l.Lock(1, "0xaaa", dec("100")); err != nil {
		t.Fatalf("lock of exact available must succeed: %v", err)
	}
	if got := l.AvailableBalance(1, "0xaaa"); !got.IsZero() {
		t.Errorf("available = %s, want 0", got)
	}
}

func TestLockUnknownToken(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Lock(999, "0xdead", dec("1")); err != ErrUnknownToken {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}

func TestUnlockFloorsAtZero(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("1000"),
	})

	if err := l.Lock(1, "0xaaa", dec("100")); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Unlock больше, чем залочено
	l.Unlock(1, "0xaaa", dec("500"))

	entry := l.Snapshot()[models.MakeTokenID(1, "0xaaa")]
	if !entry.Locked.IsZero() {
		t.Errorf("locked = %s, want 0", entry.Locked)
	}
	if !l.AvailableBalance(1, "0xaaa").Equal(dec("1000")) {
		t.Errorf("available exceeds total after over-unlock")
	}
}

// ============================================================
// Refresh
// ============================================================

func TestRefreshPreservesLocked(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("1000"),
	})

	if err := l.Lock(1, "0xaaa", dec("300")); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	// Total меняется, Locked - нет; Available сдвигается на дельту Total
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("1200"),
	})

	entry := l.Snapshot()[models.MakeTokenID(1, "0xaaa")]
	if !entry.Locked.Equal(dec("300")) {
		t.Errorf("refresh altered locked: %s", entry.Locked)
	}
	if got := l.AvailableBalance(1, "0xaaa"); !got.Equal(dec("900")) {
		t.Errorf("available = %s, want 900", got)
	}
}

func TestRefreshIgnoresUnknownTokens(t *testing.T) {
	l := newTestLedger(t)

	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(999, "0xdead"): dec("5000"),
	})

	if _, ok := l.Snapshot()[models.MakeTokenID(999, "0xdead")]; ok {
		t.Error("refresh added untracked token")
	}
}

// ============================================================
// Конкурентность: инвариант Locked <= Total под гонкой
// ============================================================

func TestConcurrentLockSafety(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("100"),
	})

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	// 50 горутин пытаются залочить по 10 при доступных 100:
	// пройти могут максимум 10
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Lock(1, "0xaaa", dec("10")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("succeeded locks = %d, want 10", succeeded)
	}

	entry := l.Snapshot()[models.MakeTokenID(1, "0xaaa")]
	if entry.Locked.GreaterThan(entry.Total) {
		t.Errorf("invariant violated: locked %s > total %s", entry.Locked, entry.Total)
	}
}

// ============================================================
// Summary / Utilization
// ============================================================

func TestSummary(t *testing.T) {
	l := newTestLedger(t)
	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"):   dec("1000"), // USDC @ $1
		models.MakeTokenID(137, "0xbbb"): dec("500"),  // USDC @ $1
		models.MakeTokenID(1, "0xccc"):   dec("2"),    // WETH, цены нет
	})

	prices := func(chainID int64, token string) (float64, bool) {
		if token == "0xccc" {
			return 0, false
		}
		return 1.0, true
	}

	summary := l.Summary(prices)

	if !floatEquals(summary.TotalValueUSD, 1500) {
		t.Errorf("total value = %v, want 1500", summary.TotalValueUSD)
	}
	if !floatEquals(summary.ByChain[1], 1000) {
		t.Errorf("chain 1 value = %v, want 1000", summary.ByChain[1])
	}
	if !floatEquals(summary.BySymbol["USDC"], 1500) {
		t.Errorf("USDC value = %v, want 1500", summary.BySymbol["USDC"])
	}
	// Токен без цены не вносит стоимость
	if v, ok := summary.BySymbol["WETH"]; ok && v != 0 {
		t.Errorf("WETH without price contributed %v", v)
	}
}

func TestUtilization(t *testing.T) {
	l := newTestLedger(t)

	if u := l.Utilization(); u != 0 {
		t.Errorf("empty ledger utilization = %v, want 0", u)
	}

	l.Refresh(map[models.TokenID]decimal.Decimal{
		models.MakeTokenID(1, "0xaaa"): dec("1000"),
	})
	if err := l.Lock(1, "0xaaa", dec("250")); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	if u := l.Utilization(); !floatEquals(u, 25) {
		t.Errorf("utilization = %v, want 25", u)
	}
}

func floatEquals(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

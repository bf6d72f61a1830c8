package venue

import (
	"strings"
	"testing"
	"time"
)

func validHash() string {
	return strings.Repeat("ab", 32)
}

func TestToModelDefaults(t *testing.T) {
	now := time.Now()

	raw := apiOrder{
		OrderHash:    "0x" + validHash(),
		Maker:        "0x1111111111111111111111111111111111111111",
		MakerAsset:   "0x2222222222222222222222222222222222222222",
		TakerAsset:   "0x3333333333333333333333333333333333333333",
		MakingAmount: "1000",
		TakingAmount: "500",
		Deadline:     now.Add(time.Hour).Unix(),
	}

	order, err := raw.toModel(137, now)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Receiver по умолчанию - maker
	if order.Receiver != raw.Maker {
		t.Errorf("receiver: ожидали maker, получили %s", order.Receiver)
	}

	// Без параметров аукциона - вырожденное окно с фиксированной ценой
	if !order.AuctionStartTime.Equal(now) || !order.AuctionEndTime.Equal(now) {
		t.Error("ожидали вырожденное окно аукциона на текущем моменте")
	}
	if !order.AuctionStartAmount.Equal(order.TakingAmount) {
		t.Errorf("startAmount: ожидали %s, получили %s", order.TakingAmount, order.AuctionStartAmount)
	}
	if !order.AuctionEndAmount.Equal(order.TakingAmount) {
		t.Errorf("endAmount: ожидали %s, получили %s", order.TakingAmount, order.AuctionEndAmount)
	}
}

func TestToModelAuctionWindow(t *testing.T) {
	now := time.Now()
	start := now.UnixMilli()
	end := now.Add(20 * time.Second).UnixMilli()

	raw := apiOrder{
		OrderHash:          "0x" + validHash(),
		Maker:              "0x1111111111111111111111111111111111111111",
		Receiver:           "0x4444444444444444444444444444444444444444",
		MakerAsset:         "0x2222222222222222222222222222222222222222",
		TakerAsset:         "0x3333333333333333333333333333333333333333",
		MakingAmount:       "1000000000",
		TakingAmount:       "400000000",
		Deadline:           now.Add(time.Hour).Unix(),
		AuctionStartTime:   start,
		AuctionEndTime:     end,
		AuctionStartAmount: "410000000",
		AuctionEndAmount:   "400000000",
	}

	order, err := raw.toModel(1, now)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if order.Receiver != raw.Receiver {
		t.Errorf("явный receiver не должен подменяться maker'ом")
	}
	if got := order.AuctionEndTime.Sub(order.AuctionStartTime); got != 20*time.Second {
		t.Errorf("окно аукциона: ожидали 20s, получили %v", got)
	}
	if order.AuctionStartAmount.String() != "410000000" {
		t.Errorf("startAmount: получили %s", order.AuctionStartAmount)
	}
}

func TestToModelBadAmounts(t *testing.T) {
	tests := []struct {
		name string
		raw  apiOrder
	}{
		{
			name: "некорректный makingAmount",
			raw:  apiOrder{MakingAmount: "abc", TakingAmount: "1"},
		},
		{
			name: "некорректный takingAmount",
			raw:  apiOrder{MakingAmount: "1", TakingAmount: ""},
		},
		{
			name: "некорректный auctionStartAmount",
			raw:  apiOrder{MakingAmount: "1", TakingAmount: "1", AuctionStartAmount: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.raw.toModel(1, time.Now()); err == nil {
				t.Error("ожидали ошибку парсинга")
			}
		})
	}
}

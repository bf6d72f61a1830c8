package solver

import (
	"testing"

	"solver/internal/models"
)

func TestEstimateGasUnits(t *testing.T) {
	tests := []struct {
		name  string
		order models.Order
		want  uint64
	}{
		{
			name:  "голый ордер - только база",
			order: models.Order{},
			want:  150_000,
		},
		{
			name:  "два interactions",
			order: models.Order{Interactions: []string{"0xaa", "0xbb"}},
			want:  250_000,
		},
		{
			name:  "whitelist из трёх",
			order: models.Order{Whitelist: []string{"a", "b", "c"}},
			want:  180_000,
		},
		{
			name: "всё вместе",
			order: models.Order{
				Interactions: []string{"0xaa"},
				Whitelist:    []string{"a", "b"},
			},
			want: 220_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateGasUnits(&tt.order); got != tt.want {
				t.Errorf("ожидали %d, получили %d", tt.want, got)
			}
		})
	}
}

func TestEstimateGasCostUSD(t *testing.T) {
	// 150000 газа по 20 gwei при ETH=$2500:
	// 150000 * 20e-9 ETH = 0.003 ETH = $7.5
	order := &models.Order{}
	got := EstimateGasCostUSD(order, 20, 2500)
	if got != 7.5 {
		t.Errorf("ожидали 7.5, получили %v", got)
	}
}

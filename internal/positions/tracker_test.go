package positions

import (
	"testing"

	"priceTrendBot/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestMinimumBuyPrice(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		wantMin float64
		wantOK  bool
	}{
		{
			name:   "empty set has no minimum",
			prices: nil,
			wantOK: false,
		},
		{
			name:    "single position",
			prices:  []float64{105.5},
			wantMin: 105.5,
			wantOK:  true,
		},
		{
			name:    "minimum not first",
			prices:  []float64{105, 100, 110},
			wantMin: 100,
			wantOK:  true,
		},
		{
			name:    "duplicate minimum",
			prices:  []float64{100, 100, 120},
			wantMin: 100,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open := make([]*domain.Position, 0, len(tt.prices))
			for _, p := range tt.prices {
				open = append(open, &domain.Position{Symbol: "BTCUSDT", BuyPrice: p})
			}

			min, ok := MinimumBuyPrice(open)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMin, min)
			}
		})
	}
}

func TestFilterBySymbol(t *testing.T) {
	open := []*domain.Position{
		{ID: 1, Symbol: "BTCUSDT", BuyPrice: 100},
		{ID: 2, Symbol: "ETHUSDT", BuyPrice: 200},
		{ID: 3, Symbol: "BTCUSDT", BuyPrice: 300},
	}

	btc := FilterBySymbol(open, "BTCUSDT")
	assert.Len(t, btc, 2)
	assert.Equal(t, int64(1), btc[0].ID)
	assert.Equal(t, int64(3), btc[1].ID)

	assert.Empty(t, FilterBySymbol(open, "SOLUSDT"))
}

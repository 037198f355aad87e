package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPosition_Directions(t *testing.T) {
	tests := []struct {
		name       string
		pos        Position
		wantLong   bool
		wantSize   float64
		wantValue  float64
	}{
		{
			name:      "long position",
			pos:       Position{Coin: "ETH", SignedSize: 2, EntryPrice: 2500},
			wantLong:  true,
			wantSize:  2,
			wantValue: 5000,
		},
		{
			name:      "short position",
			pos:       Position{Coin: "BTC", SignedSize: -0.5, EntryPrice: 60000},
			wantLong:  false,
			wantSize:  0.5,
			wantValue: 30000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLong, tt.pos.IsLong())
			assert.InDelta(t, tt.wantSize, tt.pos.Size(), 1e-9)
			assert.InDelta(t, tt.wantValue, tt.pos.Value(), 1e-9)
		})
	}
}

func TestOrder_Classification(t *testing.T) {
	tp := Order{Type: OrderTypeLimit, ReduceOnly: true, LimitPrice: 2550}
	assert.True(t, tp.IsTakeProfit())
	assert.False(t, tp.IsStopLoss())

	sl := Order{Type: OrderTypeStopMarket, LimitPrice: 2400}
	assert.True(t, sl.IsStopLoss())
	assert.False(t, sl.IsTakeProfit())

	// A plain resting limit order is neither.
	entry := Order{Type: OrderTypeLimit, ReduceOnly: false}
	assert.False(t, entry.IsTakeProfit())
	assert.False(t, entry.IsStopLoss())
}

func TestOrder_ExitPrice(t *testing.T) {
	withTrigger := Order{Type: OrderTypeStopMarket, LimitPrice: 2395, TriggerPrice: 2400}
	assert.InDelta(t, 2400.0, withTrigger.ExitPrice(), 1e-9)

	withoutTrigger := Order{Type: OrderTypeStopMarket, LimitPrice: 2395}
	assert.InDelta(t, 2395.0, withoutTrigger.ExitPrice(), 1e-9)
}

func TestFeeSettings_Rates(t *testing.T) {
	fees := FeeSettings{TakerFeePercent: 0.045, MakerFeePercent: 0.015}
	assert.InDelta(t, 0.00045, fees.TakerRate(), 1e-12)
	assert.InDelta(t, 0.00015, fees.MakerRate(), 1e-12)
}

func TestDayKey(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "utc midnight",
			in:   time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
			want: "2026-08-30",
		},
		{
			name: "local time past midnight still previous utc day",
			in:   time.Date(2026, 8, 30, 3, 0, 0, 0, loc),
			want: "2026-08-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayKey(tt.in))
		})
	}
}

package domain

import "math"

// Position represents an open perpetual-futures position on Hyperliquid.
type Position struct {
	Coin       string  // Asset symbol (e.g., "ETH")
	SignedSize float64 // Position size; positive = long, negative = short
	EntryPrice float64 // Average entry price
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool {
	return p.SignedSize > 0
}

// Size returns the absolute position size.
func (p *Position) Size() float64 {
	return math.Abs(p.SignedSize)
}

// Value returns the position notional at the entry price.
func (p *Position) Value() float64 {
	return p.EntryPrice * p.Size()
}

// AccountState is a snapshot of the account as reported by the exchange.
type AccountState struct {
	AccountValue    float64 // Total account equity in USD
	TotalMarginUsed float64 // Margin currently locked by open positions
	Positions       []Position
}

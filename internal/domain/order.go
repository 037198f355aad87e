package domain

// OrderType identifies the kind of open order.
// Values mirror the exchange's order type strings after normalization.
type OrderType string

const (
	OrderTypeLimit      OrderType = "Limit"
	OrderTypeStopMarket OrderType = "StopMarket"
)

// Order represents an open order resting on the exchange.
type Order struct {
	Coin         string    // Asset symbol the order is for
	Type         OrderType // Normalized order type; unknown types pass through and are ignored downstream
	ReduceOnly   bool      // True if the order can only reduce an existing position
	LimitPrice   float64   // Limit price
	TriggerPrice float64   // Trigger price for stop orders; 0 when the order has no trigger
	Size         float64   // Order size, always positive
}

// IsTakeProfit reports whether the order qualifies as a take-profit leg:
// a reduce-only limit order.
func (o *Order) IsTakeProfit() bool {
	return o.Type == OrderTypeLimit && o.ReduceOnly
}

// IsStopLoss reports whether the order qualifies as a stop-loss leg.
func (o *Order) IsStopLoss() bool {
	return o.Type == OrderTypeStopMarket
}

// ExitPrice returns the effective exit price for the order: the trigger
// price when present, the limit price otherwise.
func (o *Order) ExitPrice() float64 {
	if o.TriggerPrice > 0 {
		return o.TriggerPrice
	}
	return o.LimitPrice
}

package domain

// FeeSettings holds the user's fee rates as percentages: a value of
// 0.045 means 0.045% of notional. Entry is always charged at the taker
// rate (market entry); exits are charged per order type.
type FeeSettings struct {
	TakerFeePercent float64
	MakerFeePercent float64
}

// TakerRate returns the taker fee as a fraction of notional.
func (f FeeSettings) TakerRate() float64 {
	return f.TakerFeePercent / 100
}

// MakerRate returns the maker fee as a fraction of notional.
func (f FeeSettings) MakerRate() float64 {
	return f.MakerFeePercent / 100
}

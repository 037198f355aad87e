package domain

import "time"

// DailyStat tracks account equity over one UTC day for the profit-target
// feature. PnL is the equity change since the first observation of the day.
type DailyStat struct {
	Day         string  // UTC day in "2006-01-02" format
	StartEquity float64 // Account value at the first observation of the day
	LastEquity  float64 // Most recently observed account value
	PnL         float64 // LastEquity - StartEquity
	TargetUSD   float64 // Daily profit target in effect for the day
	TargetHit   bool    // True once PnL reached TargetUSD
	UpdatedAt   time.Time
}

// Streak tracks consecutive days on which the daily profit target was met.
type Streak struct {
	Current   int
	Best      int
	UpdatedAt time.Time
}

// DayKey formats a timestamp as the UTC day key used by DailyStat.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

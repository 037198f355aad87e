package ports

import (
	"context"

	"hyperdash/internal/domain"
)

// SettingsRepository stores the user's fee settings and daily profit target.
type SettingsRepository interface {
	// GetFeeSettings returns the persisted fee settings, or the canonical
	// defaults when none have been saved yet.
	GetFeeSettings(ctx context.Context) (domain.FeeSettings, error)
	// SaveFeeSettings persists the fee settings.
	SaveFeeSettings(ctx context.Context, fees domain.FeeSettings) error
	// GetDailyTarget returns the daily profit target in USD.
	GetDailyTarget(ctx context.Context) (float64, error)
	// SaveDailyTarget persists the daily profit target.
	SaveDailyTarget(ctx context.Context, targetUSD float64) error
}

// StatsRepository stores per-day PnL snapshots and the streak counters.
type StatsRepository interface {
	// GetDailyStat retrieves the stat row for a UTC day key.
	// Returns nil, nil if no row exists for the day.
	GetDailyStat(ctx context.Context, day string) (*domain.DailyStat, error)
	// UpsertDailyStat inserts or replaces the stat row for its day.
	UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error
	// GetStreak retrieves the streak counters, zero-valued if never saved.
	GetStreak(ctx context.Context) (domain.Streak, error)
	// SaveStreak persists the streak counters.
	SaveStreak(ctx context.Context, streak domain.Streak) error
}

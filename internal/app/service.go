package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hyperdash/config"
	"hyperdash/internal/analysis"
	"hyperdash/internal/domain"
	"hyperdash/internal/metrics"
	"hyperdash/internal/ports"
)

// Snapshot is the latest computed dashboard state served to the web layer.
type Snapshot struct {
	AsOf            time.Time
	AccountValue    float64
	TotalMarginUsed float64
	Analysis        analysis.Result
}

// DashboardService orchestrates the dashboard: it periodically fetches
// account state and open orders, runs the position analysis engine,
// maintains the daily profit target stats and streak, and exposes the
// latest snapshot to the HTTP layer.
type DashboardService struct {
	cfg      *config.Config
	logger   ports.Logger
	provider ports.AccountDataProvider
	settings ports.SettingsRepository
	stats    ports.StatsRepository
	notifier ports.Notifier // may be nil (notifications disabled)
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	snapshot *Snapshot
	mids     map[string]float64
}

// NewDashboardService creates a new application service instance. The
// notifier is optional; all other dependencies are required.
func NewDashboardService(
	cfg *config.Config,
	logger ports.Logger,
	provider ports.AccountDataProvider,
	settings ports.SettingsRepository,
	stats ports.StatsRepository,
	notifier ports.Notifier,
	m *metrics.Metrics,
) (*DashboardService, error) {
	if cfg == nil || logger == nil || provider == nil || settings == nil || stats == nil || m == nil {
		return nil, fmt.Errorf("missing required dependencies for DashboardService")
	}
	if cfg.UserAddress == "" {
		return nil, fmt.Errorf("configuration UserAddress must be set")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("configuration RefreshInterval must be positive")
	}

	return &DashboardService{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		settings: settings,
		stats:    stats,
		notifier: notifier,
		metrics:  m,
		mids:     make(map[string]float64),
	}, nil
}

// Start runs the refresh loop until the context is cancelled or a
// shutdown signal arrives.
func (s *DashboardService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting dashboard service", map[string]interface{}{"user": s.cfg.UserAddress, "interval": s.cfg.RefreshInterval.String()})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	// Mid-price stream feeds the live price map; refresh does not depend
	// on it, so stream failures degrade to REST-only data.
	doneCh, _, err := s.provider.StreamMids(ctx,
		s.setMids,
		func(err error) {
			s.logger.Warn(ctx, "Mid-price stream error", map[string]interface{}{"error": err})
		})
	if err != nil {
		s.logger.Error(ctx, err, "Failed to start mid-price stream; continuing without live mids")
		doneCh = nil
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error(ctx, err, "Initial refresh failed")
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Dashboard service stopping")
			if doneCh != nil {
				<-doneCh
			}
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error(ctx, err, "Refresh failed; keeping previous snapshot")
			}
		}
	}
}

// Refresh performs one full cycle: fetch, analyze, publish, persist.
// Exposed so callers can force an immediate update outside the loop.
func (s *DashboardService) Refresh(ctx context.Context) error {
	started := time.Now()
	s.metrics.RefreshesTotal.Inc()

	state, err := s.provider.GetAccountState(ctx, s.cfg.UserAddress)
	if err != nil {
		s.metrics.RefreshErrorsTotal.Inc()
		return fmt.Errorf("fetch account state: %w", err)
	}

	orders, err := s.provider.GetOpenOrders(ctx, s.cfg.UserAddress)
	if err != nil {
		s.metrics.RefreshErrorsTotal.Inc()
		return fmt.Errorf("fetch open orders: %w", err)
	}

	fees, err := s.settings.GetFeeSettings(ctx)
	if err != nil {
		s.metrics.RefreshErrorsTotal.Inc()
		return fmt.Errorf("load fee settings: %w", err)
	}

	result, err := analysis.Calculate(state.Positions, orders, fees)
	if err != nil {
		s.metrics.RefreshErrorsTotal.Inc()
		return fmt.Errorf("analyze positions: %w", err)
	}

	s.mu.Lock()
	s.snapshot = &Snapshot{
		AsOf:            time.Now().UTC(),
		AccountValue:    state.AccountValue,
		TotalMarginUsed: state.TotalMarginUsed,
		Analysis:        *result,
	}
	s.mu.Unlock()

	s.metrics.OpenPositions.Set(float64(len(result.Positions)))
	s.metrics.ExpectedProfitUSD.Set(result.TotalExpectedProfit)
	s.metrics.ExpectedLossUSD.Set(result.TotalExpectedLoss)

	if err := s.updateDailyStats(ctx, state.AccountValue, time.Now()); err != nil {
		s.logger.Error(ctx, err, "Failed to update daily stats")
	}

	s.metrics.RefreshDuration.Observe(time.Since(started).Seconds())
	s.logger.Debug(ctx, "Refresh complete", map[string]interface{}{
		"positions":      len(result.Positions),
		"expectedProfit": result.TotalExpectedProfit,
		"expectedLoss":   result.TotalExpectedLoss,
	})
	return nil
}

// updateDailyStats maintains the per-day equity snapshot, the profit
// target check, and the streak counters.
func (s *DashboardService) updateDailyStats(ctx context.Context, equity float64, now time.Time) error {
	day := domain.DayKey(now)

	target, err := s.settings.GetDailyTarget(ctx)
	if err != nil {
		return fmt.Errorf("load daily target: %w", err)
	}

	stat, err := s.stats.GetDailyStat(ctx, day)
	if err != nil {
		return fmt.Errorf("load daily stat: %w", err)
	}

	if stat == nil {
		// First observation of a new UTC day: settle yesterday before
		// opening today's row.
		if err := s.finalizePreviousDay(ctx, now); err != nil {
			s.logger.Error(ctx, err, "Failed to finalize previous day")
		}
		stat = &domain.DailyStat{
			Day:         day,
			StartEquity: equity,
		}
	}

	stat.LastEquity = equity
	stat.PnL = equity - stat.StartEquity
	stat.TargetUSD = target

	if !stat.TargetHit && target > 0 && stat.PnL >= target {
		stat.TargetHit = true
		s.metrics.TargetHitsTotal.Inc()
		if err := s.advanceStreak(ctx); err != nil {
			s.logger.Error(ctx, err, "Failed to advance streak")
		}
		s.notify(ctx, fmt.Sprintf("Daily target reached: +$%.2f (target $%.2f)", stat.PnL, target))
	}

	return s.stats.UpsertDailyStat(ctx, stat)
}

// finalizePreviousDay resets the streak when yesterday had a target and
// missed it. Best is never reset.
func (s *DashboardService) finalizePreviousDay(ctx context.Context, now time.Time) error {
	prevDay := domain.DayKey(now.UTC().AddDate(0, 0, -1))
	prev, err := s.stats.GetDailyStat(ctx, prevDay)
	if err != nil {
		return err
	}
	if prev == nil || prev.TargetHit || prev.TargetUSD <= 0 {
		return nil
	}

	streak, err := s.stats.GetStreak(ctx)
	if err != nil {
		return err
	}
	if streak.Current == 0 {
		return nil
	}

	s.logger.Info(ctx, "Daily target missed, streak reset", map[string]interface{}{"day": prevDay, "pnl": prev.PnL, "target": prev.TargetUSD})
	streak.Current = 0
	return s.stats.SaveStreak(ctx, streak)
}

func (s *DashboardService) advanceStreak(ctx context.Context) error {
	streak, err := s.stats.GetStreak(ctx)
	if err != nil {
		return err
	}
	streak.Current++
	if streak.Current > streak.Best {
		streak.Best = streak.Current
	}
	s.logger.Info(ctx, "Daily target hit, streak advanced", map[string]interface{}{"current": streak.Current, "best": streak.Best})
	return s.stats.SaveStreak(ctx, streak)
}

// notify delivers a best-effort alert; failures are logged, never fatal.
func (s *DashboardService) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn(ctx, "Notification delivery failed", map[string]interface{}{"error": err})
	}
}

func (s *DashboardService) setMids(mids map[string]float64) {
	s.mu.Lock()
	s.mids = mids
	s.mu.Unlock()
}

// LatestSnapshot returns a copy of the most recent snapshot, or false if
// no refresh has succeeded yet.
func (s *DashboardService) LatestSnapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// Mids returns a copy of the latest mid-price map.
func (s *DashboardService) Mids() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.mids))
	for k, v := range s.mids {
		out[k] = v
	}
	return out
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hyperdash/internal/analysis"
	"hyperdash/internal/domain"
	"hyperdash/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.SettingsRepository and
// ports.StatsRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/hyperdash.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the refresh loop and HTTP reads.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite repository initialized", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fee_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		taker_fee_percent REAL NOT NULL,
		maker_fee_percent REAL NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_target (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		target_usd REAL NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_stats (
		day TEXT PRIMARY KEY,
		start_equity REAL NOT NULL,
		last_equity REAL NOT NULL,
		pnl REAL NOT NULL,
		target_usd REAL NOT NULL,
		target_hit INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS streak (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		current INTEGER NOT NULL,
		best INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- SettingsRepository Implementation ---

// GetFeeSettings returns the persisted fee settings, or the canonical
// defaults when no row has been saved yet.
func (r *Repository) GetFeeSettings(ctx context.Context) (domain.FeeSettings, error) {
	const query = `SELECT taker_fee_percent, maker_fee_percent FROM fee_settings WHERE id = 1`

	var fees domain.FeeSettings
	err := r.db.QueryRowContext(ctx, query).Scan(&fees.TakerFeePercent, &fees.MakerFeePercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return analysis.DefaultFeeSettings(), nil
		}
		return domain.FeeSettings{}, fmt.Errorf("failed to query fee settings: %w: %w", ports.ErrQueryFailed, err)
	}
	return fees, nil
}

// SaveFeeSettings persists the fee settings.
func (r *Repository) SaveFeeSettings(ctx context.Context, fees domain.FeeSettings) error {
	const query = `
	INSERT INTO fee_settings (id, taker_fee_percent, maker_fee_percent, updated_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		taker_fee_percent = excluded.taker_fee_percent,
		maker_fee_percent = excluded.maker_fee_percent,
		updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, fees.TakerFeePercent, fees.MakerFeePercent, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save fee settings: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Fee settings saved", map[string]interface{}{"taker": fees.TakerFeePercent, "maker": fees.MakerFeePercent})
	return nil
}

// GetDailyTarget returns the daily profit target in USD, 0 if never set.
func (r *Repository) GetDailyTarget(ctx context.Context) (float64, error) {
	const query = `SELECT target_usd FROM daily_target WHERE id = 1`

	var target float64
	err := r.db.QueryRowContext(ctx, query).Scan(&target)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query daily target: %w: %w", ports.ErrQueryFailed, err)
	}
	return target, nil
}

// SaveDailyTarget persists the daily profit target.
func (r *Repository) SaveDailyTarget(ctx context.Context, targetUSD float64) error {
	const query = `
	INSERT INTO daily_target (id, target_usd, updated_at)
	VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		target_usd = excluded.target_usd,
		updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, targetUSD, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save daily target: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Daily target saved", map[string]interface{}{"targetUSD": targetUSD})
	return nil
}

// --- StatsRepository Implementation ---

// GetDailyStat retrieves the stat row for a UTC day key.
func (r *Repository) GetDailyStat(ctx context.Context, day string) (*domain.DailyStat, error) {
	const query = `
	SELECT day, start_equity, last_equity, pnl, target_usd, target_hit, updated_at
	FROM daily_stats
	WHERE day = ?`

	stat := &domain.DailyStat{}
	err := r.db.QueryRowContext(ctx, query, day).Scan(
		&stat.Day, &stat.StartEquity, &stat.LastEquity, &stat.PnL,
		&stat.TargetUSD, &stat.TargetHit, &stat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query daily stat for %s: %w: %w", day, ports.ErrQueryFailed, err)
	}
	return stat, nil
}

// UpsertDailyStat inserts or replaces the stat row for its day.
func (r *Repository) UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error {
	const query = `
	INSERT INTO daily_stats (day, start_equity, last_equity, pnl, target_usd, target_hit, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(day) DO UPDATE SET
		start_equity = excluded.start_equity,
		last_equity = excluded.last_equity,
		pnl = excluded.pnl,
		target_usd = excluded.target_usd,
		target_hit = excluded.target_hit,
		updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		stat.Day, stat.StartEquity, stat.LastEquity, stat.PnL,
		stat.TargetUSD, stat.TargetHit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert daily stat for %s: %w: %w", stat.Day, ports.ErrUpdateFailed, err)
	}
	return nil
}

// GetStreak retrieves the streak counters, zero-valued if never saved.
func (r *Repository) GetStreak(ctx context.Context) (domain.Streak, error) {
	const query = `SELECT current, best, updated_at FROM streak WHERE id = 1`

	var streak domain.Streak
	err := r.db.QueryRowContext(ctx, query).Scan(&streak.Current, &streak.Best, &streak.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Streak{}, nil
		}
		return domain.Streak{}, fmt.Errorf("failed to query streak: %w: %w", ports.ErrQueryFailed, err)
	}
	return streak, nil
}

// SaveStreak persists the streak counters.
func (r *Repository) SaveStreak(ctx context.Context, streak domain.Streak) error {
	const query = `
	INSERT INTO streak (id, current, best, updated_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		current = excluded.current,
		best = excluded.best,
		updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, streak.Current, streak.Best, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save streak: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Streak saved", map[string]interface{}{"current": streak.Current, "best": streak.Best})
	return nil
}

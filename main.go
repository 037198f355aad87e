package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"hyperdash/config"
	"hyperdash/internal/adapters/hyperliquid"
	"hyperdash/internal/adapters/logger"
	"hyperdash/internal/adapters/sqlite"
	"hyperdash/internal/adapters/telegram"
	"hyperdash/internal/app"
	"hyperdash/internal/metrics"
	"hyperdash/internal/ports"
	"hyperdash/internal/web"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		appLogger = logger.NewZeroLogger(cfg.LogLevel)
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Metrics
	m := metrics.New()

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 5. Seed persisted settings from the environment when provided
	seedSettings(cfg, repo, appLogger)

	// 6. Initialize Exchange Client (Hyperliquid Adapter)
	hlClient, err := hyperliquid.New(hyperliquid.Config{
		APIURL:               cfg.APIURL,
		WSURL:                cfg.WSURL,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Hyperliquid client: %v", err)
	}
	hlClient.OnReconnect = func() { m.WSReconnectsTotal.Inc() }

	// 7. Initialize Notifier (optional)
	var notifier ports.Notifier
	if cfg.NotificationsEnabled() {
		tgNotifier, err := telegram.New(telegram.Config{
			Token:  cfg.TelegramBotToken,
			ChatID: cfg.TelegramChatID,
			Logger: appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
		}
		notifier = tgNotifier
	}

	// 8. Initialize Application Service
	dashboard, err := app.NewDashboardService(cfg, appLogger, hlClient, repo, repo, notifier, m)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize dashboard service: %v", err)
	}

	// 9. Initialize HTTP Server
	srv, err := web.NewServer(web.Config{
		Addr:     cfg.HTTPAddr,
		Service:  dashboard,
		Settings: repo,
		Stats:    repo,
		Metrics:  m,
		Logger:   appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 10. Run: the dashboard service owns signal handling; the HTTP server
	// follows the shared context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webErrCh := make(chan error, 1)
	go func() { webErrCh <- srv.Start(ctx) }()

	if err := dashboard.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Dashboard service exited with error")
	}
	cancel()

	if err := <-webErrCh; err != nil {
		appLogger.Error(context.Background(), err, "HTTP server exited with error")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}

// seedSettings writes environment-supplied fee and target values into the
// settings store at startup. The target only seeds when none is set;
// explicit fee env vars always win over persisted values.
func seedSettings(cfg *config.Config, repo *sqlite.Repository, appLogger ports.Logger) {
	ctx := context.Background()

	if cfg.TakerFeePercent > 0 && cfg.MakerFeePercent > 0 {
		fees, err := repo.GetFeeSettings(ctx)
		if err == nil {
			fees.TakerFeePercent = cfg.TakerFeePercent
			fees.MakerFeePercent = cfg.MakerFeePercent
			if err := repo.SaveFeeSettings(ctx, fees); err != nil {
				appLogger.Error(ctx, err, "Failed to seed fee settings")
			}
		}
	}

	if cfg.DailyTargetUSD > 0 {
		target, err := repo.GetDailyTarget(ctx)
		if err == nil && target == 0 {
			if err := repo.SaveDailyTarget(ctx, cfg.DailyTargetUSD); err != nil {
				appLogger.Error(ctx, err, "Failed to seed daily target")
			}
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hyperdash/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Hyperliquid
	UserAddress string // Wallet address whose account is displayed (0x...)
	APIURL      string // Info API base URL (empty = mainnet)
	WSURL       string // Websocket URL (empty = mainnet)

	// Dashboard
	RefreshInterval time.Duration // How often account state is refreshed
	DailyTargetUSD  float64       // Initial daily profit target (persisted value wins once set)
	TakerFeePercent float64       // Initial taker fee percent, 0 = engine default
	MakerFeePercent float64       // Initial maker fee percent, 0 = engine default

	// HTTP
	HTTPAddr string

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" or "json"

	// Connection settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// Notifications (optional; both must be set to enable)
	TelegramBotToken string
	TelegramChatID   int64
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.UserAddress = getEnv("HL_USER_ADDRESS", "")
	if cfg.UserAddress == "" {
		errs = append(errs, "HL_USER_ADDRESS must be set")
	} else if !strings.HasPrefix(cfg.UserAddress, "0x") {
		errs = append(errs, "HL_USER_ADDRESS must be a 0x-prefixed wallet address")
	}

	cfg.APIURL = getEnv("HL_API_URL", "")
	cfg.WSURL = getEnv("HL_WS_URL", "")

	cfg.RefreshInterval, err = getEnvAsDuration("REFRESH_INTERVAL", 15*time.Second)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REFRESH_INTERVAL: %v", err))
	} else if cfg.RefreshInterval <= 0 {
		errs = append(errs, "REFRESH_INTERVAL must be positive")
	}

	cfg.DailyTargetUSD, err = getEnvAsFloat("DAILY_TARGET_USD", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DAILY_TARGET_USD: %v", err))
	} else if cfg.DailyTargetUSD < 0 {
		errs = append(errs, "DAILY_TARGET_USD cannot be negative")
	}

	cfg.TakerFeePercent, err = getEnvAsFloat("TAKER_FEE_PERCENT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKER_FEE_PERCENT: %v", err))
	} else if cfg.TakerFeePercent < 0 {
		errs = append(errs, "TAKER_FEE_PERCENT cannot be negative")
	}

	cfg.MakerFeePercent, err = getEnvAsFloat("MAKER_FEE_PERCENT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAKER_FEE_PERCENT: %v", err))
	} else if cfg.MakerFeePercent < 0 {
		errs = append(errs, "MAKER_FEE_PERCENT cannot be negative")
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.DBPath = getEnv("DB_PATH", "./data/hyperdash.db")

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	cfg.ReconnectDelay, err = getEnvAsDuration("RECONNECT_DELAY", 1*time.Second)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RECONNECT_DELAY: %v", err))
	}

	cfg.MaxReconnectAttempts, err = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RECONNECT_ATTEMPTS: %v", err))
	} else if cfg.MaxReconnectAttempts <= 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS must be positive")
	}

	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	chatID := getEnv("TELEGRAM_CHAT_ID", "")
	if chatID != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid TELEGRAM_CHAT_ID: %v", err))
		}
	}
	if (cfg.TelegramBotToken == "") != (chatID == "") {
		errs = append(errs, "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// NotificationsEnabled reports whether a Telegram notifier should be wired.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// --- Env helpers ---

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a valid integer", valueStr)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultVal float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a valid float", valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a valid duration", valueStr)
	}
	return value, nil
}

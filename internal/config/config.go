// Package config loads zigQuant's configuration from environment variables
// (and an optional .env file), the same pattern as the teacher's
// internal/config/config.go: godotenv.Load() first, then typed getenv
// helpers with defaults. Settings that matter for safety (exchange and S3
// credentials) are never included in String(), so a config value can be
// logged through String() without leaking secrets. Config has no custom
// MarshalJSON: encoding it with encoding/json includes those fields.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/joho/godotenv"
)

// ExchangeConfig holds one exchange adapter's connection settings.
type ExchangeConfig struct {
	Name      string // e.g. "hyperliquid"
	BaseURL   string // REST base URL
	WSURL     string // WebSocket base URL
	APIKey    string
	APISecret string // or a signing private key, depending on the adapter
	Testnet   bool
	RateLimit int // requests/sec the adapter should self-throttle to
}

// LoggingConfig controls pkg/logger.New.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// ServerConfig controls the Engine Manager's thin HTTP control surface.
type ServerConfig struct {
	Addr    string
	DevMode bool
}

// Config is zigQuant's process-wide configuration, assembled once at
// startup and passed by reference to every component constructor.
type Config struct {
	Exchange ExchangeConfig
	Limits   execution.RiskLimits
	Logging  LoggingConfig
	Server   ServerConfig
	S3       backtest.S3ExportConfig

	IndicatorCacheSize int
	HealthTickerCron   string // six-field cron.WithSeconds() spec
}

// String renders a redacted view of c: credential fields are left out so a
// component can log its configuration without leaking secrets, per the
// core's requirement that the logger API only ever sees sanitized views.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Exchange: %s (testnet=%t), Limits: %s, Logging: {%s,pretty=%t}, Server: %s, IndicatorCacheSize: %d}",
		c.Exchange.Name, c.Exchange.Testnet, limitsSummary(c.Limits), c.Logging.Level, c.Logging.Pretty, c.Server.Addr, c.IndicatorCacheSize,
	)
}

// limitsSummary renders RiskLimits' non-secret numbers for Config.String();
// RiskLimits carries no credentials of its own, so this is a plain summary,
// not a redaction.
func limitsSummary(l execution.RiskLimits) string {
	return fmt.Sprintf("maxNotional=%.4f maxPosition=%.4f maxLeverage=%.4f rateLimit=%d",
		l.MaxNotionalPerOrder.Float64(), l.MaxAggregatePosition.Float64(), l.MaxLeverage.Float64(), l.RateLimitPerSecond)
}

// Load reads configuration from the environment, loading a .env file first
// if one is present in the working directory (godotenv.Load's error on a
// missing file is intentionally ignored, matching the teacher's Load).
func Load() (*Config, error) {
	_ = godotenv.Load()

	limits := execution.RiskLimits{
		MaxNotionalPerOrder:  getEnvAsDecimal("MAX_NOTIONAL_PER_ORDER", decimal.Zero),
		MaxAggregatePosition: getEnvAsDecimal("MAX_AGGREGATE_POSITION", decimal.Zero),
		DailyLossFloor:       getEnvAsDecimal("DAILY_LOSS_FLOOR", decimal.Zero),
		MaxLeverage:          getEnvAsDecimal("MAX_LEVERAGE", decimal.Zero),
		RateLimitPerSecond:   getEnvAsInt("ORDER_RATE_LIMIT_PER_SECOND", 0),
	}

	cfg := &Config{
		Exchange: ExchangeConfig{
			Name:      getEnv("EXCHANGE_NAME", "hyperliquid"),
			BaseURL:   getEnv("EXCHANGE_BASE_URL", "https://api.hyperliquid.xyz"),
			WSURL:     getEnv("EXCHANGE_WS_URL", "wss://api.hyperliquid.xyz/ws"),
			APIKey:    getEnv("EXCHANGE_API_KEY", ""),
			APISecret: getEnv("EXCHANGE_API_SECRET", ""),
			Testnet:   getEnvAsBool("EXCHANGE_TESTNET", false),
			RateLimit: getEnvAsInt("EXCHANGE_RATE_LIMIT", 10),
		},
		Limits: limits,
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
		Server: ServerConfig{
			Addr:    getEnv("CONTROL_SERVER_ADDR", ":8090"),
			DevMode: getEnvAsBool("DEV_MODE", false),
		},
		S3: backtest.S3ExportConfig{
			Bucket:          getEnv("BACKTEST_EXPORT_S3_BUCKET", ""),
			Region:          getEnv("BACKTEST_EXPORT_S3_REGION", "us-east-1"),
			Prefix:          getEnv("BACKTEST_EXPORT_S3_PREFIX", "zigquant/backtests"),
			EndpointURL:     getEnv("BACKTEST_EXPORT_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKTEST_EXPORT_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKTEST_EXPORT_S3_SECRET_ACCESS_KEY", ""),
		},
		IndicatorCacheSize: getEnvAsInt("INDICATOR_CACHE_SIZE", 256),
		HealthTickerCron:   getEnv("HEALTH_TICKER_CRON", "0 */30 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that would otherwise fail confusingly deep inside a
// component constructor. Exchange credentials are intentionally not
// required here: a research/backtest-only process has no need for them.
func (c *Config) Validate() error {
	if c.IndicatorCacheSize <= 0 {
		return fmt.Errorf("INDICATOR_CACHE_SIZE must be positive, got %d", c.IndicatorCacheSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return decimal.FromFloat(f)
		}
	}
	return defaultValue
}

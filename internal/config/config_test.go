package config

import (
	"strings"
	"testing"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearExchangeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EXCHANGE_NAME", "EXCHANGE_BASE_URL", "EXCHANGE_WS_URL",
		"EXCHANGE_API_KEY", "EXCHANGE_API_SECRET", "EXCHANGE_TESTNET",
		"EXCHANGE_RATE_LIMIT", "INDICATOR_CACHE_SIZE", "HEALTH_TICKER_CRON",
		"LOG_LEVEL", "LOG_PRETTY", "CONTROL_SERVER_ADDR", "DEV_MODE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadAppliesDefaultsWithNoEnv(t *testing.T) {
	clearExchangeEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hyperliquid", cfg.Exchange.Name)
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Exchange.BaseURL)
	assert.False(t, cfg.Exchange.Testnet)
	assert.Equal(t, 256, cfg.IndicatorCacheSize)
	assert.Equal(t, "0 */30 * * * *", cfg.HealthTickerCron)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	clearExchangeEnv(t)
	t.Setenv("EXCHANGE_NAME", "hyperliquid-testnet")
	t.Setenv("EXCHANGE_TESTNET", "true")
	t.Setenv("INDICATOR_CACHE_SIZE", "512")
	t.Setenv("MAX_LEVERAGE", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hyperliquid-testnet", cfg.Exchange.Name)
	assert.True(t, cfg.Exchange.Testnet)
	assert.Equal(t, 512, cfg.IndicatorCacheSize)
	assert.Equal(t, 20.0, cfg.Limits.MaxLeverage.Float64())
}

func TestLoadRejectsNonPositiveIndicatorCacheSize(t *testing.T) {
	clearExchangeEnv(t)
	t.Setenv("INDICATOR_CACHE_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveIndicatorCacheSize(t *testing.T) {
	cfg := &Config{IndicatorCacheSize: -1}
	require.Error(t, cfg.Validate())

	cfg.IndicatorCacheSize = 1
	require.NoError(t, cfg.Validate())
}

// TestConfigStringRedactsCredentials is the safety-critical guarantee: no
// code path should be able to log a Config and leak an API key or secret.
func TestConfigStringRedactsCredentials(t *testing.T) {
	cfg := &Config{
		Exchange: ExchangeConfig{
			Name:      "hyperliquid",
			APIKey:    "super-secret-key-value",
			APISecret: "super-secret-secret-value",
		},
		S3: backtest.S3ExportConfig{
			Bucket:          "zigquant-backtests",
			AccessKeyID:     "AKIAEXAMPLESECRETID",
			SecretAccessKey: "super-secret-s3-key-value",
		},
		IndicatorCacheSize: 256,
	}

	rendered := cfg.String()
	assert.NotContains(t, rendered, "super-secret-key-value")
	assert.NotContains(t, rendered, "super-secret-secret-value")
	assert.NotContains(t, rendered, "AKIAEXAMPLESECRETID")
	assert.NotContains(t, rendered, "super-secret-s3-key-value")
	assert.True(t, strings.Contains(rendered, cfg.Exchange.Name))
}

func TestLoadDefaultsS3ExportDisabled(t *testing.T) {
	clearExchangeEnv(t)
	t.Setenv("BACKTEST_EXPORT_S3_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.S3.Enabled())
}

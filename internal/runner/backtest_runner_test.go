package runner

import (
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleSeries(n int) []domain.Candle {
	bars := make([]domain.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i > n/2 {
			price += 2
		}
		c := decimal.FromFloat(price)
		bars[i] = domain.Candle{Timestamp: domain.Timestamp(i), Open: c, High: c, Low: c, Close: c, Volume: decimal.FromFloat(1)}
	}
	return bars
}

func TestBacktestRunnerCompletesAndReportsProgress(t *testing.T) {
	r := NewBacktest("bt1", bus.New(zerolog.Nop()), zerolog.Nop())
	candles := candleSeries(100)
	scfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	cfg := backtest.Config{InitialCapital: decimal.FromInt(10000), Slippage: backtest.NoSlippage{}}

	r.Run(strategy.NewDualMovingAverage(5, 20), scfg, candles, execution.RiskLimits{}, cfg)

	assert.Equal(t, BacktestCompleted, r.GetStatus())
	assert.Equal(t, 1.0, r.Progress())
	result, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, len(candles), len(result.Equity))
}

func TestBacktestRunnerCancelIsIdempotent(t *testing.T) {
	r := NewBacktest("bt2", nil, zerolog.Nop())
	r.Cancel()
	r.Cancel()
	assert.Equal(t, BacktestQueued, r.GetStatus())
}

func TestBacktestRunnerCancelDuringRunStopsEarly(t *testing.T) {
	r := NewBacktest("bt3", nil, zerolog.Nop())
	candles := candleSeries(5000)
	scfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	cfg := backtest.Config{InitialCapital: decimal.FromInt(10000), Slippage: backtest.NoSlippage{}}

	done := make(chan struct{})
	go func() {
		r.Run(strategy.NewDualMovingAverage(5, 20), scfg, candles, execution.RiskLimits{}, cfg)
		close(done)
	}()

	r.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected cancellation to stop the run promptly")
	}
	assert.Equal(t, BacktestCancelled, r.GetStatus())
}

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/runner"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunnerForTest(t *testing.T, id string, b *bus.Bus) (*runner.StrategyRunner, *execution.Engine, chan domain.Candle) {
	t.Helper()
	cache, err := indicator.NewCache(64)
	require.NoError(t, err)

	client := adapter.NewMockExecutionClient(id)
	exec := execution.New(client, execution.RiskLimits{}, execution.DefaultRetryConfig, b, zerolog.Nop())

	ticks := make(chan domain.Candle)
	cfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	r := runner.New(id, strategy.NewDualMovingAverage(5, 20), cfg, cache, exec, ticks, b, zerolog.Nop())
	return r, exec, ticks
}

// TestActivateKillSwitchStopsAllStrategies is scenario S4: three strategies
// started, kill switch activated with reason "drill", all three must reach
// Stopped within the deadline, IsKillSwitchActive must report true, and a
// subsequent StartStrategy call must be rejected.
func TestActivateKillSwitchStopsAllStrategies(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())

	ids := []string{"s1", "s2", "s3"}
	for _, id := range ids {
		r, exec, _ := newRunnerForTest(t, id, b)
		require.NoError(t, m.StartStrategy(id, r, exec))
	}

	result := m.ActivateKillSwitch(context.Background(), "drill", true, true)
	assert.Equal(t, 3, result.StrategiesStopped)

	for _, id := range ids {
		status, err := m.GetStrategyStatus(id)
		require.NoError(t, err)
		assert.Equal(t, runner.StatusStopped, status)
	}

	active, reason := m.IsKillSwitchActive()
	assert.True(t, active)
	assert.Equal(t, "drill", reason)

	r4, exec4, _ := newRunnerForTest(t, "s4", b)
	err := m.StartStrategy("s4", r4, exec4)
	require.Error(t, err)
}

func TestDeactivateKillSwitchAllowsStartAgain(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())

	m.ActivateKillSwitch(context.Background(), "drill", false, false)
	active, _ := m.IsKillSwitchActive()
	require.True(t, active)

	m.DeactivateKillSwitch()
	active, reason := m.IsKillSwitchActive()
	assert.False(t, active)
	assert.Empty(t, reason)

	r, exec, _ := newRunnerForTest(t, "s1", b)
	require.NoError(t, m.StartStrategy("s1", r, exec))
}

func TestStrategyLifecycleOperations(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())
	r, exec, ticks := newRunnerForTest(t, "s1", b)
	require.NoError(t, m.StartStrategy("s1", r, exec))
	defer close(ticks)

	require.NoError(t, m.PauseStrategy("s1", time.Second))
	status, err := m.GetStrategyStatus("s1")
	require.NoError(t, err)
	assert.Equal(t, runner.StatusPaused, status)

	require.NoError(t, m.UpdateStrategyParams("s1", map[string]any{"fast": 10}, time.Second))
	require.NoError(t, m.ResumeStrategy("s1", time.Second))

	stats, err := m.GetStrategyStats("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", stats.ID)

	assert.Contains(t, m.ListStrategies(), "s1")

	require.NoError(t, m.StopStrategy("s1", time.Second))
}

func TestGetStrategyStatusUnknownID(t *testing.T) {
	m := New(nil, zerolog.Nop())
	_, err := m.GetStrategyStatus("missing")
	require.Error(t, err)
}

func TestGetSystemHealthReportsCountsAndProcessVitals(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())
	r, exec, ticks := newRunnerForTest(t, "s1", b)
	require.NoError(t, m.StartStrategy("s1", r, exec))
	defer close(ticks)

	health := m.GetSystemHealth()
	assert.Equal(t, 1, health.StrategiesRunning)
	assert.False(t, health.KillSwitchActive)
	assert.Greater(t, health.Goroutines, 0)
}

func candleSeriesForTest(n int) []domain.Candle {
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

func TestBacktestRegistryLifecycle(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())

	r := runner.NewBacktest("bt1", b, zerolog.Nop())
	scfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	cfg := backtest.Config{InitialCapital: decimal.FromInt(10000), Slippage: backtest.NoSlippage{}}
	candles := candleSeriesForTest(100)

	require.NoError(t, m.StartBacktest("bt1", r, func() {
		r.Run(strategy.NewDualMovingAverage(5, 20), scfg, candles, execution.RiskLimits{}, cfg)
	}))

	require.Eventually(t, func() bool {
		status, err := m.GetBacktestStatus("bt1")
		return err == nil && status == runner.BacktestCompleted
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, m.ListBacktests(), "bt1")

	progress, err := m.GetBacktestProgress("bt1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress)

	result, ok, err := m.GetBacktestResult("bt1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(candles), len(result.Equity))

	require.NoError(t, m.RemoveBacktest("bt1"))
	assert.NotContains(t, m.ListBacktests(), "bt1")
}

func TestRemoveBacktestRejectsWhileRunning(t *testing.T) {
	m := New(nil, zerolog.Nop())
	r := runner.NewBacktest("bt2", nil, zerolog.Nop())
	scfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	cfg := backtest.Config{InitialCapital: decimal.FromInt(10000), Slippage: backtest.NoSlippage{}}
	candles := candleSeriesForTest(5000)

	require.NoError(t, m.StartBacktest("bt2", r, func() {
		r.Run(strategy.NewDualMovingAverage(5, 20), scfg, candles, execution.RiskLimits{}, cfg)
	}))

	err := m.RemoveBacktest("bt2")
	require.Error(t, err)

	require.NoError(t, m.CancelBacktest("bt2"))
}

func TestHealthTickerEmitsOnBus(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())

	received := make(chan bus.Message, 1)
	unsub := b.Subscribe(bus.TopicRunner, func(msg bus.Message) {
		payload, ok := msg.Payload.(map[string]any)
		if ok {
			if _, ok := payload["health_snapshot"]; ok {
				select {
				case received <- msg:
				default:
				}
			}
		}
	})
	defer unsub()

	require.NoError(t, m.StartHealthTicker("* * * * * *"))
	defer m.StopHealthTicker()

	require.NoError(t, m.StartHealthTicker("* * * * * *"))

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a health snapshot to be published")
	}
}

func TestMaintenanceTickerEmitsOnBus(t *testing.T) {
	b := bus.New(zerolog.Nop())
	m := New(b, zerolog.Nop())
	cache, err := indicator.NewCache(16)
	require.NoError(t, err)

	received := make(chan bus.Message, 1)
	unsub := b.Subscribe(bus.TopicRunner, func(msg bus.Message) {
		payload, ok := msg.Payload.(map[string]any)
		if ok {
			if _, ok := payload["tick"]; ok {
				select {
				case received <- msg:
				default:
				}
			}
		}
	})
	defer unsub()

	require.NoError(t, m.StartMaintenanceTicker("* * * * * *", cache, time.Hour))
	defer m.StopMaintenanceTicker()
	require.NoError(t, m.StartMaintenanceTicker("* * * * * *", cache, time.Hour))

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a tick to be published")
	}
}

package runner

import (
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSink struct{}

func (noopSink) Submit(domain.Signal) error { return nil }

func testCandle(i int) domain.Candle {
	return domain.Candle{Timestamp: domain.Timestamp(i)}
}

func newTestRunner(t *testing.T) (*StrategyRunner, chan domain.Candle) {
	t.Helper()
	cache, err := indicator.NewCache(64)
	require.NoError(t, err)

	ticks := make(chan domain.Candle)
	cfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	r := New("r1", strategy.NewDualMovingAverage(5, 20), cfg, cache, noopSink{}, ticks, bus.New(zerolog.Nop()), zerolog.Nop())
	return r, ticks
}

func TestStrategyRunnerLifecycle(t *testing.T) {
	r, ticks := newTestRunner(t)
	require.NoError(t, r.Start())
	assert.Equal(t, StatusRunning, r.GetStatus())

	ticks <- testCandle(0)
	ticks <- testCandle(1)

	require.NoError(t, r.Pause(time.Second))
	assert.Equal(t, StatusPaused, r.GetStatus())

	require.NoError(t, r.Resume(time.Second))
	assert.Equal(t, StatusRunning, r.GetStatus())

	require.NoError(t, r.Stop(time.Second))
	assert.Equal(t, StatusStopped, r.GetStatus())
}

func TestStrategyRunnerUpdateParamsRequiresPause(t *testing.T) {
	r, _ := newTestRunner(t)
	require.NoError(t, r.Start())
	defer r.Stop(time.Second)

	err := r.UpdateParams(map[string]any{"fast": 10}, time.Second)
	require.Error(t, err)

	require.NoError(t, r.Pause(time.Second))
	require.NoError(t, r.UpdateParams(map[string]any{"fast": 10}, time.Second))
}

func TestStrategyRunnerStopIsIdempotent(t *testing.T) {
	r, _ := newTestRunner(t)
	require.NoError(t, r.Start())

	require.NoError(t, r.Stop(time.Second))
	assert.Equal(t, StatusStopped, r.GetStatus())
	require.NoError(t, r.Stop(time.Second), "stopping an already-stopped runner must be a no-op")
}

func TestStrategyRunnerClosedTickChannelStops(t *testing.T) {
	r, ticks := newTestRunner(t)
	require.NoError(t, r.Start())
	close(ticks)

	require.Eventually(t, func() bool {
		return r.GetStatus() == StatusStopped
	}, time.Second, 10*time.Millisecond)
}

func TestStrategyRunnerStatsTracksTickCount(t *testing.T) {
	r, ticks := newTestRunner(t)
	require.NoError(t, r.Start())
	defer r.Stop(time.Second)

	ticks <- testCandle(0)
	ticks <- testCandle(1)
	ticks <- testCandle(2)

	require.Eventually(t, func() bool {
		return r.Stats().TickCount == 3
	}, time.Second, 10*time.Millisecond)
}

package dataengine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/marketdata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cfg Config) (*Engine, *bus.Bus) {
	log := zerolog.Nop()
	b := bus.New(log)
	cache := marketdata.New(log)
	return New(cfg, b, cache, log), b
}

func TestOrderedFanOutPerSymbol(t *testing.T) {
	cfg := DefaultConfig
	e, b := newTestEngine(cfg)

	provider := adapter.NewMockDataProvider("mock")
	e.RegisterProvider(provider)
	require.NoError(t, e.Subscribe("mock", adapter.Subscription{Symbol: "BTC", Kind: adapter.SubscribeTrade}))

	const n = 50
	for i := 0; i < n; i++ {
		provider.Push(adapter.DataMessage{
			Kind:   adapter.MsgTrade,
			Symbol: "BTC",
			Trade:  adapter.Trade{Symbol: "BTC", Price: decimal.MustFromString("1"), Timestamp: domain.Timestamp(i)},
		})
	}

	var mu sync.Mutex
	var received []domain.Timestamp
	done := make(chan struct{})
	b.Subscribe(bus.TopicTrade, func(msg bus.Message) {
		dm := msg.Payload.(adapter.DataMessage)
		mu.Lock()
		received = append(received, dm.Trade.Timestamp)
		if len(received) == n {
			close(done)
		}
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, n)
	for i, ts := range received {
		assert.Equal(t, domain.Timestamp(i), ts)
	}
}

func TestPersistentDisconnectMarksProviderFailed(t *testing.T) {
	cfg := DefaultConfig
	cfg.MaxReconnectAttempts = 3
	cfg.ReconnectWindow = time.Minute
	cfg.PollIdleInterval = time.Millisecond
	e, _ := newTestEngine(cfg)

	provider := adapter.NewMockDataProvider("mock")
	e.RegisterProvider(provider)

	for i := 0; i < cfg.MaxReconnectAttempts; i++ {
		provider.Push(adapter.DataMessage{Kind: adapter.MsgDisconnected})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	require.Eventually(t, func() bool {
		state, err := e.State("mock")
		return err == nil && state == ProviderFailed
	}, time.Second, time.Millisecond)
}

func TestSymbolBufferDropsOldestNonSnapshot(t *testing.T) {
	buf := newSymbolBuffer(2)
	log := zerolog.Nop()

	buf.push(adapter.DataMessage{Kind: adapter.MsgTrade, Symbol: "BTC", Trade: adapter.Trade{Timestamp: 1}}, log)
	buf.push(adapter.DataMessage{Kind: adapter.MsgTrade, Symbol: "BTC", Trade: adapter.Trade{Timestamp: 2}}, log)
	buf.push(adapter.DataMessage{Kind: adapter.MsgTrade, Symbol: "BTC", Trade: adapter.Trade{Timestamp: 3}}, log)

	msg, ok := buf.pop()
	require.True(t, ok)
	assert.Equal(t, domain.Timestamp(2), msg.Trade.Timestamp)

	msg, ok = buf.pop()
	require.True(t, ok)
	assert.Equal(t, domain.Timestamp(3), msg.Trade.Timestamp)

	_, ok = buf.pop()
	assert.False(t, ok)
}

func TestSymbolBufferNeverDropsSnapshot(t *testing.T) {
	buf := newSymbolBuffer(1)
	log := zerolog.Nop()

	snapshot := adapter.DataMessage{
		Kind:      adapter.MsgOrderbook,
		Symbol:    "BTC",
		Orderbook: domain.Orderbook{Symbol: "BTC", IsSnapshot: true},
	}
	buf.push(snapshot, log)
	buf.push(adapter.DataMessage{Kind: adapter.MsgTrade, Symbol: "BTC"}, log)

	msg, ok := buf.pop()
	require.True(t, ok)
	assert.Equal(t, adapter.MsgOrderbook, msg.Kind)
	assert.True(t, msg.Orderbook.IsSnapshot)
}

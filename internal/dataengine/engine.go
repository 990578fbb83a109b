// Package dataengine implements the Data Engine: it binds to one or more
// IDataProvider implementations, multiplexes their subscription sets, and
// fans normalised messages out to the Message Bus and Market Data Cache in
// the order each provider emitted them.
package dataengine

import (
	"context"
	"sync"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/marketdata"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/rs/zerolog"
)

// ProviderState is the engine's view of a bound provider's health.
type ProviderState string

const (
	ProviderConnected    ProviderState = "connected"
	ProviderDisconnected ProviderState = "disconnected"
	ProviderFailed       ProviderState = "failed"
)

// Config tunes the engine's buffering and failure-detection policy.
type Config struct {
	// QueueDepth bounds the per-symbol buffer between a provider's producer
	// loop and its fan-out consumer.
	QueueDepth int
	// PollIdleInterval is how long the producer loop waits before retrying
	// Poll after it returns no message.
	PollIdleInterval time.Duration
	// MaxReconnectAttempts consecutive disconnects within ReconnectWindow
	// before the provider is marked Failed and its subscriptions stopped.
	MaxReconnectAttempts int
	ReconnectWindow      time.Duration
}

// DefaultConfig matches the specification's illustrative figures.
var DefaultConfig = Config{
	QueueDepth:           256,
	PollIdleInterval:     10 * time.Millisecond,
	MaxReconnectAttempts: 5,
	ReconnectWindow:      time.Minute,
}

// Engine is the Data Engine. The zero value is not usable; construct with
// New.
type Engine struct {
	cfg   Config
	log   zerolog.Logger
	bus   *bus.Bus
	cache *marketdata.Cache

	mu        sync.Mutex
	providers map[string]*providerHandle
}

type providerHandle struct {
	provider adapter.IDataProvider

	mu            sync.Mutex
	state         ProviderState
	active        map[adapter.Subscription]struct{}
	symbolBuffers map[string]*symbolBuffer
	disconnects   []time.Time

	cancel context.CancelFunc
}

// New constructs an Engine bound to bus and cache.
func New(cfg Config, b *bus.Bus, cache *marketdata.Cache, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		log:       log.With().Str("component", "data_engine").Logger(),
		bus:       b,
		cache:     cache,
		providers: make(map[string]*providerHandle),
	}
}

// RegisterProvider binds a named provider. It does not connect; call Start
// to begin polling.
func (e *Engine) RegisterProvider(provider adapter.IDataProvider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[provider.Name()] = &providerHandle{
		provider:      provider,
		state:         ProviderDisconnected,
		active:        make(map[adapter.Subscription]struct{}),
		symbolBuffers: make(map[string]*symbolBuffer),
	}
}

// Subscribe subscribes providerName to sub. At-most-one concurrent
// subscription for the same (provider, symbol, kind) is maintained;
// duplicate calls are idempotent.
func (e *Engine) Subscribe(providerName string, sub adapter.Subscription) error {
	h, err := e.handle(providerName)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if _, already := h.active[sub]; already {
		h.mu.Unlock()
		return nil
	}
	h.active[sub] = struct{}{}
	if _, ok := h.symbolBuffers[sub.Symbol]; !ok {
		h.symbolBuffers[sub.Symbol] = newSymbolBuffer(e.cfg.QueueDepth)
	}
	h.mu.Unlock()

	return h.provider.Subscribe(sub)
}

// Unsubscribe removes every active subscription for symbol on providerName.
func (e *Engine) Unsubscribe(providerName, symbol string) error {
	h, err := e.handle(providerName)
	if err != nil {
		return err
	}
	h.mu.Lock()
	for sub := range h.active {
		if sub.Symbol == symbol {
			delete(h.active, sub)
		}
	}
	h.mu.Unlock()
	return h.provider.Unsubscribe(symbol)
}

func (e *Engine) handle(providerName string) (*providerHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.providers[providerName]
	if !ok {
		return nil, xerrors.InvalidArgumentErr("unknown provider: " + providerName)
	}
	return h, nil
}

// Start connects every registered provider and begins its producer and
// fan-out loops. It returns once every provider's initial Connect call has
// completed (successfully or not); ongoing reconnection happens in the
// background.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	handles := make([]*providerHandle, 0, len(e.providers))
	for _, h := range e.providers {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		e.startProvider(ctx, h)
	}
}

func (e *Engine) startProvider(ctx context.Context, h *providerHandle) {
	providerCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	if err := h.provider.Connect(providerCtx); err != nil {
		e.log.Warn().Err(err).Str("provider", h.provider.Name()).Msg("initial connect failed")
	} else {
		h.mu.Lock()
		h.state = ProviderConnected
		h.mu.Unlock()
	}

	go e.producerLoop(providerCtx, h)
}

// producerLoop is the "one producer thread per provider" from the
// concurrency model: it polls the provider and routes every message into
// the per-symbol buffer, applying back-pressure there.
func (e *Engine) producerLoop(ctx context.Context, h *providerHandle) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		h.mu.Lock()
		failed := h.state == ProviderFailed
		h.mu.Unlock()
		if failed {
			return
		}

		msg, ok, err := h.provider.Poll(ctx)
		if err != nil {
			e.log.Error().Err(err).Str("provider", h.provider.Name()).Msg("provider poll error")
			e.bus.Emit(bus.TopicMarketData, h.provider.Name(), adapter.DataMessage{Kind: adapter.MsgError, Err: err})
			continue
		}
		if !ok {
			select {
			case <-time.After(e.cfg.PollIdleInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		e.route(h, msg)
	}
}

func (e *Engine) route(h *providerHandle, msg adapter.DataMessage) {
	switch msg.Kind {
	case adapter.MsgConnected:
		h.mu.Lock()
		h.state = ProviderConnected
		h.disconnects = nil
		h.mu.Unlock()
		e.bus.Emit(bus.TopicMarketData, h.provider.Name(), msg)
		return
	case adapter.MsgDisconnected:
		e.handleDisconnect(h)
		e.bus.Emit(bus.TopicMarketData, h.provider.Name(), msg)
		return
	case adapter.MsgError:
		e.bus.Emit(bus.TopicMarketData, h.provider.Name(), msg)
		return
	}

	symbol := msg.Symbol
	h.mu.Lock()
	buf, ok := h.symbolBuffers[symbol]
	if !ok {
		buf = newSymbolBuffer(e.cfg.QueueDepth)
		h.symbolBuffers[symbol] = buf
	}
	h.mu.Unlock()

	if buf.push(msg, e.log) {
		go e.drainOnce(h, buf)
	}
}

// drainOnce publishes buffered messages in order until the buffer is empty.
// It is started when a symbol's buffer transitions from idle to active so each symbol has
// at most one in-flight drain goroutine at a time, preserving emission
// order without a permanently parked goroutine per symbol.
func (e *Engine) drainOnce(h *providerHandle, buf *symbolBuffer) {
	for {
		msg, ok := buf.pop()
		if !ok {
			return
		}
		e.publish(h, msg)
	}
}

func (e *Engine) publish(h *providerHandle, msg adapter.DataMessage) {
	topic := bus.TopicMarketData
	switch msg.Kind {
	case adapter.MsgOrderbook:
		topic = bus.TopicOrderbook
		e.cache.PutQuote(msg.Symbol, msg.Orderbook, time.Now())
	case adapter.MsgTrade:
		topic = bus.TopicTrade
	case adapter.MsgCandle:
		topic = bus.TopicCandle
	}
	e.bus.Emit(topic, h.provider.Name(), msg)
}

func (e *Engine) handleDisconnect(h *providerHandle) {
	now := time.Now()
	h.mu.Lock()
	h.state = ProviderDisconnected
	h.disconnects = append(h.disconnects, now)
	cutoff := now.Add(-e.cfg.ReconnectWindow)
	kept := h.disconnects[:0]
	for _, t := range h.disconnects {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	h.disconnects = kept
	failed := len(h.disconnects) >= e.cfg.MaxReconnectAttempts
	if failed {
		h.state = ProviderFailed
	}
	h.mu.Unlock()

	if failed {
		e.log.Error().Str("provider", h.provider.Name()).
			Int("disconnects", e.cfg.MaxReconnectAttempts).
			Dur("window", e.cfg.ReconnectWindow).
			Msg("provider exceeded reconnect budget, marking failed")
	}
}

// State returns the engine's current view of providerName's health.
func (e *Engine) State(providerName string) (ProviderState, error) {
	h, err := e.handle(providerName)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, nil
}

// Stop cancels every provider's producer loop and disconnects it.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	handles := make([]*providerHandle, 0, len(e.providers))
	for _, h := range e.providers {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		h.mu.Lock()
		cancel := h.cancel
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		_ = h.provider.Disconnect(ctx)
	}
}

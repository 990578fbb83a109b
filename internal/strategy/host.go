package strategy

import (
	"fmt"
	"sync"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/rs/zerolog"
)

// IndicatorRequest is one indicator a strategy declares it needs populated
// before signal evaluation, via PopulateIndicators.
type IndicatorRequest struct {
	Name   string
	Params indicator.Params
}

// SignalSink is how the Host forwards strategy-emitted signals onward; the
// Execution Engine implements it in live trading, the Backtest Engine's
// simulator implements it in replay.
type SignalSink interface {
	Submit(signal domain.Signal) error
}

// Host drives a single strategy instance through its per-tick lifecycle:
// append candles, refresh indicators, evaluate exits before entries, forward
// any emitted signal downstream.
type Host struct {
	log      zerolog.Logger
	bus      *bus.Bus
	cache    *indicator.Cache
	sink     SignalSink
	strategy Strategy
	cfg      domain.StrategyConfig

	mu      sync.Mutex
	candles *domain.Candles
	pos     *PositionManager
	seriesID string
	age      int
}

// NewHost constructs a Host bound to one strategy instance.
func NewHost(strategy Strategy, cfg domain.StrategyConfig, cache *indicator.Cache, sink SignalSink, b *bus.Bus, log zerolog.Logger) *Host {
	return &Host{
		log:      log.With().Str("component", "strategy_host").Str("pair", cfg.Pair.String()).Logger(),
		bus:      b,
		cache:    cache,
		sink:     sink,
		strategy: strategy,
		cfg:      cfg,
		candles:  domain.NewCandles(nil),
		pos:      NewPositionManager(),
		seriesID: fmt.Sprintf("%s:%d", cfg.Pair.String(), cfg.Timeframe),
	}
}

// Init runs the strategy's one-time setup.
func (h *Host) Init() error {
	return h.strategy.Init(Context{Config: h.cfg})
}

// Deinit tears the strategy down.
func (h *Host) Deinit() {
	h.strategy.Deinit()
}

// OnCandle is the Host's per-tick entry point: append the new bar, refresh
// indicators, evaluate exit before entry, forward any resulting signal.
//
// Order, per the strategy lifecycle:
//  1. Append/update candles for the strategy's pair and timeframe.
//  2. Ensure the indicator cache is current.
//  3. Evaluate exit conditions on any open position (minimum-ROI schedule,
//     trailing stop, strategy-specific exit signal) — always before entry.
//  4. Evaluate entry signal for the flat case.
//  5. Forward any emitted signal to the sink.
func (h *Host) OnCandle(bar domain.Candle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.candles.Append(bar)
	h.age++
	index := h.candles.Len() - 1

	if err := h.strategy.PopulateIndicators(h.candles); err != nil {
		return fmt.Errorf("populate indicators: %w", err)
	}

	pos := h.pos.Get(h.cfg.Pair.String())
	pos.MarkPrice = &bar.Close
	pos.Recalculate()

	if !pos.IsFlat() {
		if signal, ok := h.evaluateExit(index, pos); ok {
			return h.forward(signal)
		}
		return nil
	}

	if signal, ok := h.strategy.GenerateEntrySignal(h.candles, index); ok {
		return h.forward(signal)
	}
	return nil
}

// evaluateExit checks, in order: the minimum-ROI schedule, the trailing
// stop, then the strategy's own exit signal. The first that fires wins.
func (h *Host) evaluateExit(index int, pos *domain.Position) (domain.Signal, bool) {
	if roi, ok := h.cfg.ROIForAge(h.age); ok {
		if h.returnOnEntry(pos).GreaterOrEqual(roi) {
			return h.exitSignal(pos), true
		}
	}

	if h.cfg.TrailingStop != nil && h.cfg.TrailingStop.Enabled {
		if h.trailingStopTriggered(pos) {
			return h.exitSignal(pos), true
		}
	}

	return h.strategy.GenerateExitSignal(h.candles, index, pos)
}

// returnOnEntry computes the unrealised return relative to entry notional.
func (h *Host) returnOnEntry(pos *domain.Position) decimal.Decimal {
	notional := pos.Size.Abs().Mul(pos.EntryPrice)
	if notional.IsZero() {
		return decimal.Zero
	}
	ret, err := pos.UnrealisedPnL.Div(notional)
	if err != nil {
		return decimal.Zero
	}
	return ret
}

// trailingStopTriggered is a placeholder hook: strategies with bespoke
// trailing-stop needs track peak price themselves via strategy-specific
// state; the host-level schedule here only covers the common activation/
// trail-percent configuration.
func (h *Host) trailingStopTriggered(pos *domain.Position) bool {
	ts := h.cfg.TrailingStop
	activation := h.returnOnEntry(pos)
	if activation.LessThan(ts.ActivationPct) {
		return false
	}
	trailBound := activation.Sub(ts.TrailPct)
	return h.returnOnEntry(pos).LessThan(trailBound)
}

func (h *Host) exitSignal(pos *domain.Position) domain.Signal {
	sigType := domain.SignalExitLong
	if pos.Size.IsNegative() {
		sigType = domain.SignalExitShort
	}
	return domain.Signal{
		Type:     sigType,
		Pair:     h.cfg.Pair,
		Price:    *pos.MarkPrice,
		Strength: 1,
	}
}

func (h *Host) forward(signal domain.Signal) error {
	if h.sink == nil {
		return nil
	}
	if err := h.sink.Submit(signal); err != nil {
		h.log.Error().Err(err).Str("signal", string(signal.Type)).Msg("signal submission failed")
		return err
	}
	if h.bus != nil {
		h.bus.Emit(bus.TopicTick, "strategy_host", signal)
	}
	return nil
}

// Fingerprint returns the indicator-cache fingerprint for the host's current
// candle sequence.
func (h *Host) Fingerprint() indicator.Fingerprint {
	return indicator.Fingerprint{
		SeriesID:  h.seriesID,
		Length:    h.candles.Len(),
		LastStamp: int64(h.candles.LastTimestamp()),
	}
}

// OnOrderUpdate forwards an order-update event to the strategy and, on a
// terminal rejection/cancellation, leaves the position manager untouched
// (only fills change position state).
func (h *Host) OnOrderUpdate(event OrderUpdateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strategy.OnOrderUpdate(event)
}

// OnFill applies a fill to the local position view and forwards it to the
// strategy.
func (h *Host) OnFill(event FillEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pos := h.pos.Get(event.Symbol)
	signedQty := event.FillQuantity
	pos.ApplyFill(signedQty, event.FillPrice)
	h.strategy.OnFill(event)
}

// Reconcile overwrites the local position view with the Execution Engine's
// authoritative state.
func (h *Host) Reconcile(symbol string, authoritative domain.Position) {
	h.pos.Reconcile(symbol, authoritative)
}

// Positions returns a snapshot of the host's tracked positions.
func (h *Host) Positions() map[string]domain.Position {
	return h.pos.All()
}

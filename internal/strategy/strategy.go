// Package strategy implements the Strategy Host: the polymorphic strategy
// lifecycle, its indicator cache wiring, and the position manager that
// reconciles strategy-local position views against the Execution Engine.
package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
)

// OrderUpdateEvent is delivered to Strategy.OnOrderUpdate whenever an order
// the strategy submitted changes status.
type OrderUpdateEvent struct {
	ClientOrderID string
	Status        domain.OrderStatus
	Reason        string
}

// FillEvent is delivered to Strategy.OnFill on every (partial or full) fill.
type FillEvent struct {
	ClientOrderID string
	Symbol        string
	FillQuantity  decimal.Decimal
	FillPrice     decimal.Decimal
}

// Context is what the host hands a strategy on Init: everything it needs to
// read configuration and schedule work, without exposing host internals.
type Context struct {
	Config domain.StrategyConfig
}

// Strategy is polymorphic over the capability set the Strategy Host drives
// each tick. Built-in variants: dual moving-average, RSI mean-reversion,
// Bollinger breakout, triple-MA, MACD divergence. New variants plug in
// without the host changing.
type Strategy interface {
	// Init is called once before the first tick.
	Init(ctx Context) error
	// Deinit is called once when the strategy is being torn down.
	Deinit()

	// PopulateIndicators ensures every indicator this strategy needs is
	// computed and attached to candles before signal evaluation.
	PopulateIndicators(candles *domain.Candles) error

	// GenerateEntrySignal is evaluated only while the strategy is flat.
	GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool)
	// GenerateExitSignal is evaluated only while a position is open, before
	// any entry evaluation in the same tick.
	GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool)

	OnOrderUpdate(event OrderUpdateEvent)
	OnFill(event FillEvent)
}

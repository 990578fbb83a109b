// Package backtest implements the Backtest Engine: a deterministic,
// event-sorted replay of a strategy against historical candles, reusing the
// Execution Engine's risk gates and status machine via a simulated adapter.
package backtest

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
)

// SlippageModel perturbs a simulated fill price, e.g. a fixed basis-point
// model. Implementations must be pure functions of (price, side) so replay
// stays deterministic.
type SlippageModel interface {
	Apply(price decimal.Decimal, side domain.Side) decimal.Decimal
}

// NoSlippage is the identity model.
type NoSlippage struct{}

func (NoSlippage) Apply(price decimal.Decimal, side domain.Side) decimal.Decimal { return price }

// FixedBps applies a fixed basis-point cost against the trader: buys fill
// higher, sells fill lower.
type FixedBps struct {
	Bps decimal.Decimal // e.g. 5 for 0.05%
}

func (f FixedBps) Apply(price decimal.Decimal, side domain.Side) decimal.Decimal {
	factor, err := f.Bps.Div(decimal.FromInt(10000))
	if err != nil {
		return price
	}
	delta := price.Mul(factor)
	if side == domain.SideBuy {
		return price.Add(delta)
	}
	return price.Sub(delta)
}

// Config parameterizes one backtest run.
type Config struct {
	InitialCapital decimal.Decimal
	CommissionRate decimal.Decimal // fraction of notional, e.g. 0.001
	Slippage       SlippageModel
	FillAtClose    bool // false (default): market orders fill at next candle's open
}

// Trade is one completed (or still-open) position-affecting fill recorded
// during replay.
type Trade struct {
	Symbol        string
	Side          domain.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Commission    decimal.Decimal
	RealisedPnL   decimal.Decimal
	Timestamp     domain.Timestamp
	ClientOrderID string
}

// EquitySnapshot is the account value at one candle boundary.
type EquitySnapshot struct {
	Timestamp domain.Timestamp
	Equity    decimal.Decimal
}

// Metrics summarizes a completed run.
type Metrics struct {
	TotalReturn   decimal.Decimal
	MaxDrawdown   decimal.Decimal
	SharpeRatio   float64
	WinRate       float64
	ProfitFactor  float64
	NumberOfTrades int
}

// Result is everything a backtest run produces.
type Result struct {
	Trades    []Trade
	Equity    []EquitySnapshot
	Metrics   Metrics
}

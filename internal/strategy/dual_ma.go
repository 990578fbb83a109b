package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
)

const (
	dualMAFastKey = "dual_ma_fast"
	dualMASlowKey = "dual_ma_slow"
)

// DualMovingAverage is a classic crossover strategy: enter long when the
// fast SMA crosses above the slow SMA, enter short (or exit a long) on the
// reverse cross. FastPeriod and SlowPeriod default to 5 and 20.
type DualMovingAverage struct {
	FastPeriod int
	SlowPeriod int

	cfg Context
}

// NewDualMovingAverage constructs a DualMovingAverage with the given
// periods; a zero period falls back to the 5/20 default.
func NewDualMovingAverage(fastPeriod, slowPeriod int) *DualMovingAverage {
	if fastPeriod <= 0 {
		fastPeriod = 5
	}
	if slowPeriod <= 0 {
		slowPeriod = 20
	}
	return &DualMovingAverage{FastPeriod: fastPeriod, SlowPeriod: slowPeriod}
}

func (s *DualMovingAverage) Init(ctx Context) error {
	s.cfg = ctx
	return nil
}

func (s *DualMovingAverage) Deinit() {}

func (s *DualMovingAverage) PopulateIndicators(candles *domain.Candles) error {
	bars := indicator.Bars{Close: candles.Closes()}

	fast, err := (indicator.SMA{}).Compute(bars, indicator.Params{"period": s.FastPeriod})
	if err != nil {
		return err
	}
	slow, err := (indicator.SMA{}).Compute(bars, indicator.Params{"period": s.SlowPeriod})
	if err != nil {
		return err
	}

	candles.SetIndicator(dualMAFastKey, fast)
	candles.SetIndicator(dualMASlowKey, slow)
	return nil
}

// crossedAbove reports whether fast crossed above slow between index-1 and
// index: both values must exist at both positions, fast must have been at or
// below slow the bar before, and strictly above at index.
func crossedAbove(fast, slow []*decimal.Decimal, index int) bool {
	if index < 1 {
		return false
	}
	f0, s0, f1, s1 := fast[index-1], slow[index-1], fast[index], slow[index]
	if f0 == nil || s0 == nil || f1 == nil || s1 == nil {
		return false
	}
	return !f0.GreaterThan(*s0) && f1.GreaterThan(*s1)
}

func crossedBelow(fast, slow []*decimal.Decimal, index int) bool {
	if index < 1 {
		return false
	}
	f0, s0, f1, s1 := fast[index-1], slow[index-1], fast[index], slow[index]
	if f0 == nil || s0 == nil || f1 == nil || s1 == nil {
		return false
	}
	return !f0.LessThan(*s0) && f1.LessThan(*s1)
}

func (s *DualMovingAverage) GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool) {
	fast := candles.Indicator(dualMAFastKey)
	slow := candles.Indicator(dualMASlowKey)
	if fast == nil || slow == nil {
		return domain.Signal{}, false
	}

	bar := candles.Bars[index]
	if crossedAbove(fast, slow, index) {
		return domain.Signal{
			Type:      domain.SignalEntryLong,
			Pair:      s.cfg.Config.Pair,
			Side:      domain.SideBuy,
			Price:     bar.Close,
			Strength:  1,
			Timestamp: bar.Timestamp,
		}, true
	}
	if crossedBelow(fast, slow, index) {
		return domain.Signal{
			Type:      domain.SignalEntryShort,
			Pair:      s.cfg.Config.Pair,
			Side:      domain.SideSell,
			Price:     bar.Close,
			Strength:  1,
			Timestamp: bar.Timestamp,
		}, true
	}
	return domain.Signal{}, false
}

func (s *DualMovingAverage) GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool) {
	fast := candles.Indicator(dualMAFastKey)
	slow := candles.Indicator(dualMASlowKey)
	if fast == nil || slow == nil {
		return domain.Signal{}, false
	}

	bar := candles.Bars[index]
	if pos.Size.IsPositive() && crossedBelow(fast, slow, index) {
		return domain.Signal{
			Type:      domain.SignalExitLong,
			Pair:      s.cfg.Config.Pair,
			Side:      domain.SideSell,
			Price:     bar.Close,
			Strength:  1,
			Timestamp: bar.Timestamp,
		}, true
	}
	if pos.Size.IsNegative() && crossedAbove(fast, slow, index) {
		return domain.Signal{
			Type:      domain.SignalExitShort,
			Pair:      s.cfg.Config.Pair,
			Side:      domain.SideBuy,
			Price:     bar.Close,
			Strength:  1,
			Timestamp: bar.Timestamp,
		}, true
	}
	return domain.Signal{}, false
}

func (s *DualMovingAverage) OnOrderUpdate(OrderUpdateEvent) {}
func (s *DualMovingAverage) OnFill(FillEvent)                {}

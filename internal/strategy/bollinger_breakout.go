package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
)

const (
	bollingerUpperKey  = "bollinger_breakout_upper"
	bollingerMiddleKey = "bollinger_breakout_middle"
	bollingerLowerKey  = "bollinger_breakout_lower"
)

// BollingerBreakout enters long on a close above the upper band and short on
// a close below the lower band, betting momentum continues through the
// band; it exits back to flat once price reverts to the middle band.
// Period/Mult default to 20/2.
type BollingerBreakout struct {
	Period int
	Mult   decimal.Decimal

	cfg Context
}

// NewBollingerBreakout constructs a BollingerBreakout; zero values fall back
// to the 20-period, 2-sigma defaults.
func NewBollingerBreakout(period int, mult decimal.Decimal) *BollingerBreakout {
	if period <= 0 {
		period = 20
	}
	if mult.IsZero() {
		mult = decimal.FromInt(2)
	}
	return &BollingerBreakout{Period: period, Mult: mult}
}

func (s *BollingerBreakout) Init(ctx Context) error {
	s.cfg = ctx
	return nil
}

func (s *BollingerBreakout) Deinit() {}

func (s *BollingerBreakout) PopulateIndicators(candles *domain.Candles) error {
	bars := indicator.Bars{Close: candles.Closes()}
	res, err := (indicator.Bollinger{}).ComputeFull(bars, indicator.Params{"period": s.Period, "mult": s.Mult})
	if err != nil {
		return err
	}
	candles.SetIndicator(bollingerUpperKey, res.Upper)
	candles.SetIndicator(bollingerMiddleKey, res.Middle)
	candles.SetIndicator(bollingerLowerKey, res.Lower)
	return nil
}

func (s *BollingerBreakout) GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool) {
	upper := candles.Indicator(bollingerUpperKey)
	lower := candles.Indicator(bollingerLowerKey)
	if upper == nil || lower == nil || index >= len(upper) || upper[index] == nil || lower[index] == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]

	if bar.Close.GreaterThan(*upper[index]) {
		return domain.Signal{Type: domain.SignalEntryLong, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if bar.Close.LessThan(*lower[index]) {
		return domain.Signal{Type: domain.SignalEntryShort, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *BollingerBreakout) GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool) {
	middle := candles.Indicator(bollingerMiddleKey)
	if middle == nil || index >= len(middle) || middle[index] == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]

	if pos.Size.IsPositive() && bar.Close.LessOrEqual(*middle[index]) {
		return domain.Signal{Type: domain.SignalExitLong, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if pos.Size.IsNegative() && bar.Close.GreaterOrEqual(*middle[index]) {
		return domain.Signal{Type: domain.SignalExitShort, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *BollingerBreakout) OnOrderUpdate(OrderUpdateEvent) {}
func (s *BollingerBreakout) OnFill(FillEvent)                {}

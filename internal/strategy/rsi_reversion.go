package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
)

const rsiReversionKey = "rsi_reversion"

// RSIMeanReversion enters long on any bar where RSI is below Oversold
// (betting on a bounce) and enters short on any bar where it is above
// Overbought. It exits a long
// once RSI recovers past the midpoint, and a short once it falls back below
// it. Period/Oversold/Overbought default to 14/30/70.
type RSIMeanReversion struct {
	Period     int
	Oversold   decimal.Decimal
	Overbought decimal.Decimal

	cfg Context
}

// NewRSIMeanReversion constructs an RSIMeanReversion with the given
// parameters; zero values fall back to the 14/30/70 defaults.
func NewRSIMeanReversion(period int, oversold, overbought decimal.Decimal) *RSIMeanReversion {
	if period <= 0 {
		period = 14
	}
	if oversold.IsZero() {
		oversold = decimal.FromInt(30)
	}
	if overbought.IsZero() {
		overbought = decimal.FromInt(70)
	}
	return &RSIMeanReversion{Period: period, Oversold: oversold, Overbought: overbought}
}

func (s *RSIMeanReversion) Init(ctx Context) error {
	s.cfg = ctx
	return nil
}

func (s *RSIMeanReversion) Deinit() {}

func (s *RSIMeanReversion) PopulateIndicators(candles *domain.Candles) error {
	bars := indicator.Bars{Close: candles.Closes()}
	rsi, err := (indicator.RSI{}).Compute(bars, indicator.Params{"period": s.Period})
	if err != nil {
		return err
	}
	candles.SetIndicator(rsiReversionKey, rsi)
	return nil
}

func (s *RSIMeanReversion) GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool) {
	rsi := candles.Indicator(rsiReversionKey)
	if rsi == nil || index >= len(rsi) || rsi[index] == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]
	v := *rsi[index]

	if v.LessThan(s.Oversold) {
		return domain.Signal{Type: domain.SignalEntryLong, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if v.GreaterThan(s.Overbought) {
		return domain.Signal{Type: domain.SignalEntryShort, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *RSIMeanReversion) GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool) {
	rsi := candles.Indicator(rsiReversionKey)
	if rsi == nil || index >= len(rsi) || rsi[index] == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]
	v := *rsi[index]
	mid, err := s.midpointSafe()
	if err != nil {
		return domain.Signal{}, false
	}

	if pos.Size.IsPositive() && v.GreaterOrEqual(mid) {
		return domain.Signal{Type: domain.SignalExitLong, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if pos.Size.IsNegative() && v.LessOrEqual(mid) {
		return domain.Signal{Type: domain.SignalExitShort, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *RSIMeanReversion) midpointSafe() (decimal.Decimal, error) {
	return s.Oversold.Add(s.Overbought).Div(decimal.FromInt(2))
}

func (s *RSIMeanReversion) OnOrderUpdate(OrderUpdateEvent) {}
func (s *RSIMeanReversion) OnFill(FillEvent)                {}

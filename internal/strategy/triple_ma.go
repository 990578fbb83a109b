package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
)

const (
	tripleMAFastKey = "triple_ma_fast"
	tripleMAMidKey  = "triple_ma_mid"
	tripleMASlowKey = "triple_ma_slow"
)

// TripleMovingAverage requires all three SMAs to be stacked in trend order
// before signalling: fast > mid > slow for a long entry, fast < mid < slow
// for a short, reducing the whipsaws a single crossover is prone to. It
// exits once the stack breaks (fast crosses the mid). Periods default to
// 5/10/20.
type TripleMovingAverage struct {
	FastPeriod int
	MidPeriod  int
	SlowPeriod int

	cfg Context
}

// NewTripleMovingAverage constructs a TripleMovingAverage; zero periods fall
// back to the 5/10/20 defaults.
func NewTripleMovingAverage(fast, mid, slow int) *TripleMovingAverage {
	if fast <= 0 {
		fast = 5
	}
	if mid <= 0 {
		mid = 10
	}
	if slow <= 0 {
		slow = 20
	}
	return &TripleMovingAverage{FastPeriod: fast, MidPeriod: mid, SlowPeriod: slow}
}

func (s *TripleMovingAverage) Init(ctx Context) error {
	s.cfg = ctx
	return nil
}

func (s *TripleMovingAverage) Deinit() {}

func (s *TripleMovingAverage) PopulateIndicators(candles *domain.Candles) error {
	bars := indicator.Bars{Close: candles.Closes()}
	sma := indicator.SMA{}

	fast, err := sma.Compute(bars, indicator.Params{"period": s.FastPeriod})
	if err != nil {
		return err
	}
	mid, err := sma.Compute(bars, indicator.Params{"period": s.MidPeriod})
	if err != nil {
		return err
	}
	slow, err := sma.Compute(bars, indicator.Params{"period": s.SlowPeriod})
	if err != nil {
		return err
	}

	candles.SetIndicator(tripleMAFastKey, fast)
	candles.SetIndicator(tripleMAMidKey, mid)
	candles.SetIndicator(tripleMASlowKey, slow)
	return nil
}

func (s *TripleMovingAverage) stack(candles *domain.Candles, index int) (fast, mid, slow *decimal.Decimal) {
	f := candles.Indicator(tripleMAFastKey)
	m := candles.Indicator(tripleMAMidKey)
	sl := candles.Indicator(tripleMASlowKey)
	if f == nil || m == nil || sl == nil || index >= len(f) {
		return nil, nil, nil
	}
	if f[index] == nil || m[index] == nil || sl[index] == nil {
		return nil, nil, nil
	}
	return f[index], m[index], sl[index]
}

func (s *TripleMovingAverage) GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool) {
	fast, mid, slow := s.stack(candles, index)
	if fast == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]
	fd, md, sd := *fast, *mid, *slow

	if fd.GreaterThan(md) && md.GreaterThan(sd) {
		return domain.Signal{Type: domain.SignalEntryLong, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if fd.LessThan(md) && md.LessThan(sd) {
		return domain.Signal{Type: domain.SignalEntryShort, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *TripleMovingAverage) GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool) {
	fast, mid, _ := s.stack(candles, index)
	if fast == nil {
		return domain.Signal{}, false
	}
	bar := candles.Bars[index]
	fd, md := *fast, *mid

	if pos.Size.IsPositive() && fd.LessThan(md) {
		return domain.Signal{Type: domain.SignalExitLong, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if pos.Size.IsNegative() && fd.GreaterThan(md) {
		return domain.Signal{Type: domain.SignalExitShort, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *TripleMovingAverage) OnOrderUpdate(OrderUpdateEvent) {}
func (s *TripleMovingAverage) OnFill(FillEvent)                {}

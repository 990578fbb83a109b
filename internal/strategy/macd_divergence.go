package strategy

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
)

const (
	macdDivergenceLineKey      = "macd_divergence_line"
	macdDivergenceSignalKey    = "macd_divergence_signal"
	macdDivergenceHistogramKey = "macd_divergence_histogram"
)

// MACDDivergence enters on a zero-line cross of the histogram (MACD line
// crossing its signal line) and exits on the reverse cross. Fast/Slow/Signal
// periods default to 12/26/9.
type MACDDivergence struct {
	Fast   int
	Slow   int
	Signal int

	cfg Context
}

// NewMACDDivergence constructs a MACDDivergence; zero periods fall back to
// the conventional 12/26/9 defaults.
func NewMACDDivergence(fast, slow, signal int) *MACDDivergence {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	return &MACDDivergence{Fast: fast, Slow: slow, Signal: signal}
}

func (s *MACDDivergence) Init(ctx Context) error {
	s.cfg = ctx
	return nil
}

func (s *MACDDivergence) Deinit() {}

func (s *MACDDivergence) PopulateIndicators(candles *domain.Candles) error {
	bars := indicator.Bars{Close: candles.Closes()}
	res, err := (indicator.MACD{}).ComputeFull(bars, indicator.Params{"fast": s.Fast, "slow": s.Slow, "signal": s.Signal})
	if err != nil {
		return err
	}
	candles.SetIndicator(macdDivergenceLineKey, res.MACD)
	candles.SetIndicator(macdDivergenceSignalKey, res.Signal)
	candles.SetIndicator(macdDivergenceHistogramKey, res.Histogram)
	return nil
}

func (s *MACDDivergence) histogramCross(candles *domain.Candles, index int) (crossedUp, crossedDown bool) {
	hist := candles.Indicator(macdDivergenceHistogramKey)
	if hist == nil || index < 1 || index >= len(hist) {
		return false, false
	}
	prev, cur := hist[index-1], hist[index]
	if prev == nil || cur == nil {
		return false, false
	}
	crossedUp = !prev.IsPositive() && cur.IsPositive()
	crossedDown = !prev.IsNegative() && cur.IsNegative()
	return crossedUp, crossedDown
}

func (s *MACDDivergence) GenerateEntrySignal(candles *domain.Candles, index int) (domain.Signal, bool) {
	up, down := s.histogramCross(candles, index)
	bar := candles.Bars[index]
	if up {
		return domain.Signal{Type: domain.SignalEntryLong, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if down {
		return domain.Signal{Type: domain.SignalEntryShort, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *MACDDivergence) GenerateExitSignal(candles *domain.Candles, index int, pos *domain.Position) (domain.Signal, bool) {
	up, down := s.histogramCross(candles, index)
	bar := candles.Bars[index]
	if pos.Size.IsPositive() && down {
		return domain.Signal{Type: domain.SignalExitLong, Pair: s.cfg.Config.Pair, Side: domain.SideSell, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	if pos.Size.IsNegative() && up {
		return domain.Signal{Type: domain.SignalExitShort, Pair: s.cfg.Config.Pair, Side: domain.SideBuy, Price: bar.Close, Strength: 1, Timestamp: bar.Timestamp}, true
	}
	return domain.Signal{}, false
}

func (s *MACDDivergence) OnOrderUpdate(OrderUpdateEvent) {}
func (s *MACDDivergence) OnFill(FillEvent)                {}

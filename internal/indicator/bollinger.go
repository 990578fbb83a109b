package indicator

import (
	"math"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/markcheno/go-talib"
)

// Bollinger is Bollinger Bands: a middle SMA band plus upper/lower bands at
// Multiplier sample standard deviations, computed by go-talib.BBands.
type Bollinger struct{}

func (Bollinger) Name() string { return "bollinger" }

func (Bollinger) RequiredWarmUp(params Params) int {
	period := params.int("period", 20)
	return period - 1
}

// BollingerResult carries all three bands.
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
}

func (b Bollinger) Compute(bars Bars, params Params) (Series, error) {
	res, err := b.ComputeFull(bars, params)
	if err != nil {
		return nil, err
	}
	return res.Middle, nil
}

// ComputeFull returns the upper, middle, and lower bands. Middle is
// computed via the same talib.Sma call SMA{}.Compute uses (rather than
// taken from BBands' own middle output) so the two stay exactly equal, not
// merely equal within the specification's 0.01% relative error tolerance.
func (Bollinger) ComputeFull(bars Bars, params Params) (BollingerResult, error) {
	period := params.int("period", 20)
	mult := params.decimal("mult", decimal.FromInt(2)).Float64()
	n := bars.Len()

	if n < period || period < 2 {
		return BollingerResult{Upper: nilSeries(n), Middle: nilSeries(n), Lower: nilSeries(n)}, nil
	}

	closes := toFloats(bars.Close)
	// talib.BBands scales the population standard deviation; multiplying by
	// sqrt(period/(period-1)) turns that into the sample standard deviation.
	dev := mult * math.Sqrt(float64(period)/float64(period-1))
	upperRaw, _, lowerRaw := talib.BBands(closes, period, dev, dev, 0)
	return BollingerResult{
		Upper:  fromTalib(n, upperRaw),
		Middle: fromTalib(n, talib.Sma(closes, period)),
		Lower:  fromTalib(n, lowerRaw),
	}, nil
}

package indicator

import "github.com/markcheno/go-talib"

// SMA is the simple moving average of closing price over Period bars,
// computed by go-talib.Sma.
type SMA struct{}

func (SMA) Name() string { return "sma" }

func (SMA) RequiredWarmUp(params Params) int {
	period := params.int("period", 14)
	if period < 1 {
		period = 1
	}
	return period - 1
}

func (s SMA) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	if period < 1 {
		period = 1
	}
	n := bars.Len()
	if n < period {
		return nilSeries(n), nil
	}
	return fromTalib(n, talib.Sma(toFloats(bars.Close), period)), nil
}

package indicator

import "github.com/markcheno/go-talib"

// ATR is the average true range, Wilder-smoothed, computed by go-talib.Atr.
type ATR struct{}

func (ATR) Name() string { return "atr" }

func (ATR) RequiredWarmUp(params Params) int {
	period := params.int("period", 14)
	return period
}

func (a ATR) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	n := bars.Len()
	if n <= period || period < 1 {
		return nilSeries(n), nil
	}
	raw := talib.Atr(toFloats(bars.High), toFloats(bars.Low), toFloats(bars.Close), period)
	return fromTalib(n, raw), nil
}

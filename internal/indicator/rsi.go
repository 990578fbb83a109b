package indicator

import "github.com/markcheno/go-talib"

// RSI is the relative strength index using Wilder's smoothing (not a simple
// average of gains/losses), computed by go-talib.Rsi.
type RSI struct{}

func (RSI) Name() string { return "rsi" }

func (RSI) RequiredWarmUp(params Params) int {
	period := params.int("period", 14)
	return period
}

func (r RSI) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	n := bars.Len()
	if n <= period || period < 1 {
		return nilSeries(n), nil
	}
	return fromTalib(n, talib.Rsi(toFloats(bars.Close), period)), nil
}

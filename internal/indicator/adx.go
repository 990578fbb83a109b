package indicator

import "github.com/markcheno/go-talib"

// ADX is Wilder's average directional index, derived from Wilder-smoothed
// +DI/-DI, computed by go-talib.Adx.
type ADX struct{}

func (ADX) Name() string { return "adx" }

func (ADX) RequiredWarmUp(params Params) int {
	period := params.int("period", 14)
	return 2 * period
}

func (a ADX) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	n := bars.Len()
	if n <= 2*period || period < 1 {
		return nilSeries(n), nil
	}
	raw := talib.Adx(toFloats(bars.High), toFloats(bars.Low), toFloats(bars.Close), period)
	return fromTalib(n, raw), nil
}

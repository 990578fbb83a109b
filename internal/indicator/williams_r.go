package indicator

import "github.com/markcheno/go-talib"

// WilliamsR is Williams %R: position of the close within the high/low range
// over Period bars, scaled to [-100, 0], computed by go-talib.WillR.
type WilliamsR struct{}

func (WilliamsR) Name() string { return "williams_r" }

func (WilliamsR) RequiredWarmUp(params Params) int {
	return params.int("period", 14) - 1
}

func (w WilliamsR) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	n := bars.Len()
	if n < period || period < 1 {
		return nilSeries(n), nil
	}
	raw := talib.WillR(toFloats(bars.High), toFloats(bars.Low), toFloats(bars.Close), period)
	return fromTalib(n, raw), nil
}

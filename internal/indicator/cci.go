package indicator

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/markcheno/go-talib"
)

// CCI is the commodity channel index: deviation of the typical price from
// its moving average, scaled by mean absolute deviation, computed by
// go-talib.Cci.
type CCI struct{}

func (CCI) Name() string { return "cci" }

func (CCI) RequiredWarmUp(params Params) int {
	return params.int("period", 20) - 1
}

// typicalPrice is also used by VWAP, which has no go-talib equivalent.
func typicalPrice(bars Bars, i int) decimal.Decimal {
	three := decimal.FromInt(3)
	sum := bars.High[i].Add(bars.Low[i]).Add(bars.Close[i])
	avg, _ := sum.Div(three)
	return avg
}

func (c CCI) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 20)
	n := bars.Len()
	if n < period || period < 1 {
		return nilSeries(n), nil
	}
	raw := talib.Cci(toFloats(bars.High), toFloats(bars.Low), toFloats(bars.Close), period)
	return fromTalib(n, raw), nil
}

package indicator

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/markcheno/go-talib"
)

// EMA is the exponential moving average with alpha = 2/(period+1), seeded by
// the simple average of the first Period closes, computed by go-talib.Ema.
type EMA struct{}

func (EMA) Name() string { return "ema" }

func (EMA) RequiredWarmUp(params Params) int {
	period := params.int("period", 14)
	if period < 1 {
		period = 1
	}
	return period - 1
}

// computeEMA is factored out so MACD can run an EMA over an arbitrary
// Decimal series (the MACD line itself), not just closing price.
func computeEMA(closes []decimal.Decimal, period int) (Series, error) {
	n := len(closes)
	if n < period || period < 1 {
		return nilSeries(n), nil
	}
	return fromTalib(n, talib.Ema(toFloats(closes), period)), nil
}

func (e EMA) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 14)
	return computeEMA(bars.Close, period)
}

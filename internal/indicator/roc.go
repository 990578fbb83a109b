package indicator

import "github.com/markcheno/go-talib"

// ROC is the rate of change: percentage change of close versus Period bars
// ago, computed by go-talib.Roc.
type ROC struct{}

func (ROC) Name() string { return "roc" }

func (ROC) RequiredWarmUp(params Params) int {
	return params.int("period", 12)
}

func (r ROC) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 12)
	n := bars.Len()
	if n <= period || period < 1 {
		return nilSeries(n), nil
	}
	return fromTalib(n, talib.Roc(toFloats(bars.Close), period)), nil
}

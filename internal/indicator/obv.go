package indicator

import "github.com/markcheno/go-talib"

// OBV is on-balance volume: a running total of volume signed by the
// direction of each bar's close-to-close change, computed by go-talib.Obv.
type OBV struct{}

func (OBV) Name() string { return "obv" }

func (OBV) RequiredWarmUp(Params) int { return 0 }

func (o OBV) Compute(bars Bars, _ Params) (Series, error) {
	n := bars.Len()
	if n == 0 {
		return nilSeries(n), nil
	}
	raw := talib.Obv(toFloats(bars.Close), toFloats(bars.Volume))
	return fromTalib(n, raw), nil
}

package indicator

import (
	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/markcheno/go-talib"
)

// ParabolicSAR is Wilder's stop-and-reverse trend indicator: an
// acceleration-factor-driven trailing stop that flips side when price
// crosses it, computed by go-talib.Sar.
type ParabolicSAR struct{}

func (ParabolicSAR) Name() string { return "parabolic_sar" }

func (ParabolicSAR) RequiredWarmUp(Params) int { return 1 }

func (p ParabolicSAR) Compute(bars Bars, params Params) (Series, error) {
	step := params.decimal("step", decimal.MustFromString("0.02")).Float64()
	maxAF := params.decimal("max", decimal.MustFromString("0.2")).Float64()
	n := bars.Len()
	if n < 2 {
		return nilSeries(n), nil
	}
	raw := talib.Sar(toFloats(bars.High), toFloats(bars.Low), step, maxAF)
	return fromTalib(n, raw), nil
}

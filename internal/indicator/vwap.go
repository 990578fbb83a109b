package indicator

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// VWAP is the cumulative volume-weighted average price from the start of
// the input series (a session reset is the caller's responsibility: pass
// only the bars for the session being measured).
type VWAP struct{}

func (VWAP) Name() string { return "vwap" }

func (VWAP) RequiredWarmUp(Params) int { return 0 }

func (v VWAP) Compute(bars Bars, _ Params) (Series, error) {
	n := bars.Len()
	out := nilSeries(n)

	cumPV := decimal.Zero
	cumVol := decimal.Zero
	for i := 0; i < n; i++ {
		tp := typicalPrice(bars, i)
		cumPV = cumPV.Add(tp.Mul(bars.Volume[i]))
		cumVol = cumVol.Add(bars.Volume[i])
		if cumVol.IsZero() {
			continue
		}
		vwap, err := cumPV.Div(cumVol)
		if err != nil {
			return nil, err
		}
		out[i] = val(vwap)
	}
	return out, nil
}

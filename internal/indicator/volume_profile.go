package indicator

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// VolumeProfile buckets traded volume into price bins over a rolling
// lookback window and reports, at each bar, the price of the highest-volume
// bin observed so far in that window (the point of control).
type VolumeProfile struct{}

func (VolumeProfile) Name() string { return "volume_profile" }

func (VolumeProfile) RequiredWarmUp(params Params) int {
	return params.int("period", 50) - 1
}

func (vp VolumeProfile) Compute(bars Bars, params Params) (Series, error) {
	period := params.int("period", 50)
	bins := params.int("bins", 10)
	n := bars.Len()
	out := nilSeries(n)
	if n < period || period < 1 || bins < 1 {
		return out, nil
	}

	for i := period - 1; i < n; i++ {
		start := i - period + 1
		hh, ll := bars.High[start], bars.Low[start]
		for j := start + 1; j <= i; j++ {
			if bars.High[j].GreaterThan(hh) {
				hh = bars.High[j]
			}
			if bars.Low[j].LessThan(ll) {
				ll = bars.Low[j]
			}
		}
		rng := hh.Sub(ll)
		if rng.IsZero() {
			out[i] = val(hh)
			continue
		}
		binWidth, err := rng.Div(decimal.FromInt(int64(bins)))
		if err != nil {
			return nil, err
		}

		volumeByBin := make([]decimal.Decimal, bins)
		for j := start; j <= i; j++ {
			bin := binIndex(bars.Close[j], ll, binWidth, bins)
			volumeByBin[bin] = volumeByBin[bin].Add(bars.Volume[j])
		}

		best := 0
		for b := 1; b < bins; b++ {
			if volumeByBin[b].GreaterThan(volumeByBin[best]) {
				best = b
			}
		}
		poc := ll.Add(binWidth.Mul(decimal.FromInt(int64(best))).Add(binWidth.Mul(decimal.MustFromString("0.5"))))
		out[i] = val(poc)
	}
	return out, nil
}

func binIndex(price, low, binWidth decimal.Decimal, bins int) int {
	if binWidth.IsZero() {
		return 0
	}
	offset, err := price.Sub(low).Div(binWidth)
	if err != nil {
		return 0
	}
	idx := int(offset.Float64())
	if idx < 0 {
		idx = 0
	}
	if idx >= bins {
		idx = bins - 1
	}
	return idx
}

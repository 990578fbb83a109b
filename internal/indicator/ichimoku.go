package indicator

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// Ichimoku is the Ichimoku Kinko Hyo cloud system: conversion line, base
// line, two leading spans, and a lagging span.
type Ichimoku struct{}

func (Ichimoku) Name() string { return "ichimoku" }

// RequiredWarmUp matches Compute's output, the Base line, which is nil for
// its first basePeriod-1 positions. ComputeFull's SpanB is nil for its first
// spanBPeriod-1+displacement positions and the Lagging span for its last
// displacement positions; callers needing every line should use
// ComputeFull's own nil-checks rather than this warm-up alone.
func (Ichimoku) RequiredWarmUp(params Params) int {
	return params.int("base", 26) - 1
}

// IchimokuResult carries all five Ichimoku lines, the leading spans already
// projected Displacement bars forward and the lagging span shifted back, as
// conventionally plotted.
type IchimokuResult struct {
	Conversion Series
	Base       Series
	SpanA      Series
	SpanB      Series
	Lagging    Series
}

func midpointRange(bars Bars, i, period int) (decimal.Decimal, bool) {
	if i-period+1 < 0 {
		return decimal.Zero, false
	}
	hh, ll := bars.High[i-period+1], bars.Low[i-period+1]
	for j := i - period + 2; j <= i; j++ {
		if bars.High[j].GreaterThan(hh) {
			hh = bars.High[j]
		}
		if bars.Low[j].LessThan(ll) {
			ll = bars.Low[j]
		}
	}
	two, _ := hh.Add(ll).Div(decimal.FromInt(2))
	return two, true
}

func (i Ichimoku) Compute(bars Bars, params Params) (Series, error) {
	res, err := i.ComputeFull(bars, params)
	if err != nil {
		return nil, err
	}
	return res.Base, nil
}

// ComputeFull returns every Ichimoku line.
func (Ichimoku) ComputeFull(bars Bars, params Params) (IchimokuResult, error) {
	convPeriod := params.int("conversion", 9)
	basePeriod := params.int("base", 26)
	spanBPeriod := params.int("spanB", 52)
	displacement := params.int("displacement", 26)
	n := bars.Len()

	res := IchimokuResult{
		Conversion: nilSeries(n),
		Base:       nilSeries(n),
		SpanA:      nilSeries(n),
		SpanB:      nilSeries(n),
		Lagging:    nilSeries(n),
	}

	for idx := 0; idx < n; idx++ {
		if v, ok := midpointRange(bars, idx, convPeriod); ok {
			res.Conversion[idx] = val(v)
		}
		if v, ok := midpointRange(bars, idx, basePeriod); ok {
			res.Base[idx] = val(v)
		}
	}

	for idx := 0; idx < n; idx++ {
		projected := idx + displacement
		if projected >= n {
			continue
		}
		if res.Conversion[idx] != nil && res.Base[idx] != nil {
			avg, err := res.Conversion[idx].Add(*res.Base[idx]).Div(decimal.FromInt(2))
			if err != nil {
				return IchimokuResult{}, err
			}
			res.SpanA[projected] = val(avg)
		}
		if v, ok := midpointRange(bars, idx, spanBPeriod); ok {
			res.SpanB[projected] = val(v)
		}
	}

	for idx := 0; idx < n; idx++ {
		if idx-displacement >= 0 {
			res.Lagging[idx-displacement] = val(bars.Close[idx])
		}
	}

	return res, nil
}

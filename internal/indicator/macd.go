package indicator

import "github.com/markcheno/go-talib"

// MACD is fast-EMA minus slow-EMA, plus a signal line that is an EMA of the
// MACD line itself ("EMAs of EMAs"), computed by go-talib.Macd.
type MACD struct{}

func (MACD) Name() string { return "macd" }

func (MACD) RequiredWarmUp(params Params) int {
	slow := params.int("slow", 26)
	signal := params.int("signal", 9)
	return slow - 1 + signal - 1
}

// MACDResult carries the three lines MACD conventionally exposes. Compute
// returns the MACD line via the Indicator contract; callers needing the
// signal/histogram call ComputeFull.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

func (m MACD) Compute(bars Bars, params Params) (Series, error) {
	res, err := m.ComputeFull(bars, params)
	if err != nil {
		return nil, err
	}
	return res.MACD, nil
}

// ComputeFull returns all three MACD lines. MACD and Signal come straight
// from go-talib.Macd; Histogram is re-derived as their Decimal difference
// rather than taken from talib's own (independently-rounded) histogram
// output, so Histogram[i] == MACD[i]-Signal[i] holds exactly, not just
// within floating-point tolerance.
func (MACD) ComputeFull(bars Bars, params Params) (MACDResult, error) {
	fast := params.int("fast", 12)
	slow := params.int("slow", 26)
	signalPeriod := params.int("signal", 9)
	n := bars.Len()

	warmUp := slow - 1 + signalPeriod - 1
	if n <= warmUp || fast < 1 || slow < 1 || signalPeriod < 1 {
		return MACDResult{MACD: nilSeries(n), Signal: nilSeries(n), Histogram: nilSeries(n)}, nil
	}

	macdRaw, signalRaw, _ := talib.Macd(toFloats(bars.Close), fast, slow, signalPeriod)
	macdSeries := fromTalib(n, macdRaw)
	signalSeries := fromTalib(n, signalRaw)

	histogram := nilSeries(n)
	for i := 0; i < n; i++ {
		if macdSeries[i] == nil || signalSeries[i] == nil {
			continue
		}
		histogram[i] = val(macdSeries[i].Sub(*signalSeries[i]))
	}

	return MACDResult{MACD: macdSeries, Signal: signalSeries, Histogram: histogram}, nil
}

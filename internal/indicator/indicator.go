// Package indicator implements the Indicator Kernel: a set of Decimal-native
// technical indicators sharing one contract, plus a memoising Cache in front
// of them (see cache.go). Most kernels delegate their numeric core to
// go-talib, the same library the teacher's trader/trader-go formulas
// packages call for Sma/Ema/Rsi/BBands; Ichimoku, VWAP, and VolumeProfile
// have no go-talib equivalent and stay hand-rolled on Decimal.
package indicator

import (
	"math"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
)

// Series is a computed indicator output: one entry per input candle, nil at
// warm-up positions.
type Series []*decimal.Decimal

// Indicator computes one named technical indicator over a close/high/low/
// volume series. Implementations are pure functions of their input and
// parameters: identical (candles, params) must produce bit-identical output,
// per the indicator cache's referential-transparency contract.
type Indicator interface {
	Name() string
	// RequiredWarmUp returns how many leading positions of the output are
	// necessarily nil for the given parameters.
	RequiredWarmUp(params Params) int
	// Compute returns one value per input bar, nil for warm-up positions.
	Compute(bars Bars, params Params) (Series, error)
}

// Params is an indicator's opaque-to-the-cache parameter set; indicators
// type-assert the fields they need.
type Params map[string]any

func (p Params) int(key string, def int) int {
	if v, ok := p[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

func (p Params) decimal(key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := p[key]; ok {
		if d, ok := v.(decimal.Decimal); ok {
			return d
		}
	}
	return def
}

// Bars is the OHLCV input every indicator consumes, kept independent of the
// domain package's Candles type so the kernel has no dependency on strategy-
// or engine-level concerns.
type Bars struct {
	Open   []decimal.Decimal
	High   []decimal.Decimal
	Low    []decimal.Decimal
	Close  []decimal.Decimal
	Volume []decimal.Decimal
}

func (b Bars) Len() int { return len(b.Close) }

func nilSeries(n int) Series {
	return make(Series, n)
}

func val(d decimal.Decimal) *decimal.Decimal {
	v := d
	return &v
}

// toFloats converts a Decimal slice to the float64 slices go-talib
// operates on. The Decimal contract is preserved at every indicator's
// public boundary; this conversion is an implementation detail of the
// kernels that delegate to go-talib.
func toFloats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Float64()
	}
	return out
}

// fromTalib converts a go-talib output back into a Decimal Series aligned
// against n input bars. go-talib indicators return a slice no longer than
// the input, with undefined (warm-up) positions carrying math.NaN() and
// valid positions right-aligned against the final input bar; fromTalib
// mirrors that alignment and leaves NaN positions nil.
func fromTalib(n int, raw []float64) Series {
	out := nilSeries(n)
	offset := n - len(raw)
	if offset < 0 {
		offset = 0
	}
	for i, v := range raw {
		idx := i + offset
		if idx < 0 || idx >= n || math.IsNaN(v) {
			continue
		}
		out[idx] = val(decimal.FromFloat(v))
	}
	return out
}

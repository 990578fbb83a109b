package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp Timestamp
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Candles is an ordered (ascending timestamp) sequence of bars plus named
// indicator outputs kept parallel to it. IndicatorValues[name][i] corresponds
// to Bars[i]; a nil entry marks a warm-up position.
type Candles struct {
	Bars            []Candle
	IndicatorValues map[string][]*decimal.Decimal
}

// NewCandles wraps bars with an empty indicator table.
func NewCandles(bars []Candle) *Candles {
	return &Candles{
		Bars:            bars,
		IndicatorValues: make(map[string][]*decimal.Decimal),
	}
}

// Len returns the number of bars.
func (c *Candles) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Bars)
}

// Closes extracts the close price series, the input most indicators consume.
func (c *Candles) Closes() []decimal.Decimal {
	out := make([]decimal.Decimal, len(c.Bars))
	for i, b := range c.Bars {
		out[i] = b.Close
	}
	return out
}

// LastTimestamp returns the timestamp of the last bar, or 0 for an empty
// sequence.
func (c *Candles) LastTimestamp() Timestamp {
	if len(c.Bars) == 0 {
		return 0
	}
	return c.Bars[len(c.Bars)-1].Timestamp
}

// SetIndicator stores a computed indicator output, keyed by name, parallel to
// Bars. Callers (the indicator cache) are responsible for keeping the length
// equal to len(Bars).
func (c *Candles) SetIndicator(name string, values []*decimal.Decimal) {
	c.IndicatorValues[name] = values
}

// Indicator returns the stored output for name, or nil if it has not been
// computed yet.
func (c *Candles) Indicator(name string) []*decimal.Decimal {
	return c.IndicatorValues[name]
}

// Append adds a new bar in place, preserving timestamp order. It does not
// retroactively extend indicator arrays; callers must invalidate and
// recompute indicators after appending.
func (c *Candles) Append(bar Candle) {
	c.Bars = append(c.Bars, bar)
}

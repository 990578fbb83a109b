package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// TrailingStopConfig configures a trailing-stop exit.
type TrailingStopConfig struct {
	Enabled       bool
	ActivationPct decimal.Decimal // unrealised-return threshold that arms the trail
	TrailPct      decimal.Decimal // distance the stop trails behind the peak
}

// StrategyConfig is the opaque-to-the-host configuration a strategy instance
// is constructed with.
type StrategyConfig struct {
	Pair      TradingPair
	Timeframe Duration

	// MinimumROI maps age-in-candles to the minimum return required to exit;
	// the host picks the tightest schedule entry whose age threshold has been
	// reached.
	MinimumROI map[int]decimal.Decimal

	TrailingStop *TrailingStopConfig

	// Params is strategy-specific and opaque to the host (e.g. MA periods).
	Params map[string]any
}

// ROIForAge returns the minimum ROI required to exit at the given candle age,
// the tightest (highest age threshold not exceeding age) schedule entry, and
// ok=false when no schedule entry applies yet.
func (c *StrategyConfig) ROIForAge(age int) (decimal.Decimal, bool) {
	if len(c.MinimumROI) == 0 {
		return decimal.Zero, false
	}
	bestAge := -1
	var best decimal.Decimal
	for threshold, roi := range c.MinimumROI {
		if threshold <= age && threshold > bestAge {
			bestAge = threshold
			best = roi
		}
	}
	if bestAge < 0 {
		return decimal.Zero, false
	}
	return best, true
}

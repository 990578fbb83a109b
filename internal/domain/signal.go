package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// SignalType classifies a strategy signal.
type SignalType string

const (
	SignalEntryLong  SignalType = "entry_long"
	SignalEntryShort SignalType = "entry_short"
	SignalExitLong   SignalType = "exit_long"
	SignalExitShort  SignalType = "exit_short"
	SignalAdjust     SignalType = "adjust"
)

// Signal is what a strategy emits for the Execution Engine (live) or the
// Backtest Engine's simulator (replay) to act on.
type Signal struct {
	Type      SignalType
	Pair      TradingPair
	Side      Side
	Price     decimal.Decimal
	Strength  float64 // in [0,1]
	Timestamp Timestamp
	Metadata  map[string]any
}

// Valid reports whether Strength is within the required [0,1] range.
func (s Signal) Valid() bool {
	return s.Strength >= 0 && s.Strength <= 1
}

package domain

import "fmt"

// TradingPair identifies a base/quote instrument independent of any one
// exchange's symbol spelling.
type TradingPair struct {
	Base  string
	Quote string
}

// String renders the pair as "BASE/QUOTE", e.g. "BTC/USD".
func (p TradingPair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// SymbolMap maps TradingPair to an exchange-specific symbol string. Adapters
// own the concrete mapping; the core only needs it to be consistent.
type SymbolMap map[TradingPair]string

// Symbol resolves pair to its exchange symbol, returning ok=false when the
// pair has not been mapped.
func (m SymbolMap) Symbol(pair TradingPair) (string, bool) {
	s, ok := m[pair]
	return s, ok
}

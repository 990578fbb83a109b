package domain

import "github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"

// Level is one price level of an order book side.
type Level struct {
	Price     decimal.Decimal
	Size      decimal.Decimal
	NumOrders int
}

// Orderbook is a two-sided book snapshot or delta for one symbol. Bids are
// ordered descending by price, asks ascending, matching exchange wire
// convention.
type Orderbook struct {
	Symbol     string
	Bids       []Level
	Asks       []Level
	IsSnapshot bool
	Timestamp  Timestamp
}

// BestBid returns the highest bid level, or ok=false when the book has zero
// depth on that side.
func (ob *Orderbook) BestBid() (Level, bool) {
	if ob == nil || len(ob.Bids) == 0 {
		return Level{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the lowest ask level, or ok=false when the book has zero
// depth on that side.
func (ob *Orderbook) BestAsk() (Level, bool) {
	if ob == nil || len(ob.Asks) == 0 {
		return Level{}, false
	}
	return ob.Asks[0], true
}

// Valid checks the book invariants: best bid below best ask, no duplicate
// prices on either side, and every size strictly positive.
func (ob *Orderbook) Valid() bool {
	if ob == nil {
		return false
	}
	if bid, ok := ob.BestBid(); ok {
		if ask, ok := ob.BestAsk(); ok {
			if bid.Price.GreaterOrEqual(ask.Price) {
				return false
			}
		}
	}
	if hasDuplicatePrice(ob.Bids) || hasDuplicatePrice(ob.Asks) {
		return false
	}
	for _, lvl := range ob.Bids {
		if !lvl.Size.IsPositive() {
			return false
		}
	}
	for _, lvl := range ob.Asks {
		if !lvl.Size.IsPositive() {
			return false
		}
	}
	return true
}

func hasDuplicatePrice(levels []Level) bool {
	seen := make(map[string]struct{}, len(levels))
	for _, lvl := range levels {
		key := lvl.Price.String()
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

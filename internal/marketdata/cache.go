// Package marketdata holds the most recent market snapshot per symbol: the
// single point strategies and the execution engine read from instead of
// hitting an exchange adapter directly.
package marketdata

import (
	"fmt"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/rs/zerolog"
	"sync"
	"time"
)

// Quote is the most recent best-bid/best-ask snapshot for a symbol.
type Quote struct {
	Symbol    string
	Orderbook domain.Orderbook
	UpdatedAt time.Time
}

// Bar is the most recent candle for a symbol at a given timeframe.
type Bar struct {
	Symbol    string
	Timeframe domain.Duration
	Candle    domain.Candle
	UpdatedAt time.Time
}

// entry is the per-symbol state, each protected by its own lock so that one
// hot symbol never blocks readers or writers of another.
type entry struct {
	mu sync.RWMutex

	quote *Quote
	bars  map[domain.Duration]*Bar

	balance   *domain.Account
	balanceAt time.Time
}

// Cache is the Market Data Cache: single writer (the Data Engine), many
// readers (strategies, the execution engine). Per-symbol locking means a
// write to BTC never contends with a read of ETH.
type Cache struct {
	log zerolog.Logger

	mu      sync.RWMutex
	symbols map[string]*entry
}

// New constructs an empty Cache.
func New(log zerolog.Logger) *Cache {
	return &Cache{
		log:     log.With().Str("component", "market_data_cache").Logger(),
		symbols: make(map[string]*entry),
	}
}

func (c *Cache) entryFor(symbol string) *entry {
	c.mu.RLock()
	e, ok := c.symbols[symbol]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.symbols[symbol]; ok {
		return e
	}
	e = &entry{bars: make(map[domain.Duration]*Bar)}
	c.symbols[symbol] = e
	return e
}

// PutQuote records the most recent orderbook snapshot for symbol.
func (c *Cache) PutQuote(symbol string, ob domain.Orderbook, at time.Time) {
	e := c.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quote = &Quote{Symbol: symbol, Orderbook: ob, UpdatedAt: at}
}

// PutBar records the most recent candle for symbol at the given timeframe.
func (c *Cache) PutBar(symbol string, timeframe domain.Duration, candle domain.Candle, at time.Time) {
	e := c.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bars[timeframe] = &Bar{Symbol: symbol, Timeframe: timeframe, Candle: candle, UpdatedAt: at}
}

// PutBalance records the latest account balance snapshot. Balances are not
// per-symbol but share the cache's staleness contract.
func (c *Cache) PutBalance(acct domain.Account, at time.Time) {
	e := c.entryFor("")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance = &acct
	e.balanceAt = at
}

// GetQuote returns the cached quote for symbol, failing with an
// xerrors.Precondition error if it is older than maxAge or was never
// recorded (staleness has no error kind of its own).
func (c *Cache) GetQuote(symbol string, maxAge time.Duration, now time.Time) (Quote, error) {
	e := c.entryFor(symbol)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.quote == nil {
		return Quote{}, xerrors.PreconditionErr(fmt.Sprintf("no quote cached for %s", symbol))
	}
	if now.Sub(e.quote.UpdatedAt) > maxAge {
		return Quote{}, xerrors.PreconditionErr(fmt.Sprintf("quote for %s is %s old, exceeds bound %s", symbol, now.Sub(e.quote.UpdatedAt), maxAge))
	}
	return *e.quote, nil
}

// GetBar returns the cached bar for symbol/timeframe, failing with an
// xerrors.Precondition error if it is older than maxAge or was never recorded.
func (c *Cache) GetBar(symbol string, timeframe domain.Duration, maxAge time.Duration, now time.Time) (Bar, error) {
	e := c.entryFor(symbol)
	e.mu.RLock()
	defer e.mu.RUnlock()
	bar, ok := e.bars[timeframe]
	if !ok {
		return Bar{}, xerrors.PreconditionErr(fmt.Sprintf("no bar cached for %s@%s", symbol, timeframe))
	}
	if now.Sub(bar.UpdatedAt) > maxAge {
		return Bar{}, xerrors.PreconditionErr(fmt.Sprintf("bar for %s@%s is %s old, exceeds bound %s", symbol, timeframe, now.Sub(bar.UpdatedAt), maxAge))
	}
	return *bar, nil
}

// GetBalance returns the cached account balance, failing with an
// xerrors.Precondition error if it is older than maxAge or was never recorded.
func (c *Cache) GetBalance(maxAge time.Duration, now time.Time) (domain.Account, error) {
	e := c.entryFor("")
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.balance == nil {
		return domain.Account{}, xerrors.PreconditionErr("no balance cached")
	}
	if now.Sub(e.balanceAt) > maxAge {
		return domain.Account{}, xerrors.PreconditionErr(fmt.Sprintf("balance is %s old, exceeds bound %s", now.Sub(e.balanceAt), maxAge))
	}
	return *e.balance, nil
}

// Symbols returns the set of symbols with at least one cached quote or bar.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s, e := range c.symbols {
		if s == "" {
			continue
		}
		e.mu.RLock()
		cached := e.quote != nil || len(e.bars) > 0
		e.mu.RUnlock()
		if cached {
			out = append(out, s)
		}
	}
	return out
}

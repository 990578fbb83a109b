package indicator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// cacheKey is (name, params, candles-fingerprint): a cache entry is valid
// exactly as long as all three match.
type cacheKey string

// Fingerprint identifies an input candle sequence without hashing every
// value: sequence identity (a caller-assigned pointer-derived or monotonic
// id), length, and the timestamp of the last bar are sufficient because
// Candles is append-only and the host invalidates on any other mutation.
type Fingerprint struct {
	SeriesID  string
	Length    int
	LastStamp int64
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%s:%d:%d", f.SeriesID, f.Length, f.LastStamp)
}

func paramsKey(params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%v;", k, params[k])
	}
	return out
}

// Cache memoises Indicator.Compute results keyed by (name, params,
// candles-fingerprint). Concurrent requests for the same missing key are
// serialised via singleflight so the computation runs at most once; the
// result is then shared with every waiter. Capacity is bounded with LRU
// eviction.
type Cache struct {
	indicatorsMu sync.RWMutex
	indicators   map[string]Indicator

	lru   *lru.Cache[cacheKey, Series]
	group singleflight.Group

	mu         sync.Mutex
	insertedAt map[cacheKey]time.Time
}

// NewCache constructs a Cache registered with the kernel's built-in
// indicators, bounded to capacity entries.
func NewCache(capacity int) (*Cache, error) {
	l, err := lru.New[cacheKey, Series](capacity)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		indicators: defaultIndicators(),
		lru:        l,
		insertedAt: make(map[cacheKey]time.Time),
	}
	return c, nil
}

func defaultIndicators() map[string]Indicator {
	all := []Indicator{
		SMA{}, EMA{}, RSI{}, MACD{}, Bollinger{}, ATR{}, WilliamsR{},
		CCI{}, ROC{}, ADX{}, OBV{}, VWAP{}, ParabolicSAR{}, Ichimoku{}, VolumeProfile{},
	}
	m := make(map[string]Indicator, len(all))
	for _, ind := range all {
		m[ind.Name()] = ind
	}
	return m
}

// Register adds or replaces an indicator implementation, for callers
// extending the kernel with indicators beyond the built-in set.
func (c *Cache) Register(ind Indicator) {
	c.indicatorsMu.Lock()
	c.indicators[ind.Name()] = ind
	c.indicatorsMu.Unlock()
}

// Get returns the cached or freshly computed Series for (name, params,
// fingerprint). A cache miss computes once across all concurrent callers
// for the same key.
func (c *Cache) Get(name string, params Params, fp Fingerprint, bars Bars) (Series, error) {
	c.indicatorsMu.RLock()
	ind, ok := c.indicators[name]
	c.indicatorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown indicator: %s", name)
	}

	key := cacheKey(name + "|" + paramsKey(params) + "|" + fp.String())
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(string(key), func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		series, err := ind.Compute(bars, params)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, series)
		c.mu.Lock()
		c.insertedAt[key] = time.Now()
		c.mu.Unlock()
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Series), nil
}

// Invalidate drops every cached entry (used when a candle sequence is
// mutated in a way that is not append-only, e.g. a resync after a gap).
func (c *Cache) Invalidate() {
	c.lru.Purge()
	c.mu.Lock()
	c.insertedAt = make(map[cacheKey]time.Time)
	c.mu.Unlock()
}

// PruneStale evicts every entry older than maxAge and returns the number of
// entries removed, for the Engine Manager's periodic maintenance sweep.
func (c *Cache) PruneStale(maxAge time.Duration) int {
	c.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	var stale []cacheKey
	for key, at := range c.insertedAt {
		if at.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(c.insertedAt, key)
	}
	c.mu.Unlock()

	removed := 0
	for _, key := range stale {
		if c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

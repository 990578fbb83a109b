package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetMemoisesByFingerprint(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	bars := Bars{Close: decimals("10", "12", "14", "16", "18")}
	fp := Fingerprint{SeriesID: "btc-1m", Length: 5, LastStamp: 5}

	first, err := c.Get("sma", Params{"period": 3}, fp, bars)
	require.NoError(t, err)

	second, err := c.Get("sma", Params{"period": 3}, fp, bars)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	otherFP := Fingerprint{SeriesID: "btc-1m", Length: 6, LastStamp: 6}
	bars2 := Bars{Close: decimals("10", "12", "14", "16", "18", "20")}
	third, err := c.Get("sma", Params{"period": 3}, otherFP, bars2)
	require.NoError(t, err)
	require.Len(t, first, 5)
	require.Len(t, third, 6)
}

func TestCachePruneStaleEvictsOnlyOldEntries(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	bars := Bars{Close: decimals("10", "12", "14", "16", "18")}
	fpOld := Fingerprint{SeriesID: "old", Length: 5, LastStamp: 5}
	_, err = c.Get("sma", Params{"period": 3}, fpOld, bars)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	removed := c.PruneStale(time.Millisecond)
	assert.Equal(t, 1, removed)

	fpFresh := Fingerprint{SeriesID: "fresh", Length: 5, LastStamp: 5}
	_, err = c.Get("sma", Params{"period": 3}, fpFresh, bars)
	require.NoError(t, err)

	removed = c.PruneStale(time.Hour)
	assert.Equal(t, 0, removed)
}

func TestCacheInvalidateClearsInsertionTimes(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	bars := Bars{Close: decimals("10", "12", "14", "16", "18")}
	fp := Fingerprint{SeriesID: "btc-1m", Length: 5, LastStamp: 5}
	_, err = c.Get("sma", Params{"period": 3}, fp, bars)
	require.NoError(t, err)

	c.Invalidate()
	assert.Equal(t, 0, c.PruneStale(0))
}

package marketdata

import (
	"testing"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	return New(zerolog.Nop())
}

func TestGetQuoteMissingIsStale(t *testing.T) {
	c := newTestCache()
	_, err := c.GetQuote("BTC", time.Second, time.Now())
	require.Error(t, err)
	assert.True(t, xerrors.OfKind(err, xerrors.Precondition))
}

func TestGetQuoteWithinBoundSucceeds(t *testing.T) {
	c := newTestCache()
	now := time.Now()
	ob := domain.Orderbook{
		Symbol: "BTC",
		Bids:   []domain.Level{{Price: decimal.MustFromString("100"), Size: decimal.MustFromString("1")}},
		Asks:   []domain.Level{{Price: decimal.MustFromString("101"), Size: decimal.MustFromString("1")}},
	}
	c.PutQuote("BTC", ob, now)

	q, err := c.GetQuote("BTC", time.Minute, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "BTC", q.Symbol)
}

func TestGetQuoteBeyondBoundIsStale(t *testing.T) {
	c := newTestCache()
	now := time.Now()
	c.PutQuote("BTC", domain.Orderbook{Symbol: "BTC"}, now)

	_, err := c.GetQuote("BTC", time.Second, now.Add(5*time.Second))
	require.Error(t, err)
	assert.True(t, xerrors.OfKind(err, xerrors.Precondition))
}

func TestPerSymbolIsolation(t *testing.T) {
	c := newTestCache()
	now := time.Now()
	c.PutQuote("BTC", domain.Orderbook{Symbol: "BTC"}, now)

	_, err := c.GetQuote("ETH", time.Minute, now)
	require.Error(t, err)

	_, err = c.GetQuote("BTC", time.Minute, now)
	require.NoError(t, err)
}

func TestGetBarRoundTrip(t *testing.T) {
	c := newTestCache()
	now := time.Now()
	candle := domain.Candle{
		Timestamp: domain.Timestamp(now.UnixMilli()),
		Open:      decimal.MustFromString("1"),
		High:      decimal.MustFromString("2"),
		Low:       decimal.MustFromString("1"),
		Close:     decimal.MustFromString("1.5"),
		Volume:    decimal.MustFromString("10"),
	}
	c.PutBar("BTC", domain.Minute, candle, now)

	bar, err := c.GetBar("BTC", domain.Minute, time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, "1.5", bar.Candle.Close.String())

	_, err = c.GetBar("BTC", domain.Hour, time.Minute, now)
	require.Error(t, err)
}

func TestGetBalanceRoundTrip(t *testing.T) {
	c := newTestCache()
	now := time.Now()
	c.PutBalance(domain.Account{WithdrawableBalance: decimal.MustFromString("500")}, now)

	acct, err := c.GetBalance(time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, "500", acct.WithdrawableBalance.String())
}

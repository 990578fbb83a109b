package indicator

import (
	"testing"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.MustFromString(v)
	}
	return out
}

// TestSMACorrectness is scenario S1 from the specification.
func TestSMACorrectness(t *testing.T) {
	closes := decimals("10", "12", "14", "16", "18")
	bars := Bars{Close: closes}

	out, err := SMA{}.Compute(bars, Params{"period": 3})
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	require.NotNil(t, out[2])
	assert.Equal(t, "12", out[2].String())
	require.NotNil(t, out[3])
	assert.Equal(t, "14", out[3].String())
	require.NotNil(t, out[4])
	assert.Equal(t, "16", out[4].String())
}

func TestEMASeedsWithSMAThenRecurs(t *testing.T) {
	closes := decimals("10", "12", "14", "16", "18", "20")
	bars := Bars{Close: closes}
	out, err := EMA{}.Compute(bars, Params{"period": 3})
	require.NoError(t, err)

	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	require.NotNil(t, out[2])
	assert.Equal(t, "12", out[2].String())
	require.NotNil(t, out[3])
}

func TestRSIWilderSmoothing(t *testing.T) {
	closes := decimals("44", "44.25", "44.5", "43.75", "44.65", "45.12", "45.0", "44.5", "45.4", "46", "46.25", "47", "47.5", "47.2", "47.9")
	bars := Bars{Close: closes}
	out, err := RSI{}.Compute(bars, Params{"period": 14})
	require.NoError(t, err)
	require.NotNil(t, out[14])
	val := out[14].Float64()
	assert.True(t, val > 0 && val <= 100)
}

func TestMACDHistogramIsDifference(t *testing.T) {
	closes := make([]decimal.Decimal, 60)
	for i := range closes {
		closes[i] = decimal.FromInt(int64(100 + i))
	}
	bars := Bars{Close: closes}
	res, err := MACD{}.ComputeFull(bars, Params{"fast": 12, "slow": 26, "signal": 9})
	require.NoError(t, err)

	for i := range res.Histogram {
		if res.Histogram[i] == nil {
			continue
		}
		require.NotNil(t, res.MACD[i])
		require.NotNil(t, res.Signal[i])
		expected := res.MACD[i].Sub(*res.Signal[i])
		assert.Equal(t, expected.String(), res.Histogram[i].String())
	}
}

func TestBollingerMiddleEqualsSMA(t *testing.T) {
	closes := decimals("10", "12", "14", "16", "18", "20", "22")
	bars := Bars{Close: closes}
	res, err := Bollinger{}.ComputeFull(bars, Params{"period": 3, "mult": decimal.FromInt(2)})
	require.NoError(t, err)

	smaOut, err := SMA{}.Compute(bars, Params{"period": 3})
	require.NoError(t, err)

	for i := range res.Middle {
		if res.Middle[i] == nil {
			continue
		}
		require.NotNil(t, smaOut[i])
		assert.Equal(t, smaOut[i].String(), res.Middle[i].String())
		assert.True(t, res.Upper[i].GreaterOrEqual(*res.Middle[i]))
		assert.True(t, res.Lower[i].LessOrEqual(*res.Middle[i]))
	}
}

func TestOBVAccumulatesSignedVolume(t *testing.T) {
	bars := Bars{
		Close:  decimals("10", "11", "10", "10", "12"),
		Volume: decimals("100", "50", "30", "0", "20"),
	}
	out, err := OBV{}.Compute(bars, nil)
	require.NoError(t, err)

	assert.Equal(t, "100", out[0].String())
	assert.Equal(t, "150", out[1].String())
	assert.Equal(t, "120", out[2].String())
	assert.Equal(t, "120", out[3].String())
	assert.Equal(t, "140", out[4].String())
}

func TestCacheIsReferentiallyTransparent(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	bars := Bars{Close: decimals("10", "12", "14", "16", "18")}
	fp := Fingerprint{SeriesID: "test", Length: 5, LastStamp: 5}

	out1, err := c.Get("sma", Params{"period": 3}, fp, bars)
	require.NoError(t, err)
	out2, err := c.Get("sma", Params{"period": 3}, fp, bars)
	require.NoError(t, err)

	require.Equal(t, len(out1), len(out2))
	for i := range out1 {
		if out1[i] == nil {
			assert.Nil(t, out2[i])
			continue
		}
		assert.Equal(t, out1[i].String(), out2[i].String())
	}
}

func TestCacheMissesAreConcurrencySafe(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)

	bars := Bars{Close: decimals("10", "12", "14", "16", "18")}
	fp := Fingerprint{SeriesID: "concurrent", Length: 5, LastStamp: 5}

	const workers = 20
	results := make(chan Series, workers)
	for i := 0; i < workers; i++ {
		go func() {
			out, err := c.Get("sma", Params{"period": 3}, fp, bars)
			require.NoError(t, err)
			results <- out
		}()
	}

	var first Series
	for i := 0; i < workers; i++ {
		out := <-results
		if first == nil {
			first = out
			continue
		}
		assert.Equal(t, len(first), len(out))
	}
}

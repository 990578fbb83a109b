package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "12.5", "-0.5", "2000", "0.000000000000000001"}
	for _, c := range cases {
		d, err := FromString(c)
		require.NoError(t, err)
		assert.Equal(t, c, d.String())
	}
}

func TestAddSub(t *testing.T) {
	a := MustFromString("10.5")
	b := MustFromString("2.25")
	assert.Equal(t, "12.75", a.Add(b).String())
	assert.Equal(t, "8.25", a.Sub(b).String())
}

func TestMulWideIntermediate(t *testing.T) {
	a := MustFromString("2")
	b := MustFromString("2100")
	assert.Equal(t, "4200", a.Mul(b).String())

	c := MustFromString("1000000000000") // 1e12
	d := MustFromString("1000000000000") // 1e12, product is 1e24 > int64 range
	assert.Equal(t, "1000000000000000000000000", c.Mul(d).String())
}

func TestDivByZero(t *testing.T) {
	a := MustFromString("10")
	_, err := a.Div(Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DivisionByZero")
}

func TestDivExact(t *testing.T) {
	a := MustFromString("10")
	b := MustFromString("4")
	q, err := a.Div(b)
	require.NoError(t, err)
	assert.Equal(t, "2.5", q.String())
}

func TestSignPredicates(t *testing.T) {
	assert.True(t, MustFromString("-1").IsNegative())
	assert.True(t, MustFromString("1").IsPositive())
	assert.True(t, Zero.IsZero())
}

func TestAbsNeg(t *testing.T) {
	a := MustFromString("-5.5")
	assert.Equal(t, "5.5", a.Abs().String())
	assert.Equal(t, "5.5", a.Neg().String())
}

func TestCmp(t *testing.T) {
	a := MustFromString("1.0")
	b := MustFromString("2.0")
	assert.True(t, a.LessThan(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.Equal(MustFromString("1.0")))
}

// Package decimal implements a fixed-point 128-bit scaled decimal for prices,
// sizes, and P&L. All arithmetic is exact at the repository-wide scale of 18
// decimal digits; rounding always truncates toward zero, and callers who need
// banker's rounding wrap the result explicitly.
package decimal

import (
	"math/big"
	"strings"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/xerrors"
)

// Scale is the number of decimal digits every Decimal value carries, fixed
// repository-wide so values from different call sites are always comparable
// without a rescale step.
const Scale = 18

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(Scale), nil)

// Decimal is an immutable fixed-point number: value / 10^Scale. The zero value
// is a valid Decimal equal to 0.
type Decimal struct {
	value *big.Int
}

// Zero is the additive identity.
var Zero = Decimal{value: big.NewInt(0)}

func fromBigInt(v *big.Int) Decimal {
	return Decimal{value: v}
}

// FromInt builds a Decimal representing the exact integer n.
func FromInt(n int64) Decimal {
	return fromBigInt(new(big.Int).Mul(big.NewInt(n), scaleFactor))
}

// FromFloat builds a Decimal from a float64. This conversion is lossy: float64
// cannot represent most decimal fractions exactly, so prefer FromString for
// literal values.
func FromFloat(f float64) Decimal {
	bf := new(big.Float).SetPrec(200).SetFloat64(f)
	bf.Mul(bf, new(big.Float).SetPrec(200).SetInt(scaleFactor))
	i, _ := bf.Int(nil)
	return fromBigInt(i)
}

// FromString parses a decimal literal such as "123.456" or "-0.5" into an
// exact Decimal. Returns an InvalidArgument error for malformed input.
func FromString(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, xerrors.InvalidArgumentErr("empty decimal literal")
	}

	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Scale {
		fracPart = fracPart[:Scale] // truncate, not round, toward zero
	}
	for len(fracPart) < Scale {
		fracPart += "0"
	}

	digits := intPart + fracPart
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Zero, xerrors.InvalidArgumentErr("malformed decimal literal: " + s)
	}
	if neg {
		v.Neg(v)
	}
	return fromBigInt(v), nil
}

// MustFromString is FromString but panics on error; only for literals fixed
// at compile time (tests, constants).
func MustFromString(s string) Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders the Decimal with no trailing zeros beyond what is
// significant (e.g. "12.5" not "12.500000000000000000").
func (d Decimal) String() string {
	v := d.value
	if v == nil {
		v = big.NewInt(0)
	}
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)

	digits := abs.String()
	for len(digits) <= Scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-Scale]
	fracPart := digits[len(digits)-Scale:]
	fracPart = strings.TrimRight(fracPart, "0")

	var sb strings.Builder
	if neg && (intPart != "0" || fracPart != "") {
		sb.WriteByte('-')
	}
	sb.WriteString(intPart)
	if fracPart != "" {
		sb.WriteByte('.')
		sb.WriteString(fracPart)
	}
	return sb.String()
}

func (d Decimal) bigInt() *big.Int {
	if d.value == nil {
		return big.NewInt(0)
	}
	return d.value
}

// Add returns d + other, exact.
func (d Decimal) Add(other Decimal) Decimal {
	return fromBigInt(new(big.Int).Add(d.bigInt(), other.bigInt()))
}

// Sub returns d - other, exact.
func (d Decimal) Sub(other Decimal) Decimal {
	return fromBigInt(new(big.Int).Sub(d.bigInt(), other.bigInt()))
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	return fromBigInt(new(big.Int).Neg(d.bigInt()))
}

// Abs returns |d|.
func (d Decimal) Abs() Decimal {
	return fromBigInt(new(big.Int).Abs(d.bigInt()))
}

// Mul returns d * other using a wide intermediate so the product never
// overflows before it is rescaled back down by 10^Scale.
func (d Decimal) Mul(other Decimal) Decimal {
	wide := new(big.Int).Mul(d.bigInt(), other.bigInt())
	wide.Quo(wide, scaleFactor) // truncation toward zero, big.Int.Quo matches that
	return fromBigInt(wide)
}

// Div returns d / other. Division scales the numerator by 10^Scale before
// integer division so the quotient retains full precision. Returns an
// InvalidArgument error with reason "DivisionByZero" rather than panicking
// when other is zero.
func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.IsZero() {
		return Zero, xerrors.New(xerrors.InvalidArgument, "DivisionByZero")
	}
	scaledNumerator := new(big.Int).Mul(d.bigInt(), scaleFactor)
	q := new(big.Int).Quo(scaledNumerator, other.bigInt())
	return fromBigInt(q), nil
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than other.
func (d Decimal) Cmp(other Decimal) int {
	return d.bigInt().Cmp(other.bigInt())
}

func (d Decimal) Equal(other Decimal) bool      { return d.Cmp(other) == 0 }
func (d Decimal) LessThan(other Decimal) bool    { return d.Cmp(other) < 0 }
func (d Decimal) GreaterThan(other Decimal) bool { return d.Cmp(other) > 0 }
func (d Decimal) LessOrEqual(other Decimal) bool { return d.Cmp(other) <= 0 }
func (d Decimal) GreaterOrEqual(other Decimal) bool {
	return d.Cmp(other) >= 0
}

// IsZero, IsPositive, IsNegative are sign predicates.
func (d Decimal) IsZero() bool     { return d.bigInt().Sign() == 0 }
func (d Decimal) IsPositive() bool { return d.bigInt().Sign() > 0 }
func (d Decimal) IsNegative() bool { return d.bigInt().Sign() < 0 }

// Sign returns -1, 0, or 1.
func (d Decimal) Sign() int { return d.bigInt().Sign() }

// Float64 converts to float64, lossy, for interop with float-only libraries
// (e.g. gonum statistics over a return series). Never use for values that
// feed back into exact comparisons or persisted state.
func (d Decimal) Float64() float64 {
	bf := new(big.Float).SetPrec(200).SetInt(d.bigInt())
	f, _ := bf.Quo(bf, new(big.Float).SetPrec(200).SetInt(scaleFactor)).Float64()
	return f
}

// MarshalJSON renders the Decimal as its canonical string form so exported
// JSON blobs are exact and diffable.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

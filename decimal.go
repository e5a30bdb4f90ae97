package monetdbe

import (
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// Decimal is an arbitrary-precision decimal number with value
// unscaled × 10^-scale. The zero value is 0.
type Decimal struct {
	unscaled *big.Int
	scale    int32
}

var bigTen = big.NewInt(10)

// NewDecimal returns unscaled × 10^-scale. A negative scale is folded into
// the unscaled value.
func NewDecimal(unscaled *big.Int, scale int32) Decimal {
	u := new(big.Int)
	if unscaled != nil {
		u.Set(unscaled)
	}
	if scale < 0 {
		u.Mul(u, pow10(-scale))
		scale = 0
	}
	return Decimal{unscaled: u, scale: scale}
}

// NewDecimalFromInt64 returns v × 10^-scale.
func NewDecimalFromInt64(v int64, scale int32) Decimal {
	return NewDecimal(big.NewInt(v), scale)
}

// DecimalFromFloat64 returns the exact decimal expansion of f.
func DecimalFromFloat64(f float64) (Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Decimal{}, errors.Errorf("cannot represent %v as a decimal", f)
	}
	r := new(big.Rat).SetFloat64(f)
	// The denominator of a finite float is a power of two, 2^k; multiplying
	// numerator and denominator by 5^k gives an exact power of ten.
	den := r.Denom()
	k := int32(den.BitLen() - 1)
	num := new(big.Int).Mul(r.Num(), new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(k)), nil))
	return Decimal{unscaled: num, scale: k}, nil
}

// ParseDecimal parses a plain or exponent-form decimal string such as
// "-12.50" or "1.5E+3".
func ParseDecimal(s string) (Decimal, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return Decimal{}, errors.Errorf("invalid decimal string: %q", s)
	}
	exp := int64(0)
	if i := strings.IndexAny(str, "eE"); i >= 0 {
		e, ok := new(big.Int).SetString(strings.TrimPrefix(str[i+1:], "+"), 10)
		if !ok || !e.IsInt64() || e.Int64() > math.MaxInt32 || e.Int64() < math.MinInt32 {
			return Decimal{}, errors.Errorf("invalid decimal string: %q", s)
		}
		exp = e.Int64()
		str = str[:i]
	}
	digits := str
	scale := int64(0)
	if i := strings.IndexByte(str, '.'); i >= 0 {
		scale = int64(len(str) - i - 1)
		digits = str[:i] + str[i+1:]
	}
	if digits == "" || digits == "-" || digits == "+" || strings.ContainsAny(digits[1:], "+-") {
		return Decimal{}, errors.Errorf("invalid decimal string: %q", s)
	}
	u, ok := new(big.Int).SetString(strings.TrimPrefix(digits, "+"), 10)
	if !ok {
		return Decimal{}, errors.Errorf("invalid decimal string: %q", s)
	}
	scale -= exp
	if scale > math.MaxInt32 || scale < math.MinInt32 {
		return Decimal{}, errors.Errorf("decimal exponent out of range: %q", s)
	}
	return NewDecimal(u, int32(scale)), nil
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func (d Decimal) int() *big.Int {
	if d.unscaled == nil {
		return new(big.Int)
	}
	return d.unscaled
}

// Unscaled returns a copy of the unscaled integer value.
func (d Decimal) Unscaled() *big.Int {
	return new(big.Int).Set(d.int())
}

// Scale returns the number of digits after the decimal point.
func (d Decimal) Scale() int32 {
	return d.scale
}

// Sign returns -1, 0 or +1.
func (d Decimal) Sign() int {
	return d.int().Sign()
}

// String renders d in plain notation, e.g. "-0.050".
func (d Decimal) String() string {
	u := d.int()
	s := new(big.Int).Abs(u).String()
	if d.scale > 0 {
		if pad := int(d.scale) - len(s) + 1; pad > 0 {
			s = strings.Repeat("0", pad) + s
		}
		cut := len(s) - int(d.scale)
		s = s[:cut] + "." + s[cut:]
	}
	if u.Sign() < 0 {
		s = "-" + s
	}
	return s
}

// Rat returns d as an exact rational.
func (d Decimal) Rat() *big.Rat {
	return new(big.Rat).SetFrac(d.int(), pow10(d.scale))
}

// Float64 returns the nearest float64 to d.
func (d Decimal) Float64() float64 {
	f, _ := d.Rat().Float64()
	return f
}

// Int returns the integer part of d, truncated toward zero.
func (d Decimal) Int() *big.Int {
	if d.scale == 0 {
		return d.Unscaled()
	}
	return new(big.Int).Quo(d.int(), pow10(d.scale))
}

// SetScale returns d rescaled to scale digits, rounding half away from
// zero when digits are dropped.
func (d Decimal) SetScale(scale int32) Decimal {
	switch {
	case scale == d.scale:
		return NewDecimal(d.int(), d.scale)
	case scale > d.scale:
		u := new(big.Int).Mul(d.int(), pow10(scale-d.scale))
		return Decimal{unscaled: u, scale: scale}
	}
	div := pow10(d.scale - scale)
	q, r := new(big.Int).QuoRem(d.int(), div, new(big.Int))
	r.Abs(r).Lsh(r, 1)
	if r.Cmp(div) >= 0 {
		q.Add(q, big.NewInt(int64(d.Sign())))
	}
	return NewDecimal(q, scale)
}

// Cmp compares d and o numerically.
func (d Decimal) Cmp(o Decimal) int {
	return d.Rat().Cmp(o.Rat())
}

// EncodedDecimal is a decimal laid out for the native bind call: its
// unscaled value stored in the narrowest integer width that holds it.
type EncodedDecimal struct {
	// Width is one of TypeInt8, TypeInt16, TypeInt32, TypeInt64 or TypeInt128.
	Width ColumnType
	// Value holds the unscaled value when Width is TypeInt64 or narrower.
	Value int64
	// Huge holds the unscaled value when Width is TypeInt128.
	Huge  *big.Int
	Scale int32
}

// EncodeDecimal selects the smallest native width whose two's complement
// range covers the unscaled value of d.
func EncodeDecimal(d Decimal) EncodedDecimal {
	u := d.int()
	e := EncodedDecimal{Scale: d.scale}
	switch n := signedBitLen(u); {
	case n <= 8:
		e.Width = TypeInt8
	case n <= 16:
		e.Width = TypeInt16
	case n <= 32:
		e.Width = TypeInt32
	case n <= 64:
		e.Width = TypeInt64
	default:
		e.Width = TypeInt128
		e.Huge = new(big.Int).Set(u)
		return e
	}
	e.Value = u.Int64()
	return e
}

// Decimal reverses EncodeDecimal.
func (e EncodedDecimal) Decimal() Decimal {
	if e.Width == TypeInt128 {
		return NewDecimal(e.Huge, e.Scale)
	}
	return NewDecimalFromInt64(e.Value, e.Scale)
}

// signedBitLen returns the number of bits, sign bit included, of the
// shortest two's complement representation of x.
func signedBitLen(x *big.Int) int {
	if x.Sign() >= 0 {
		return x.BitLen() + 1
	}
	// -2^(n-1) fits in n bits: measure |x|-1.
	m := new(big.Int).Neg(x)
	m.Sub(m, big.NewInt(1))
	return m.BitLen() + 1
}

package gotensor

import (
	"fmt"
	"math"
	"math/big"
	"math/cmplx"
	"strconv"
)

// ============================================================
// Complex — numeric leaf
// ============================================================

// Complex is an exact complex rational, or (in numeric mode) a pair of
// float64. NaN and ComplexInfinity only exist in numeric mode.
type Complex struct {
	re, im   *big.Rat
	fre, fim float64
	numeric  bool
}

func N(n int64) *Complex { return &Complex{re: new(big.Rat).SetInt64(n), im: new(big.Rat)} }

// F returns p/q. F(p, 0) is ComplexInfinity and F(0, 0) is NaN.
func F(p, q int64) *Complex {
	if q == 0 {
		if p == 0 {
			return NaN()
		}
		return ComplexInfinity()
	}
	return &Complex{re: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q)), im: new(big.Rat)}
}

func NewComplex(re, im *big.Rat) *Complex {
	c := &Complex{re: new(big.Rat), im: new(big.Rat)}
	if re != nil {
		c.re.Set(re)
	}
	if im != nil {
		c.im.Set(im)
	}
	return c
}

// ImaginaryUnit returns I.
func ImaginaryUnit() *Complex { return &Complex{re: new(big.Rat), im: new(big.Rat).SetInt64(1)} }

// Float returns a numeric (inexact) complex number.
func Float(re, im float64) *Complex { return &Complex{fre: re, fim: im, numeric: true} }

func NaN() *Complex             { return Float(math.NaN(), math.NaN()) }
func ComplexInfinity() *Complex { return Float(math.Inf(1), 0) }

func (c *Complex) IsNumeric() bool { return c.numeric }
func (c *Complex) IsNaN() bool     { return c.numeric && (math.IsNaN(c.fre) || math.IsNaN(c.fim)) }
func (c *Complex) IsInfinite() bool {
	return c.numeric && !c.IsNaN() && (math.IsInf(c.fre, 0) || math.IsInf(c.fim, 0))
}

func (c *Complex) IsZero() bool {
	if c.numeric {
		return c.fre == 0 && c.fim == 0
	}
	return c.re.Sign() == 0 && c.im.Sign() == 0
}

func (c *Complex) IsOne() bool {
	if c.numeric {
		return c.fre == 1 && c.fim == 0
	}
	return c.im.Sign() == 0 && c.re.Cmp(ratOne) == 0
}

func (c *Complex) IsMinusOne() bool {
	if c.numeric {
		return c.fre == -1 && c.fim == 0
	}
	return c.im.Sign() == 0 && c.re.Cmp(ratMinusOne) == 0
}

func (c *Complex) IsReal() bool {
	if c.numeric {
		return c.fim == 0
	}
	return c.im.Sign() == 0
}

// IsInteger reports an exact real integer.
func (c *Complex) IsInteger() bool { return !c.numeric && c.im.Sign() == 0 && c.re.IsInt() }

var (
	ratOne      = big.NewRat(1, 1)
	ratMinusOne = big.NewRat(-1, 1)
)

// Real and Imag return copies of the exact parts; nil in numeric mode.
func (c *Complex) Real() *big.Rat {
	if c.numeric {
		return nil
	}
	return new(big.Rat).Set(c.re)
}

func (c *Complex) Imag() *big.Rat {
	if c.numeric {
		return nil
	}
	return new(big.Rat).Set(c.im)
}

func (c *Complex) floats() (float64, float64) {
	if c.numeric {
		return c.fre, c.fim
	}
	r, _ := c.re.Float64()
	i, _ := c.im.Float64()
	return r, i
}

func (c *Complex) Complex128() complex128 {
	r, i := c.floats()
	return complex(r, i)
}

func (c *Complex) Add(o *Complex) *Complex {
	if c.numeric || o.numeric {
		r1, i1 := c.floats()
		r2, i2 := o.floats()
		return Float(r1+r2, i1+i2)
	}
	return &Complex{re: new(big.Rat).Add(c.re, o.re), im: new(big.Rat).Add(c.im, o.im)}
}

func (c *Complex) Multiply(o *Complex) *Complex {
	if c.numeric || o.numeric {
		r1, i1 := c.floats()
		r2, i2 := o.floats()
		if i1 == 0 && i2 == 0 {
			return Float(r1*r2, 0)
		}
		return Float(r1*r2-i1*i2, r1*i2+i1*r2)
	}
	ac := new(big.Rat).Mul(c.re, o.re)
	bd := new(big.Rat).Mul(c.im, o.im)
	ad := new(big.Rat).Mul(c.re, o.im)
	bc := new(big.Rat).Mul(c.im, o.re)
	return &Complex{re: ac.Sub(ac, bd), im: ad.Add(ad, bc)}
}

func (c *Complex) Negate() *Complex {
	if c.numeric {
		return Float(-c.fre, -c.fim)
	}
	return &Complex{re: new(big.Rat).Neg(c.re), im: new(big.Rat).Neg(c.im)}
}

// Reciprocal returns 1/c; the reciprocal of zero is ComplexInfinity.
func (c *Complex) Reciprocal() *Complex {
	if c.IsZero() {
		return ComplexInfinity()
	}
	if c.numeric {
		if c.IsInfinite() {
			return Float(0, 0)
		}
		z := 1 / c.Complex128()
		return Float(real(z), imag(z))
	}
	// 1/(a+bi) = (a-bi)/(a²+b²)
	den := new(big.Rat).Mul(c.re, c.re)
	den.Add(den, new(big.Rat).Mul(c.im, c.im))
	re := new(big.Rat).Quo(c.re, den)
	im := new(big.Rat).Quo(c.im, den)
	return &Complex{re: re, im: im.Neg(im)}
}

const maxExactPower = 64

// PowInt raises c to an integer power. Exact results are only produced for
// |e| <= 64; ok is false otherwise.
func (c *Complex) PowInt(e int64) (*Complex, bool) {
	if c.numeric {
		return c.PowComplex(N(e)), true
	}
	if e > maxExactPower || e < -maxExactPower {
		return nil, false
	}
	if e == 0 {
		if c.IsZero() {
			return NaN(), true
		}
		return N(1), true
	}
	if e < 0 && c.IsZero() {
		return ComplexInfinity(), true
	}
	result := N(1)
	base := c
	k := e
	if k < 0 {
		k = -k
	}
	for ; k > 0; k >>= 1 {
		if k&1 == 1 {
			result = result.Multiply(base)
		}
		base = base.Multiply(base)
	}
	if e < 0 {
		result = result.Reciprocal()
	}
	return result, true
}

// PowComplex evaluates c**e numerically.
func (c *Complex) PowComplex(e *Complex) *Complex {
	if c.IsZero() && e.IsZero() {
		return NaN()
	}
	z := cmplx.Pow(c.Complex128(), e.Complex128())
	return Float(real(z), imag(z))
}

// ToNumeric returns the floating-point counterpart.
func (c *Complex) ToNumeric() *Complex {
	if c.numeric {
		return c
	}
	r, i := c.floats()
	return Float(r, i)
}

func (c *Complex) Equals(other Tensor) bool {
	o, ok := other.(*Complex)
	if !ok || c.numeric != o.numeric {
		return false
	}
	if c.numeric {
		if c.IsNaN() || o.IsNaN() {
			return c.IsNaN() && o.IsNaN()
		}
		return c.fre == o.fre && c.fim == o.fim
	}
	return c.re.Cmp(o.re) == 0 && c.im.Cmp(o.im) == 0
}

// signNormalized returns c or -c, whichever has a positive leading part.
func (c *Complex) signNormalized() *Complex {
	if c.numeric {
		if c.fre < 0 || (c.fre == 0 && c.fim < 0) {
			return c.Negate()
		}
		return c
	}
	if c.re.Sign() < 0 || (c.re.Sign() == 0 && c.im.Sign() < 0) {
		return c.Negate()
	}
	return c
}

// isNegative reports a leading minus sign in the printed form.
func (c *Complex) isNegative() bool {
	if c.numeric {
		return c.fre < 0 || (c.fre == 0 && c.fim < 0)
	}
	return c.re.Sign() < 0 || (c.re.Sign() == 0 && c.im.Sign() < 0)
}

func (c *Complex) String() string {
	if c.numeric {
		switch {
		case c.IsNaN():
			return "NaN"
		case c.IsInfinite():
			return "ComplexInfinity"
		}
		return formatParts(strconv.FormatFloat(c.fre, 'g', -1, 64), c.fre == 0,
			strconv.FormatFloat(c.fim, 'g', -1, 64), c.fim == 0, c.fim < 0)
	}
	return formatParts(ratString(c.re), c.re.Sign() == 0, ratString(c.im), c.im.Sign() == 0, c.im.Sign() < 0)
}

func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

func formatParts(re string, reZero bool, im string, imZero, imNeg bool) string {
	if imZero {
		return re
	}
	var imPart string
	switch im {
	case "1":
		imPart = "I"
	case "-1":
		imPart = "-I"
	default:
		imPart = im + "*I"
	}
	if reZero {
		return imPart
	}
	if imNeg {
		return re + imPart
	}
	return re + "+" + imPart
}

func (c *Complex) FreeIndices() Indices { return nil }
func (c *Complex) Size() int            { return 0 }
func (c *Complex) Get(i int) Tensor     { panic(fmt.Sprintf("gotensor: Complex has no child %d", i)) }
func (c *Complex) kind() Kind           { return KindComplex }

func (c *Complex) toJSON() map[string]interface{} {
	if c.numeric {
		switch {
		case c.IsNaN():
			return map[string]interface{}{"type": "float", "value": "NaN"}
		case c.IsInfinite():
			return map[string]interface{}{"type": "float", "value": "ComplexInfinity"}
		}
		return map[string]interface{}{"type": "float", "re": c.fre, "im": c.fim}
	}
	m := map[string]interface{}{"type": "num", "value": ratString(c.re)}
	if c.im.Sign() != 0 {
		m["imag"] = ratString(c.im)
	}
	return m
}

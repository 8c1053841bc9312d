package common

import (
	"fmt"
	"math/big"
	"strings"
)

var (
	// Ray is the fixed-point scale (1e27) used for ratios persisted in state.
	Ray     = MustBigInt("1000000000000000000000000000")
	halfRay = new(big.Int).Rsh(Ray, 1)
)

func MustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// RayMul multiplies two ray-scaled values, rounding half up.
func RayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	product.Quo(product, Ray)
	return product
}

// RatToRay converts an exact rational into ray precision, rounding half up.
func RatToRay(r *big.Rat) *big.Int {
	if r == nil {
		return big.NewInt(0)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(Ray))
	return RoundHalfUp(scaled)
}

// RayToRat returns the exact rational value of a ray-scaled integer.
func RayToRat(x *big.Int) *big.Rat {
	if x == nil {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(x, Ray)
}

// RoundHalfUp rounds r to the nearest integer, ties away from zero. This is
// the single rounding rule applied to every settled amount.
func RoundHalfUp(r *big.Rat) *big.Int {
	if r == nil || r.Sign() == 0 {
		return big.NewInt(0)
	}
	if r.Sign() < 0 {
		neg := RoundHalfUp(new(big.Rat).Neg(r))
		return neg.Neg(neg)
	}
	num := new(big.Int).Lsh(r.Num(), 1)
	num.Add(num, r.Denom())
	den := new(big.Int).Lsh(r.Denom(), 1)
	return num.Quo(num, den)
}

// PowRat raises base to the n-th power exactly.
func PowRat(base *big.Rat, n uint64) *big.Rat {
	if base == nil {
		return new(big.Rat)
	}
	if n == 0 {
		return big.NewRat(1, 1)
	}
	exp := new(big.Int).SetUint64(n)
	num := new(big.Int).Exp(base.Num(), exp, nil)
	den := new(big.Int).Exp(base.Denom(), exp, nil)
	return new(big.Rat).SetFrac(num, den)
}

// ParseRat parses a non-negative decimal ("0.025") or fraction ("1/40").
func ParseRat(value string) (*big.Rat, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("empty rational")
	}
	r, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid rational %q", value)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("rational %q must not be negative", value)
	}
	return r, nil
}

// MustRat is ParseRat for package-level defaults.
func MustRat(value string) *big.Rat {
	r, err := ParseRat(value)
	if err != nil {
		panic(err)
	}
	return r
}

func CloneInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func CloneRat(r *big.Rat) *big.Rat {
	if r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(r)
}

package stableswap

import (
	"github.com/holiman/uint256"
)

// Pre-computed constants (never mutated)
var (
	u256One = uint256.NewInt(1)
	u256Two = uint256.NewInt(2)
	u256Ten = uint256.NewInt(10)
)

// checkedMul returns a * b, or ErrOverflow when the product does not fit in 256 bits.
func checkedMul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// checkedAdd returns a + b, or ErrOverflow.
func checkedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// checkedSub returns a - b, or ErrUnderflow when b > a.
func checkedSub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return out, nil
}

// checkedDiv returns a / b. uint256 silently yields 0 on a zero divisor, so it is
// rejected here instead.
func checkedDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrZeroDivisor
	}
	return new(uint256.Int).Div(a, b), nil
}

// mulDiv computes a * b / c with a checked intermediate product.
func mulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	p, err := checkedMul(a, b)
	if err != nil {
		return nil, err
	}
	return checkedDiv(p, c)
}

// absDiff returns |a - b|.
func absDiff(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) >= 0 {
		return new(uint256.Int).Sub(a, b)
	}
	return new(uint256.Int).Sub(b, a)
}

// MulDiv is the exported form of mulDiv for callers post-processing solver output
// (fee and share arithmetic).
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	return mulDiv(a, b, c)
}

// Sub is a checked subtraction exposed for callers; underflow wraps ErrNumeric.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	return checkedSub(a, b)
}

// Add is a checked addition exposed for callers; overflow wraps ErrNumeric.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	return checkedAdd(a, b)
}

// Mul is a checked multiplication exposed for callers; overflow wraps ErrNumeric.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	return checkedMul(a, b)
}

// Pow10 returns 10^exp. exp above 77 does not fit in 256 bits.
func Pow10(exp uint8) (*uint256.Int, error) {
	if exp > 77 {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Exp(u256Ten, uint256.NewInt(uint64(exp))), nil
}

func sum(values []*uint256.Int) (*uint256.Int, error) {
	s := new(uint256.Int)
	for _, v := range values {
		if v == nil {
			return nil, ErrNilBalance
		}
		if _, overflow := s.AddOverflow(s, v); overflow {
			return nil, ErrOverflow
		}
	}
	return s, nil
}

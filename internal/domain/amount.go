package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// FormatAmount renders a raw token amount with the token's decimals.
func FormatAmount(raw *uint256.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw.ToBig(), -int32(decimals)).String()
}

// ParseAmount converts a human amount such as "1000.5" into raw units. Digits
// beyond the token's decimals are rejected.
func ParseAmount(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	v, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", s)
	}
	return v, nil
}

package stableswap

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// DefaultReferencePrecision is the internal precision balances are scaled to.
	// It matches the largest common token precision.
	DefaultReferencePrecision uint8 = 18

	// MaxReferencePrecision bounds the magnitude multiplier at configuration time so
	// that realistic supplies scaled by it stay far below 2^256.
	MaxReferencePrecision uint8 = 36
)

// Precision describes one token's decimal exponent and the multiplier that lifts
// its raw balances to the reference precision.
type Precision struct {
	Decimals   uint8
	Multiplier *uint256.Int
}

// NewPrecision builds the descriptor for a token with the given decimals.
func NewPrecision(decimals, reference uint8) (Precision, error) {
	if reference > MaxReferencePrecision {
		return Precision{}, fmt.Errorf("%w: reference precision %d exceeds %d", ErrInvalidPrecision, reference, MaxReferencePrecision)
	}
	if decimals > reference {
		return Precision{}, fmt.Errorf("%w: token decimals %d exceed reference %d", ErrInvalidPrecision, decimals, reference)
	}
	mul, err := Pow10(reference - decimals)
	if err != nil {
		return Precision{}, err
	}
	return Precision{Decimals: decimals, Multiplier: mul}, nil
}

// Normalize scales a raw balance to the reference precision.
//
// Configuration-time bounds make overflow unreachable for realistic supplies; the
// multiplication is still checked so a violated bound never wraps silently.
func Normalize(raw, multiplier *uint256.Int) (*uint256.Int, error) {
	if raw == nil || multiplier == nil {
		return nil, ErrNilBalance
	}
	return checkedMul(raw, multiplier)
}

// Denormalize converts a reference-precision value back to raw token units,
// rounding down.
func Denormalize(normalized, multiplier *uint256.Int) (*uint256.Int, error) {
	if normalized == nil || multiplier == nil {
		return nil, ErrNilBalance
	}
	return checkedDiv(normalized, multiplier)
}

// Normalizer holds the precision descriptors of a configured pool. It is immutable
// after construction and safe to share.
type Normalizer struct {
	precisions []Precision
}

// NewNormalizer validates the token count and every token's precision.
func NewNormalizer(decimals []uint8, reference uint8) (*Normalizer, error) {
	if len(decimals) < 2 {
		return nil, ErrTooFewTokens
	}
	precisions := make([]Precision, len(decimals))
	for i, d := range decimals {
		p, err := NewPrecision(d, reference)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		precisions[i] = p
	}
	return &Normalizer{precisions: precisions}, nil
}

// N returns the number of tokens.
func (n *Normalizer) N() int {
	return len(n.precisions)
}

// Multiplier returns a copy of token i's magnitude multiplier.
func (n *Normalizer) Multiplier(i int) *uint256.Int {
	return new(uint256.Int).Set(n.precisions[i].Multiplier)
}

// Decimals returns token i's decimal exponent.
func (n *Normalizer) Decimals(i int) uint8 {
	return n.precisions[i].Decimals
}

func (n *Normalizer) Normalize(i int, raw *uint256.Int) (*uint256.Int, error) {
	if i < 0 || i >= len(n.precisions) {
		return nil, ErrIndexOutOfRange
	}
	return Normalize(raw, n.precisions[i].Multiplier)
}

func (n *Normalizer) Denormalize(i int, normalized *uint256.Int) (*uint256.Int, error) {
	if i < 0 || i >= len(n.precisions) {
		return nil, ErrIndexOutOfRange
	}
	return Denormalize(normalized, n.precisions[i].Multiplier)
}

// NormalizeAll returns a fresh balance vector in the reference precision.
// The input is not modified.
func (n *Normalizer) NormalizeAll(raw []*uint256.Int) ([]*uint256.Int, error) {
	if len(raw) != len(n.precisions) {
		return nil, fmt.Errorf("%w: expected %d balances, got %d", ErrIndexOutOfRange, len(n.precisions), len(raw))
	}
	out := make([]*uint256.Int, len(raw))
	for i, r := range raw {
		v, err := Normalize(r, n.precisions[i].Multiplier)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

package domain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

const (
	// FeeDenominator is the scale of PoolSpec.Fee and PoolSpec.AdminFee:
	// a Fee of 4_000_000 is 0.04%.
	FeeDenominator uint64 = 10_000_000_000

	// MaxFee caps the swap fee at 50%.
	MaxFee uint64 = FeeDenominator / 2
	// MaxAdminFee allows the owner to take the whole fee.
	MaxAdminFee uint64 = FeeDenominator
)

var ErrInvalidPoolSpec = fmt.Errorf("%w: invalid pool spec", stableswap.ErrContractViolation)

type Token struct {
	Mint     solana.PublicKey `json:"mint"`
	Symbol   string           `json:"symbol"`
	Decimals uint8            `json:"decimals"`
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Mint.String()
}

// PoolSpec is the immutable description of a pool. Token order fixes the
// balance index of each token for the lifetime of the pool.
type PoolSpec struct {
	Name               string           `json:"name"`
	Tokens             []Token          `json:"tokens"`
	Amplifier          uint64           `json:"amplifier"`
	Fee                uint64           `json:"fee"`
	AdminFee           uint64           `json:"adminFee"`
	Owner              solana.PublicKey `json:"owner"`
	ReferencePrecision uint8            `json:"referencePrecision"`
}

func (p *PoolSpec) N() int {
	return len(p.Tokens)
}

func (p *PoolSpec) Validate() error {
	if p.N() < 2 {
		return stableswap.ErrTooFewTokens
	}
	if p.Amplifier == 0 {
		return stableswap.ErrZeroAmplifier
	}
	if p.Fee > MaxFee {
		return fmt.Errorf("%w: fee %d exceeds %d", ErrInvalidPoolSpec, p.Fee, MaxFee)
	}
	if p.AdminFee > MaxAdminFee {
		return fmt.Errorf("%w: admin fee %d exceeds %d", ErrInvalidPoolSpec, p.AdminFee, MaxAdminFee)
	}
	seen := make(map[solana.PublicKey]struct{}, p.N())
	for i, t := range p.Tokens {
		if t.Mint.IsZero() {
			return fmt.Errorf("%w: token %d has no mint", ErrInvalidPoolSpec, i)
		}
		if _, ok := seen[t.Mint]; ok {
			return fmt.Errorf("%w: duplicate mint %s", ErrInvalidPoolSpec, t.Mint)
		}
		seen[t.Mint] = struct{}{}
	}
	if _, err := stableswap.NewNormalizer(p.Decimals(), p.Reference()); err != nil {
		return err
	}
	return nil
}

// Reference returns the reference precision, defaulting to 18.
func (p *PoolSpec) Reference() uint8 {
	if p.ReferencePrecision == 0 {
		return stableswap.DefaultReferencePrecision
	}
	return p.ReferencePrecision
}

func (p *PoolSpec) Decimals() []uint8 {
	out := make([]uint8, len(p.Tokens))
	for i, t := range p.Tokens {
		out[i] = t.Decimals
	}
	return out
}

var ErrUnknownToken = errors.New("token not in pool")

// IndexOf returns the balance index of mint.
func (p *PoolSpec) IndexOf(mint solana.PublicKey) (int, error) {
	for i, t := range p.Tokens {
		if t.Mint.Equals(mint) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownToken, mint)
}

// IndexOfSymbol looks a token up by its symbol.
func (p *PoolSpec) IndexOfSymbol(symbol string) (int, error) {
	for i, t := range p.Tokens {
		if t.Symbol == symbol {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
}

// PoolSnapshot is a point-in-time copy of a pool's mutable state.
type PoolSnapshot struct {
	Spec          PoolSpec
	Balances      []*uint256.Int
	AdminBalances []*uint256.Int
	TotalSupply   *uint256.Int
	Invariant     *uint256.Int
	VirtualPrice  *uint256.Int
}

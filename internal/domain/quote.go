package domain

import (
	"github.com/holiman/uint256"
)

// Quote is the priced outcome of exchanging AmountIn of token I for token J.
// All amounts are raw token units.
type Quote struct {
	I              int
	J              int
	AmountIn       *uint256.Int
	AmountOut      *uint256.Int
	Fee            *uint256.Int
	AdminFee       *uint256.Int
	PriceImpactBps uint16
	Invariant      *uint256.Int
	Iterations     int
	Converged      bool
}

// WithdrawOneQuote prices burning Shares for a single token.
type WithdrawOneQuote struct {
	Index     int
	Shares    *uint256.Int
	AmountOut *uint256.Int
	Fee       *uint256.Int
	Converged bool
}

type LiquidityReceipt struct {
	Amounts     []*uint256.Int
	Fees        []*uint256.Int
	Shares      *uint256.Int
	TotalSupply *uint256.Int
	Invariant   *uint256.Int
}

package pool

import (
	"errors"
	"fmt"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

var (
	ErrInsufficientLiquidity = fmt.Errorf("%w: insufficient pool liquidity", stableswap.ErrNumeric)
	ErrEmptyPool             = fmt.Errorf("%w: pool has no liquidity", stableswap.ErrContractViolation)
	ErrZeroAmount            = fmt.Errorf("%w: amount must be positive", stableswap.ErrContractViolation)
	ErrAmountsLength         = fmt.Errorf("%w: one amount per token required", stableswap.ErrContractViolation)
	ErrInitialDeposit        = fmt.Errorf("%w: initial deposit must include every token", stableswap.ErrContractViolation)
	ErrInvariantNotIncreased = fmt.Errorf("%w: deposit does not increase the invariant", stableswap.ErrContractViolation)

	ErrInsufficientFunds = errors.New("insufficient funds")
)

package stableswap

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	// ErrContractViolation marks caller errors: the inputs break a precondition
	// and no meaningful result exists.
	ErrContractViolation = errors.New("contract violation")

	// ErrNumeric marks arithmetic that would leave the 256-bit balance domain,
	// usually because the requested operation exceeds pool liquidity.
	ErrNumeric = errors.New("would under/overflow pool balance")

	// ErrNotConverged is only returned when Config.StrictConvergence is set.
	ErrNotConverged = errors.New("solver did not converge")
)

var (
	ErrTooFewTokens     = fmt.Errorf("%w: pool needs at least 2 tokens", ErrContractViolation)
	ErrZeroAmplifier    = fmt.Errorf("%w: amplifier cannot be zero", ErrContractViolation)
	ErrSameIndex        = fmt.Errorf("%w: cannot exchange between the same coins", ErrContractViolation)
	ErrIndexOutOfRange  = fmt.Errorf("%w: token index out of range", ErrContractViolation)
	ErrZeroDivisor      = fmt.Errorf("%w: balance used as divisor is zero", ErrContractViolation)
	ErrNilBalance       = fmt.Errorf("%w: nil balance", ErrContractViolation)
	ErrZeroInvariant    = fmt.Errorf("%w: invariant must be positive", ErrContractViolation)
	ErrModeMismatch     = fmt.Errorf("%w: solver mode does not match supplied balances", ErrContractViolation)
	ErrInvalidPrecision = fmt.Errorf("%w: invalid token precision", ErrContractViolation)
	ErrInvalidConfig    = fmt.Errorf("%w: invalid solver config", ErrContractViolation)

	ErrOverflow  = fmt.Errorf("%w: overflow", ErrNumeric)
	ErrUnderflow = fmt.Errorf("%w: underflow", ErrNumeric)
)

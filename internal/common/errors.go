// Package common provides shared utilities used across all features
package common

import (
	"errors"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

// Kind is the coarse class of an error returned by the engine.
type Kind uint8

const (
	KindInternal Kind = iota
	KindContractViolation
	KindNumeric
	KindNotConverged
	KindSlippage
	KindUnauthorized
	KindInsufficientShares
)

func (k Kind) String() string {
	switch k {
	case KindContractViolation:
		return "ContractViolation"
	case KindNumeric:
		return "Numeric"
	case KindNotConverged:
		return "NotConverged"
	case KindSlippage:
		return "Slippage"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInsufficientShares:
		return "InsufficientShares"
	default:
		return "Internal"
	}
}

// Pool-level error classes live here so both the pool manager and the CLI can
// match on them without importing each other.
var (
	ErrSlippage           = errors.New("slippage limit exceeded")
	ErrUnauthorized       = errors.New("caller is not the pool owner")
	ErrInsufficientShares = errors.New("insufficient liquidity shares")
)

// Classify maps any error to its Kind. nil maps to KindInternal.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrSlippage):
		return KindSlippage
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInsufficientShares):
		return KindInsufficientShares
	case errors.Is(err, stableswap.ErrNotConverged):
		return KindNotConverged
	case errors.Is(err, stableswap.ErrNumeric):
		return KindNumeric
	case errors.Is(err, stableswap.ErrContractViolation):
		return KindContractViolation
	default:
		return KindInternal
	}
}

// ErrorCode renders the stable code printed by the CLI.
func ErrorCode(err error) string {
	switch Classify(err) {
	case KindContractViolation:
		return "BAD_REQUEST"
	case KindNumeric:
		return "INSUFFICIENT_LIQUIDITY"
	case KindNotConverged:
		return "NOT_CONVERGED"
	case KindSlippage:
		return "SLIPPAGE_EXCEEDED"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInsufficientShares:
		return "INSUFFICIENT_SHARES"
	default:
		return "INTERNAL_ERROR"
	}
}

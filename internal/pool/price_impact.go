package pool

import (
	"github.com/holiman/uint256"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1% - Low impact
	PriceImpactModerate uint16 = 300  // 3% - Moderate impact
	PriceImpactHigh     uint16 = 500  // 5% - High impact
	PriceImpactExtreme  uint16 = 1000 // 10% - Extreme impact
)

// probeFraction sizes the spot-price probe as a fraction of the input balance.
const probeFraction = 10_000

var bpsDenominator = uint256.NewInt(10_000)

// PriceImpactSeverity represents the severity level of price impact
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

// GetPriceImpactSeverity returns the severity level based on price impact bps
func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// CalculatePriceImpact compares the execution rate dyOut/dxIn of a trade against
// the spot rate probeOut/probeIn measured with a tiny probe trade. All amounts
// are in the reference precision and exclude the swap fee.
//
// Impact = (1 - effective / spot) * 10000
//
//	= (probeOut·dxIn − dyOut·probeIn) · 10000 / (probeOut·dxIn)
func CalculatePriceImpact(dxIn, dyOut, probeIn, probeOut *uint256.Int) uint16 {
	if dxIn == nil || dyOut == nil || probeIn == nil || probeOut == nil {
		return 0
	}
	if dxIn.IsZero() || probeIn.IsZero() || probeOut.IsZero() {
		return 0
	}

	spot, overflow := new(uint256.Int).MulOverflow(probeOut, dxIn)
	if overflow {
		return 0
	}
	effective, overflow := new(uint256.Int).MulOverflow(dyOut, probeIn)
	if overflow {
		return 0
	}

	// Execution at or above spot is positive slippage.
	if effective.Cmp(spot) >= 0 {
		return 0
	}

	impact := new(uint256.Int).Sub(spot, effective)
	if _, overflow := impact.MulOverflow(impact, bpsDenominator); overflow {
		return 65535
	}
	impact.Div(impact, spot)

	// Cap at max uint16
	if !impact.IsUint64() || impact.Uint64() > 65535 {
		return 65535
	}
	return uint16(impact.Uint64())
}

// GetPriceImpactWarning returns a user-friendly warning message based on impact
func GetPriceImpactWarning(priceImpactBps uint16) string {
	switch GetPriceImpactSeverity(priceImpactBps) {
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely impact the market price"
	default:
		return ""
	}
}

// probeSize returns the spot probe for an input balance, at least one unit.
func probeSize(xpIn *uint256.Int) *uint256.Int {
	p := new(uint256.Int).Div(xpIn, uint256.NewInt(probeFraction))
	if p.IsZero() {
		p.SetOne()
	}
	return p
}

package stableswap

import (
	"github.com/holiman/uint256"
)

// Calculate returns the StableSwap invariant D of normalized balances under the
// default solver configuration.
func Calculate(balances []*uint256.Int, amplifier uint64) (*uint256.Int, error) {
	est, err := defaultSolver().Invariant(balances, amplifier)
	if err != nil {
		return nil, err
	}
	return est.Value, nil
}

// Invariant finds D by Newton iteration seeded with the balance sum:
//
//	D_P = D^(N+1) / (N^N · Π x_i)          (folded one balance at a time)
//	D'  = (A·N·S + N·D_P)·D / ((A·N − 1)·D + (N+1)·D_P)
//
// Each folded denominator is x_i·N + 1 so an empty balance never divides by zero.
// Iteration stops once the next estimate is within the tolerance of the current one,
// and the current one is returned.
func (s *Solver) Invariant(balances []*uint256.Int, amplifier uint64) (Estimate, error) {
	n := len(balances)
	ann, err := validateAmplifier(n, amplifier)
	if err != nil {
		return Estimate{}, err
	}
	total, err := sum(balances)
	if err != nil {
		return Estimate{}, err
	}
	if total.IsZero() {
		return Estimate{Value: new(uint256.Int), Converged: true}, nil
	}

	nU := uint256.NewInt(uint64(n))
	step := invariantStep{
		n:           nU,
		nPlusOne:    uint256.NewInt(uint64(n) + 1),
		annMinusOne: new(uint256.Int).Sub(ann, u256One),
		denoms:      make([]*uint256.Int, n),
	}
	if step.annS, err = checkedMul(ann, total); err != nil {
		return Estimate{}, err
	}
	for i, b := range balances {
		scaled, err := checkedMul(b, nU)
		if err != nil {
			return Estimate{}, err
		}
		if step.denoms[i], err = checkedAdd(scaled, u256One); err != nil {
			return Estimate{}, err
		}
	}

	d := new(uint256.Int).Set(total)
	for i := 0; i < s.cfg.InvariantIterations; i++ {
		next, err := step.next(d)
		if err != nil {
			return Estimate{}, err
		}
		if s.within(d, next) {
			return Estimate{Value: d, Iterations: i + 1, Converged: true}, nil
		}
		d = next
	}
	return s.settle(d, s.cfg.InvariantIterations)
}

// invariantStep holds the loop-invariant terms of one D computation.
type invariantStep struct {
	n           *uint256.Int
	nPlusOne    *uint256.Int
	annMinusOne *uint256.Int
	annS        *uint256.Int
	denoms      []*uint256.Int
}

func (st *invariantStep) next(d *uint256.Int) (*uint256.Int, error) {
	dP := new(uint256.Int).Set(d)
	for _, den := range st.denoms {
		var err error
		if dP, err = mulDiv(dP, d, den); err != nil {
			return nil, err
		}
	}

	// (A·N·S + D_P·N)·D
	num, err := checkedMul(dP, st.n)
	if err != nil {
		return nil, err
	}
	if num, err = checkedAdd(st.annS, num); err != nil {
		return nil, err
	}
	if num, err = checkedMul(num, d); err != nil {
		return nil, err
	}

	// (A·N − 1)·D + (N+1)·D_P
	left, err := checkedMul(st.annMinusOne, d)
	if err != nil {
		return nil, err
	}
	right, err := checkedMul(st.nPlusOne, dP)
	if err != nil {
		return nil, err
	}
	den, err := checkedAdd(left, right)
	if err != nil {
		return nil, err
	}
	return checkedDiv(num, den)
}

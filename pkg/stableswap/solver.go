package stableswap

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Mode selects what the output solver holds fixed.
type Mode uint8

const (
	// ModeSwap: token XIndex moves to NewX, solve for token YIndex on the same D.
	ModeSwap Mode = iota
	// ModeWithdrawal: D has been reduced by the caller, solve for token XIndex with
	// every other balance unchanged.
	ModeWithdrawal
)

func (m Mode) String() string {
	switch m {
	case ModeSwap:
		return "swap"
	case ModeWithdrawal:
		return "withdrawal"
	default:
		return "UNKNOWN"
	}
}

// Target describes which balance the output solver computes.
type Target struct {
	Mode   Mode
	XIndex int
	// YIndex is only read in swap mode.
	YIndex int
	// NewX is the post-trade balance of XIndex; swap mode only.
	NewX *uint256.Int
}

func SwapTarget(xIndex, yIndex int, newX *uint256.Int) Target {
	return Target{Mode: ModeSwap, XIndex: xIndex, YIndex: yIndex, NewX: newX}
}

func WithdrawalTarget(xIndex int) Target {
	return Target{Mode: ModeWithdrawal, XIndex: xIndex, YIndex: -1}
}

// Solved returns the index of the balance the solver produces.
func (t Target) Solved() int {
	if t.Mode == ModeSwap {
		return t.YIndex
	}
	return t.XIndex
}

func (t Target) validate(n int) error {
	if t.XIndex < 0 || t.XIndex >= n {
		return fmt.Errorf("%w: x index %d, pool has %d tokens", ErrIndexOutOfRange, t.XIndex, n)
	}
	switch t.Mode {
	case ModeSwap:
		if t.YIndex < 0 || t.YIndex >= n {
			return fmt.Errorf("%w: y index %d, pool has %d tokens", ErrIndexOutOfRange, t.YIndex, n)
		}
		if t.XIndex == t.YIndex {
			return ErrSameIndex
		}
		if t.NewX == nil {
			return fmt.Errorf("%w: swap mode needs the new x balance", ErrModeMismatch)
		}
	case ModeWithdrawal:
		if t.NewX != nil {
			return fmt.Errorf("%w: withdrawal mode takes no new x balance", ErrModeMismatch)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrModeMismatch, t.Mode)
	}
	return nil
}

// SolveY returns the balance of target.Solved() that keeps normalized balances on
// the curve of the given invariant, under the default solver configuration.
func SolveY(balances []*uint256.Int, amplifier uint64, invariant *uint256.Int, target Target) (*uint256.Int, error) {
	est, err := defaultSolver().SolveY(balances, amplifier, invariant, target)
	if err != nil {
		return nil, err
	}
	return est.Value, nil
}

// SolveY solves y² + (b − D)·y = c by the iteration
//
//	y' = (y² + c) / (2y + b − D)
//
// seeded with y = D, where over every folded balance x_k (all but the solved one,
// with NewX in place of XIndex in swap mode)
//
//	S = Σ x_k,   c = D^(N+1) / (N^N · Π x_k · A·N),   b = S + D/(A·N)
func (s *Solver) SolveY(balances []*uint256.Int, amplifier uint64, invariant *uint256.Int, target Target) (Estimate, error) {
	n := len(balances)
	ann, err := validateAmplifier(n, amplifier)
	if err != nil {
		return Estimate{}, err
	}
	if invariant == nil || invariant.IsZero() {
		return Estimate{}, ErrZeroInvariant
	}
	if err := target.validate(n); err != nil {
		return Estimate{}, err
	}

	d := invariant
	nU := uint256.NewInt(uint64(n))
	c := new(uint256.Int).Set(d)
	total := new(uint256.Int)
	solved := target.Solved()

	for i, balance := range balances {
		if i == solved {
			continue
		}
		x := balance
		if target.Mode == ModeSwap && i == target.XIndex {
			x = target.NewX
		}
		if x == nil {
			return Estimate{}, fmt.Errorf("%w: token %d", ErrNilBalance, i)
		}
		if x.IsZero() {
			return Estimate{}, fmt.Errorf("%w: token %d", ErrZeroDivisor, i)
		}
		if total, err = checkedAdd(total, x); err != nil {
			return Estimate{}, err
		}
		den, err := checkedMul(x, nU)
		if err != nil {
			return Estimate{}, err
		}
		if c, err = mulDiv(c, d, den); err != nil {
			return Estimate{}, err
		}
	}

	annN, err := checkedMul(ann, nU)
	if err != nil {
		return Estimate{}, err
	}
	if c, err = mulDiv(c, d, annN); err != nil {
		return Estimate{}, err
	}
	b, err := checkedAdd(total, new(uint256.Int).Div(d, ann))
	if err != nil {
		return Estimate{}, err
	}

	y := new(uint256.Int).Set(d)
	for i := 0; i < s.cfg.OutputIterations; i++ {
		next, err := outputStep(y, b, c, d)
		if err != nil {
			return Estimate{}, err
		}
		if s.within(y, next) {
			return Estimate{Value: y, Iterations: i + 1, Converged: true}, nil
		}
		y = next
	}
	return s.settle(y, s.cfg.OutputIterations)
}

func outputStep(y, b, c, d *uint256.Int) (*uint256.Int, error) {
	num, err := checkedMul(y, y)
	if err != nil {
		return nil, err
	}
	if num, err = checkedAdd(num, c); err != nil {
		return nil, err
	}

	den, err := checkedMul(y, u256Two)
	if err != nil {
		return nil, err
	}
	if den, err = checkedAdd(den, b); err != nil {
		return nil, err
	}
	if den, err = checkedSub(den, d); err != nil {
		return nil, err
	}
	if den.IsZero() {
		return nil, fmt.Errorf("%w: output solver denominator reached zero", ErrNumeric)
	}
	return new(uint256.Int).Div(num, den), nil
}

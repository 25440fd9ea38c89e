package stableswap

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	DefaultInvariantIterations = 15
	DefaultOutputIterations    = 255
	DefaultTolerance           = 1
)

// Config controls the iteration caps and the convergence policy of both solvers.
//
// When an iteration cap is reached the last estimate is returned with
// Estimate.Converged set to false. StrictConvergence turns that case into an
// ErrNotConverged error (the estimate is still returned alongside it).
type Config struct {
	InvariantIterations int
	OutputIterations    int
	Tolerance           uint64
	StrictConvergence   bool
}

func DefaultConfig() Config {
	return Config{
		InvariantIterations: DefaultInvariantIterations,
		OutputIterations:    DefaultOutputIterations,
		Tolerance:           DefaultTolerance,
	}
}

func (c Config) Validate() error {
	if c.InvariantIterations <= 0 || c.OutputIterations <= 0 {
		return fmt.Errorf("%w: iteration caps must be positive", ErrInvalidConfig)
	}
	if c.Tolerance == 0 {
		return fmt.Errorf("%w: tolerance must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Estimate is the outcome of one solver run.
type Estimate struct {
	Value      *uint256.Int
	Iterations int
	Converged  bool
}

// Solver runs the invariant and output solvers under one Config. It holds no
// mutable state and may be shared between goroutines.
type Solver struct {
	cfg       Config
	tolerance *uint256.Int
}

func NewSolver(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg, tolerance: uint256.NewInt(cfg.Tolerance)}, nil
}

func defaultSolver() *Solver {
	return &Solver{cfg: DefaultConfig(), tolerance: uint256.NewInt(DefaultTolerance)}
}

// Config returns the solver's configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// settle applies the convergence policy to the last estimate of a capped loop.
func (s *Solver) settle(value *uint256.Int, iterations int) (Estimate, error) {
	est := Estimate{Value: value, Iterations: iterations}
	if s.cfg.StrictConvergence {
		return est, fmt.Errorf("%w after %d iterations", ErrNotConverged, iterations)
	}
	return est, nil
}

// within reports whether two successive estimates differ by at most the tolerance.
func (s *Solver) within(prev, next *uint256.Int) bool {
	return absDiff(prev, next).Cmp(s.tolerance) <= 0
}

func validateAmplifier(n int, amplifier uint64) (*uint256.Int, error) {
	if n < 2 {
		return nil, ErrTooFewTokens
	}
	if amplifier == 0 {
		return nil, ErrZeroAmplifier
	}
	return checkedMul(uint256.NewInt(amplifier), uint256.NewInt(uint64(n)))
}

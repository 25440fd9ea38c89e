package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

type SolverConfig struct {
	InvariantIterations int    `env:"SOLVER_INVARIANT_ITERATIONS" envDefault:"15"`
	OutputIterations    int    `env:"SOLVER_OUTPUT_ITERATIONS" envDefault:"255"`
	Tolerance           uint64 `env:"SOLVER_TOLERANCE" envDefault:"1"`
	StrictConvergence   bool   `env:"SOLVER_STRICT_CONVERGENCE" envDefault:"false"`
}

func (c *SolverConfig) Key() string {
	return SOLVER_CONFIG_KEY
}

func (c *SolverConfig) Load() error {
	if err := env.Parse(c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *SolverConfig) Validate() error {
	if err := c.Solver().Validate(); err != nil {
		return fmt.Errorf("invalid solver config: %w", err)
	}
	return nil
}

func (c *SolverConfig) Solver() stableswap.Config {
	return stableswap.Config{
		InvariantIterations: c.InvariantIterations,
		OutputIterations:    c.OutputIterations,
		Tolerance:           c.Tolerance,
		StrictConvergence:   c.StrictConvergence,
	}
}

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/stableswap-engine/internal/config"
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/pool"
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

var (
	vaultAccount  = solana.PublicKey{0xaa}
	seederAccount = solana.PublicKey{0x5e}
)

var errNoSeed = fmt.Errorf("%w: POOL_SEED_BALANCES is required to quote", stableswap.ErrContractViolation)

type app struct {
	pool        *pool.Manager
	spec        domain.PoolSpec
	dumpMetrics bool
}

// newApp builds a pool on an in-memory ledger and seeds it from configuration.
func newApp(ctx context.Context, poolCfg *config.PoolConfig, solverCfg *config.SolverConfig) (*app, error) {
	spec := poolCfg.Spec()
	ledger := pool.NewMemoryLedger(vaultAccount)
	m, err := pool.New(spec, ledger, pool.WithSolverConfig(solverCfg.Solver()), pool.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}

	seeds, err := poolCfg.Seeds()
	if err != nil {
		return nil, err
	}
	if seeds != nil {
		for k, tok := range spec.Tokens {
			ledger.Credit(seederAccount, tok.Mint, seeds[k])
		}
		r, err := m.AddLiquidity(ctx, seederAccount, seeds, nil)
		if err != nil {
			return nil, fmt.Errorf("seed pool: %w", err)
		}
		log.Debug().Str("pool", spec.Name).Str("shares", r.Shares.Dec()).Msg("pool seeded")
	}
	return &app{pool: m, spec: spec}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) (any, error) {
	if a.pool.TotalSupply().IsZero() {
		return nil, errNoSeed
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.BoolVar(&a.dumpMetrics, "metrics", false, "print Prometheus metrics to stderr after the command")

	switch command {
	case "quote", "dx":
		from := fs.String("from", "", "input token symbol")
		to := fs.String("to", "", "output token symbol")
		amount := fs.String("amount", "", "amount in token units")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		i, err := a.spec.IndexOfSymbol(*from)
		if err != nil {
			return nil, err
		}
		j, err := a.spec.IndexOfSymbol(*to)
		if err != nil {
			return nil, err
		}
		if command == "quote" {
			dx, err := domain.ParseAmount(*amount, a.spec.Tokens[i].Decimals)
			if err != nil {
				return nil, err
			}
			q, err := a.pool.GetDy(i, j, dx)
			if err != nil {
				return nil, err
			}
			return a.quoteResponse(q), nil
		}
		dy, err := domain.ParseAmount(*amount, a.spec.Tokens[j].Decimals)
		if err != nil {
			return nil, err
		}
		q, err := a.pool.GetDx(i, j, dy)
		if err != nil {
			return nil, err
		}
		return a.quoteResponse(q), nil

	case "withdraw-one":
		token := fs.String("token", "", "token symbol to receive")
		shares := fs.String("shares", "", "liquidity shares to burn")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		i, err := a.spec.IndexOfSymbol(*token)
		if err != nil {
			return nil, err
		}
		amount, err := domain.ParseAmount(*shares, a.spec.Reference())
		if err != nil {
			return nil, err
		}
		q, err := a.pool.CalcWithdrawOneCoin(amount, i)
		if err != nil {
			return nil, err
		}
		return a.withdrawOneResponse(q), nil

	case "matrix":
		amount := fs.String("amount", "", "amount of every token, in token units")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		amounts := make([]*uint256.Int, a.spec.N())
		for k, tok := range a.spec.Tokens {
			v, err := domain.ParseAmount(*amount, tok.Decimals)
			if err != nil {
				return nil, err
			}
			amounts[k] = v
		}
		matrix, err := a.pool.QuoteMatrix(ctx, amounts)
		if err != nil {
			return nil, err
		}
		var out []quoteResponse
		for i := range matrix {
			for j := range matrix[i] {
				if i != j {
					out = append(out, a.quoteResponse(matrix[i][j]))
				}
			}
		}
		return out, nil

	case "invariant":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		snap, err := a.pool.Snapshot()
		if err != nil {
			return nil, err
		}
		return a.snapshotResponse(snap), nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", stableswap.ErrContractViolation, command)
}

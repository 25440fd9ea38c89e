package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/stableswap-engine/internal/common"
	"github.com/hxuan190/stableswap-engine/internal/config"
)

const usage = `usage: stableswap <command> [flags]

commands:
  quote         price an exchange:             -from USDC -to DAI -amount 1000.5
  dx            price the input for an output: -from USDC -to DAI -amount 10
  withdraw-one  price a single-token exit:     -token USDT -shares 10
  matrix        price every pair:              -amount 100
  invariant     print the pool snapshot
`

func main() {
	// load env
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	general := &config.GeneralConfig{}
	poolCfg := &config.PoolConfig{}
	solverCfg := &config.SolverConfig{}
	if err := config.LoadAll(general, poolCfg, solverCfg); err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	common.SetupLogger(general.LogLevel, general.Env)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, poolCfg, solverCfg)
	if err != nil {
		fail(err)
	}

	result, err := app.run(ctx, os.Args[1], os.Args[2:])
	if err != nil {
		fail(err)
	}
	out, err := sonic.Marshal(result)
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))

	if app.dumpMetrics {
		if err := writeMetrics(); err != nil {
			log.Error().Err(err).Msg("failed to write metrics")
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func fail(err error) {
	out, _ := sonic.Marshal(errorResponse{Code: common.ErrorCode(err), Message: err.Error()})
	fmt.Fprintln(os.Stderr, string(out))
	os.Exit(1)
}

// writeMetrics prints the default registry in the Prometheus text format.
func writeMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(os.Stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

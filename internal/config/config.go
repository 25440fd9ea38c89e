package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/gagliardetto/solana-go"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY = "general-config"
	POOL_CONFIG_KEY    = "pool-config"
	SOLVER_CONFIG_KEY  = "solver-config"
)

// Config is implemented by every configuration section.
type Config interface {
	Key() string
	Load() error
	Validate() error
}

// LoadAll loads the given sections in order and stops at the first failure.
func LoadAll(configs ...Config) error {
	for _, c := range configs {
		if err := c.Load(); err != nil {
			return fmt.Errorf("%s: %w", c.Key(), err)
		}
	}
	return nil
}

type GeneralConfig struct {
	Env      string `env:"ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	if err := env.Parse(gc); err != nil {
		return err
	}
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	switch gc.Env {
	case DevEnv, StagingEnv, ProdEnv:
	default:
		return errors.New("invalid general config: unknown env " + strconv.Quote(gc.Env))
	}
	if gc.LogLevel == "" {
		return errors.New("invalid general config: empty log level")
	}
	return nil
}

// parsers registers the custom env types used across sections.
var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(solana.PublicKey{}): func(v string) (interface{}, error) {
		return solana.PublicKeyFromBase58(strings.TrimSpace(v))
	},
	reflect.TypeOf(tokenList{}): parseTokenList,
	reflect.TypeOf(amountList{}): func(v string) (interface{}, error) {
		var out amountList
		for _, s := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	},
}

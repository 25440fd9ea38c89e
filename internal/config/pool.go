package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/hxuan190/stableswap-engine/internal/domain"
)

type tokenList []domain.Token

// amountList holds human-readable amounts, converted with each token's decimals.
type amountList []string

// parseTokenList reads "SYMBOL:MINT:DECIMALS,SYMBOL:MINT:DECIMALS,...".
func parseTokenList(v string) (interface{}, error) {
	var out tokenList
	for _, entry := range strings.Split(v, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("token %q: want SYMBOL:MINT:DECIMALS", entry)
		}
		mint, err := solana.PublicKeyFromBase58(parts[1])
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", parts[0], err)
		}
		decimals, err := strconv.ParseUint(parts[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("token %q decimals: %w", parts[0], err)
		}
		out = append(out, domain.Token{Mint: mint, Symbol: parts[0], Decimals: uint8(decimals)})
	}
	return out, nil
}

type PoolConfig struct {
	Name               string           `env:"POOL_NAME" envDefault:"stableswap"`
	Amplifier          uint64           `env:"POOL_AMPLIFIER" envDefault:"100"`
	Tokens             tokenList        `env:"POOL_TOKENS,required"`
	Fee                uint64           `env:"POOL_FEE" envDefault:"4000000"`
	AdminFee           uint64           `env:"POOL_ADMIN_FEE" envDefault:"5000000000"`
	Owner              solana.PublicKey `env:"POOL_OWNER"`
	ReferencePrecision uint8            `env:"POOL_REFERENCE_PRECISION" envDefault:"18"`
	SeedBalances       amountList       `env:"POOL_SEED_BALANCES"`
}

func (c *PoolConfig) Key() string {
	return POOL_CONFIG_KEY
}

func (c *PoolConfig) Load() error {
	if err := env.ParseWithFuncs(c, parsers); err != nil {
		return err
	}
	return c.Validate()
}

func (c *PoolConfig) Validate() error {
	spec := c.Spec()
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid pool config: %w", err)
	}
	if len(c.SeedBalances) > 0 && len(c.SeedBalances) != len(c.Tokens) {
		return errors.New("invalid pool config: POOL_SEED_BALANCES needs one amount per token")
	}
	return nil
}

func (c *PoolConfig) Spec() domain.PoolSpec {
	return domain.PoolSpec{
		Name:               c.Name,
		Tokens:             append([]domain.Token(nil), c.Tokens...),
		Amplifier:          c.Amplifier,
		Fee:                c.Fee,
		AdminFee:           c.AdminFee,
		Owner:              c.Owner,
		ReferencePrecision: c.ReferencePrecision,
	}
}

// Seeds converts the configured seed balances to raw units. It returns nil when
// no seed is configured.
func (c *PoolConfig) Seeds() ([]*uint256.Int, error) {
	if len(c.SeedBalances) == 0 {
		return nil, nil
	}
	out := make([]*uint256.Int, len(c.SeedBalances))
	for i, s := range c.SeedBalances {
		v, err := domain.ParseAmount(s, c.Tokens[i].Decimals)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", c.Tokens[i].Symbol, err)
		}
		out[i] = v
	}
	return out, nil
}

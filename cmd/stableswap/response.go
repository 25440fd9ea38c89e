package main

import (
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/pool"
)

type quoteResponse struct {
	From           string `json:"from"`
	To             string `json:"to"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	FeeAmount      string `json:"feeAmount"`
	AdminFeeAmount string `json:"adminFeeAmount"`
	PriceImpactBps uint16 `json:"priceImpactBps"`
	PriceImpact    string `json:"priceImpactSeverity"`
	Warning        string `json:"warning,omitempty"`
	Iterations     int    `json:"iterations"`
	Converged      bool   `json:"converged"`
}

type withdrawOneResponse struct {
	Token     string `json:"token"`
	Shares    string `json:"shares"`
	AmountOut string `json:"amountOut"`
	FeeAmount string `json:"feeAmount"`
	Converged bool   `json:"converged"`
}

type tokenBalance struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Balance  string `json:"balance"`
	AdminFee string `json:"adminFee"`
}

type snapshotResponse struct {
	Pool         string         `json:"pool"`
	Amplifier    uint64         `json:"amplifier"`
	Tokens       []tokenBalance `json:"tokens"`
	TotalSupply  string         `json:"totalSupply"`
	Invariant    string         `json:"invariant"`
	VirtualPrice string         `json:"virtualPrice"`
}

func (a *app) quoteResponse(q domain.Quote) quoteResponse {
	from, to := a.spec.Tokens[q.I], a.spec.Tokens[q.J]
	return quoteResponse{
		From:           from.Symbol,
		To:             to.Symbol,
		AmountIn:       domain.FormatAmount(q.AmountIn, from.Decimals),
		AmountOut:      domain.FormatAmount(q.AmountOut, to.Decimals),
		FeeAmount:      domain.FormatAmount(q.Fee, to.Decimals),
		AdminFeeAmount: domain.FormatAmount(q.AdminFee, to.Decimals),
		PriceImpactBps: q.PriceImpactBps,
		PriceImpact:    string(pool.GetPriceImpactSeverity(q.PriceImpactBps)),
		Warning:        pool.GetPriceImpactWarning(q.PriceImpactBps),
		Iterations:     q.Iterations,
		Converged:      q.Converged,
	}
}

func (a *app) withdrawOneResponse(q domain.WithdrawOneQuote) withdrawOneResponse {
	tok := a.spec.Tokens[q.Index]
	return withdrawOneResponse{
		Token:     tok.Symbol,
		Shares:    domain.FormatAmount(q.Shares, a.spec.Reference()),
		AmountOut: domain.FormatAmount(q.AmountOut, tok.Decimals),
		FeeAmount: domain.FormatAmount(q.Fee, tok.Decimals),
		Converged: q.Converged,
	}
}

func (a *app) snapshotResponse(s domain.PoolSnapshot) snapshotResponse {
	out := snapshotResponse{
		Pool:         s.Spec.Name,
		Amplifier:    s.Spec.Amplifier,
		TotalSupply:  domain.FormatAmount(s.TotalSupply, s.Spec.Reference()),
		Invariant:    domain.FormatAmount(s.Invariant, s.Spec.Reference()),
		VirtualPrice: domain.FormatAmount(s.VirtualPrice, 18),
	}
	for k, tok := range s.Spec.Tokens {
		out.Tokens = append(out.Tokens, tokenBalance{
			Symbol:   tok.Symbol,
			Mint:     tok.Mint.String(),
			Balance:  domain.FormatAmount(s.Balances[k], tok.Decimals),
			AdminFee: domain.FormatAmount(s.AdminBalances[k], tok.Decimals),
		})
	}
	return out
}

package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/hxuan190/stableswap-engine/internal/common"
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/metrics"
)

// Exchange swaps dx of token i from sender for at least minDy of token j. The
// admin share of the fee is moved out of the pool balance into admin balances.
func (m *Manager) Exchange(ctx context.Context, sender solana.PublicKey, i, j int, dx, minDy *uint256.Int) (q domain.Quote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("exchange", start, err) }(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.viewOf(m.balances)
	if err != nil {
		return domain.Quote{}, err
	}
	q, err = m.quote(v, i, j, dx)
	if err != nil {
		return domain.Quote{}, err
	}
	if minDy != nil && q.AmountOut.Lt(minDy) {
		return domain.Quote{}, fmt.Errorf("%w: exchange yields %s, minimum %s", common.ErrSlippage, q.AmountOut.Dec(), minDy.Dec())
	}

	debit := new(uint256.Int).Add(q.AmountOut, q.AdminFee)
	if debit.Gt(m.balances[j]) {
		return domain.Quote{}, ErrInsufficientLiquidity
	}

	mintIn, mintOut := m.spec.Tokens[i].Mint, m.spec.Tokens[j].Mint
	if err = m.ledger.TransferIn(ctx, sender, mintIn, dx); err != nil {
		return domain.Quote{}, fmt.Errorf("transfer in: %w", err)
	}
	if err = m.ledger.TransferOut(ctx, sender, mintOut, q.AmountOut); err != nil {
		if refundErr := m.ledger.TransferOut(context.WithoutCancel(ctx), sender, mintIn, dx); refundErr != nil {
			m.log.Error().Err(refundErr).Str("sender", sender.String()).Msg("refund after failed exchange")
		}
		return domain.Quote{}, fmt.Errorf("transfer out: %w", err)
	}

	m.version++
	m.balances[i].Add(m.balances[i], dx)
	m.balances[j].Sub(m.balances[j], debit)
	m.adminBalances[j].Add(m.adminBalances[j], q.AdminFee)

	metrics.PriceImpact.WithLabelValues(string(GetPriceImpactSeverity(q.PriceImpactBps))).Observe(float64(q.PriceImpactBps))
	m.log.Debug().
		Str("sender", sender.String()).
		Int("i", i).
		Int("j", j).
		Str("dx", dx.Dec()).
		Str("dy", q.AmountOut.Dec()).
		Uint16("impact_bps", q.PriceImpactBps).
		Msg("exchange")
	return q, nil
}

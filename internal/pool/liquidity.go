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
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

// AddLiquidity deposits amounts (one per token, zeros allowed after the first
// deposit) and mints liquidity shares to sender. The first deposit must carry
// every token and mints D. Later deposits pay the imbalance fee on their
// deviation from a proportional deposit and mint supply·(D2 − D0)/D0.
func (m *Manager) AddLiquidity(ctx context.Context, sender solana.PublicKey, amounts []*uint256.Int, minMint *uint256.Int) (r domain.LiquidityReceipt, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("add_liquidity", start, err) }(time.Now())

	n := m.spec.N()
	if len(amounts) != n {
		return r, ErrAmountsLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	initial := m.totalSupply.IsZero()
	anyPositive := false
	for _, a := range amounts {
		if a == nil {
			return r, stableswap.ErrNilBalance
		}
		if a.IsZero() {
			if initial {
				return r, ErrInitialDeposit
			}
			continue
		}
		anyPositive = true
	}
	if !anyPositive {
		return r, ErrZeroAmount
	}

	oldXp, err := m.xp(m.balances)
	if err != nil {
		return r, err
	}
	d0 := new(uint256.Int)
	if !initial {
		est, err := m.invariant(oldXp)
		if err != nil {
			return r, err
		}
		d0 = est.Value
	}

	newBalances := make([]*uint256.Int, n)
	for k := range newBalances {
		if newBalances[k], err = stableswap.Add(m.balances[k], amounts[k]); err != nil {
			return r, err
		}
	}
	newXp, err := m.xp(newBalances)
	if err != nil {
		return r, err
	}
	d1Est, err := m.invariant(newXp)
	if err != nil {
		return r, err
	}
	d1 := d1Est.Value
	if !d1.Gt(d0) {
		return r, ErrInvariantNotIncreased
	}

	fees := zeros(n)
	adminDelta := zeros(n)
	minted := new(uint256.Int).Set(d1)
	finalD := d1
	if !initial {
		reduced := clone(newXp)
		for k := 0; k < n; k++ {
			ideal, err := stableswap.MulDiv(d1, oldXp[k], d0)
			if err != nil {
				return r, err
			}
			diff := new(uint256.Int)
			if ideal.Gt(newXp[k]) {
				diff.Sub(ideal, newXp[k])
			} else {
				diff.Sub(newXp[k], ideal)
			}
			fee, err := feeOf(diff, m.imbalanceFee)
			if err != nil {
				return r, err
			}
			if reduced[k], err = stableswap.Sub(reduced[k], fee); err != nil {
				return r, err
			}
			if fees[k], err = m.norm.Denormalize(k, fee); err != nil {
				return r, err
			}
			admin, err := feeOf(fee, m.adminFee)
			if err != nil {
				return r, err
			}
			if adminDelta[k], err = m.norm.Denormalize(k, admin); err != nil {
				return r, err
			}
			if newBalances[k], err = stableswap.Sub(newBalances[k], adminDelta[k]); err != nil {
				return r, err
			}
		}
		d2Est, err := m.invariant(reduced)
		if err != nil {
			return r, err
		}
		if !d2Est.Value.Gt(d0) {
			return r, ErrInvariantNotIncreased
		}
		growth := new(uint256.Int).Sub(d2Est.Value, d0)
		if minted, err = stableswap.MulDiv(m.totalSupply, growth, d0); err != nil {
			return r, err
		}
		finalD = d2Est.Value
	}

	if minMint != nil && minted.Lt(minMint) {
		return r, fmt.Errorf("%w: deposit mints %s shares, minimum %s", common.ErrSlippage, minted.Dec(), minMint.Dec())
	}

	if err = m.collect(ctx, sender, amounts); err != nil {
		return r, err
	}

	m.version++
	m.balances = newBalances
	for k := range m.adminBalances {
		m.adminBalances[k].Add(m.adminBalances[k], adminDelta[k])
	}
	m.totalSupply.Add(m.totalSupply, minted)
	m.credit(sender, minted)

	m.log.Debug().Str("sender", sender.String()).Str("minted", minted.Dec()).Bool("initial", initial).Msg("add liquidity")
	return domain.LiquidityReceipt{
		Amounts:     clone(amounts),
		Fees:        fees,
		Shares:      minted,
		TotalSupply: new(uint256.Int).Set(m.totalSupply),
		Invariant:   new(uint256.Int).Set(finalD),
	}, nil
}

// RemoveLiquidity burns shares for a proportional part of every balance, rounded
// down. minAmounts may be nil.
func (m *Manager) RemoveLiquidity(ctx context.Context, sender solana.PublicKey, shares *uint256.Int, minAmounts []*uint256.Int) (r domain.LiquidityReceipt, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("remove_liquidity", start, err) }(time.Now())

	n := m.spec.N()
	if minAmounts != nil && len(minAmounts) != n {
		return r, ErrAmountsLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkShares(sender, shares); err != nil {
		return r, err
	}

	amounts := make([]*uint256.Int, n)
	for k := range amounts {
		if amounts[k], err = stableswap.MulDiv(m.balances[k], shares, m.totalSupply); err != nil {
			return r, err
		}
		if minAmounts != nil && minAmounts[k] != nil && amounts[k].Lt(minAmounts[k]) {
			return r, fmt.Errorf("%w: token %d yields %s, minimum %s", common.ErrSlippage, k, amounts[k].Dec(), minAmounts[k].Dec())
		}
	}

	if err = m.disburse(ctx, sender, amounts); err != nil {
		return r, err
	}

	m.version++
	for k := range m.balances {
		m.balances[k].Sub(m.balances[k], amounts[k])
	}
	m.burn(sender, shares)

	d := new(uint256.Int)
	if !m.totalSupply.IsZero() {
		xp, err := m.xp(m.balances)
		if err != nil {
			return r, err
		}
		est, err := m.invariant(xp)
		if err != nil {
			return r, err
		}
		d = est.Value
	}

	m.log.Debug().Str("sender", sender.String()).Str("shares", shares.Dec()).Msg("remove liquidity")
	return domain.LiquidityReceipt{
		Amounts:     amounts,
		Fees:        zeros(n),
		Shares:      new(uint256.Int).Set(shares),
		TotalSupply: new(uint256.Int).Set(m.totalSupply),
		Invariant:   d,
	}, nil
}

// CalcWithdrawOneCoin quotes burning shares for token i alone.
func (m *Manager) CalcWithdrawOneCoin(shares *uint256.Int, i int) (q domain.WithdrawOneQuote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("calc_withdraw_one_coin", start, err) }(time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calcWithdrawOne(shares, i)
}

// calcWithdrawOne runs the withdrawal-mode solver on the reduced invariant
// D1 = D0 − shares·D0/supply, then again on balances reduced by the imbalance
// fee. Callers hold mu.
func (m *Manager) calcWithdrawOne(shares *uint256.Int, i int) (domain.WithdrawOneQuote, error) {
	if err := m.checkIndex(i); err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	if shares == nil || shares.IsZero() {
		return domain.WithdrawOneQuote{}, ErrZeroAmount
	}
	if m.totalSupply.IsZero() {
		return domain.WithdrawOneQuote{}, ErrEmptyPool
	}
	if !shares.Lt(m.totalSupply) {
		return domain.WithdrawOneQuote{}, fmt.Errorf("%w: single-token withdrawal of the whole supply", ErrInsufficientLiquidity)
	}

	xp, err := m.xp(m.balances)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	d0Est, err := m.invariant(xp)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	d0 := d0Est.Value
	burned, err := stableswap.MulDiv(shares, d0, m.totalSupply)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	d1, err := stableswap.Sub(d0, burned)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}

	newY, err := m.solveY(xp, d1, stableswap.WithdrawalTarget(i))
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}

	reduced := clone(xp)
	for k := range xp {
		scaled, err := stableswap.MulDiv(xp[k], d1, d0)
		if err != nil {
			return domain.WithdrawOneQuote{}, err
		}
		var expected *uint256.Int
		if k == i {
			expected, err = stableswap.Sub(scaled, newY.Value)
		} else {
			expected, err = stableswap.Sub(xp[k], scaled)
		}
		if err != nil {
			return domain.WithdrawOneQuote{}, err
		}
		fee, err := feeOf(expected, m.imbalanceFee)
		if err != nil {
			return domain.WithdrawOneQuote{}, err
		}
		if reduced[k], err = stableswap.Sub(reduced[k], fee); err != nil {
			return domain.WithdrawOneQuote{}, err
		}
	}

	y2, err := m.solveY(reduced, d1, stableswap.WithdrawalTarget(i))
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	// One unit is held back against rounding in the pool's favour.
	outN, err := stableswap.Sub(reduced[i], y2.Value)
	if err != nil {
		return domain.WithdrawOneQuote{}, fmt.Errorf("%w: %v", ErrInsufficientLiquidity, err)
	}
	if outN, err = stableswap.Sub(outN, uint256.NewInt(1)); err != nil {
		return domain.WithdrawOneQuote{}, fmt.Errorf("%w: %v", ErrInsufficientLiquidity, err)
	}
	dy, err := m.norm.Denormalize(i, outN)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}

	grossN, err := stableswap.Sub(xp[i], newY.Value)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	gross, err := m.norm.Denormalize(i, grossN)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	fee, err := stableswap.Sub(gross, dy)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}

	return domain.WithdrawOneQuote{
		Index:     i,
		Shares:    new(uint256.Int).Set(shares),
		AmountOut: dy,
		Fee:       fee,
		Converged: d0Est.Converged && newY.Converged && y2.Converged,
	}, nil
}

// RemoveLiquidityOneCoin burns shares for at least minAmount of token i.
func (m *Manager) RemoveLiquidityOneCoin(ctx context.Context, sender solana.PublicKey, shares *uint256.Int, i int, minAmount *uint256.Int) (q domain.WithdrawOneQuote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("remove_liquidity_one_coin", start, err) }(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkShares(sender, shares); err != nil {
		return q, err
	}
	q, err = m.calcWithdrawOne(shares, i)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	if minAmount != nil && q.AmountOut.Lt(minAmount) {
		return domain.WithdrawOneQuote{}, fmt.Errorf("%w: withdrawal yields %s, minimum %s", common.ErrSlippage, q.AmountOut.Dec(), minAmount.Dec())
	}
	admin, err := feeOf(q.Fee, m.adminFee)
	if err != nil {
		return domain.WithdrawOneQuote{}, err
	}
	debit := new(uint256.Int).Add(q.AmountOut, admin)
	if debit.Gt(m.balances[i]) {
		return domain.WithdrawOneQuote{}, ErrInsufficientLiquidity
	}

	if err = m.ledger.TransferOut(ctx, sender, m.spec.Tokens[i].Mint, q.AmountOut); err != nil {
		return domain.WithdrawOneQuote{}, fmt.Errorf("transfer out: %w", err)
	}

	m.version++
	m.balances[i].Sub(m.balances[i], debit)
	m.adminBalances[i].Add(m.adminBalances[i], admin)
	m.burn(sender, shares)

	m.log.Debug().Str("sender", sender.String()).Int("i", i).Str("shares", shares.Dec()).Str("dy", q.AmountOut.Dec()).Msg("remove liquidity one coin")
	return q, nil
}

// checkShares verifies that account holds at least shares. Callers hold mu.
func (m *Manager) checkShares(account solana.PublicKey, shares *uint256.Int) error {
	if shares == nil || shares.IsZero() {
		return ErrZeroAmount
	}
	held, ok := m.shares[account]
	if !ok || held.Lt(shares) {
		have := "0"
		if ok {
			have = held.Dec()
		}
		return fmt.Errorf("%w: %s holds %s, needs %s", common.ErrInsufficientShares, account, have, shares.Dec())
	}
	return nil
}

func (m *Manager) credit(account solana.PublicKey, shares *uint256.Int) {
	held, ok := m.shares[account]
	if !ok {
		held = new(uint256.Int)
		m.shares[account] = held
	}
	held.Add(held, shares)
}

func (m *Manager) burn(account solana.PublicKey, shares *uint256.Int) {
	held := m.shares[account]
	held.Sub(held, shares)
	if held.IsZero() {
		delete(m.shares, account)
	}
	m.totalSupply.Sub(m.totalSupply, shares)
}

// collect pulls every positive amount from sender, returning what was already
// taken if a later transfer fails.
func (m *Manager) collect(ctx context.Context, sender solana.PublicKey, amounts []*uint256.Int) error {
	for k, a := range amounts {
		if a.IsZero() {
			continue
		}
		if err := m.ledger.TransferIn(ctx, sender, m.spec.Tokens[k].Mint, a); err != nil {
			for back := 0; back < k; back++ {
				if amounts[back].IsZero() {
					continue
				}
				if refundErr := m.ledger.TransferOut(context.WithoutCancel(ctx), sender, m.spec.Tokens[back].Mint, amounts[back]); refundErr != nil {
					m.log.Error().Err(refundErr).Int("token", back).Msg("refund after failed deposit")
				}
			}
			return fmt.Errorf("transfer in token %d: %w", k, err)
		}
	}
	return nil
}

// disburse pays out every positive amount to the recipient, taking back what
// was already paid if a later transfer fails.
func (m *Manager) disburse(ctx context.Context, to solana.PublicKey, amounts []*uint256.Int) error {
	for k, a := range amounts {
		if a.IsZero() {
			continue
		}
		if err := m.ledger.TransferOut(ctx, to, m.spec.Tokens[k].Mint, a); err != nil {
			for back := 0; back < k; back++ {
				if amounts[back].IsZero() {
					continue
				}
				if refundErr := m.ledger.TransferIn(context.WithoutCancel(ctx), to, m.spec.Tokens[back].Mint, amounts[back]); refundErr != nil {
					m.log.Error().Err(refundErr).Int("token", back).Msg("refund after failed payout")
				}
			}
			return fmt.Errorf("transfer out token %d: %w", k, err)
		}
	}
	return nil
}

package pool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/hxuan190/stableswap-engine/internal/common"
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/metrics"
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

var virtualPricePrecision = uint256.NewInt(1_000_000_000_000_000_000)

// WithdrawAdminFees pays the accumulated admin fees to the pool owner.
func (m *Manager) WithdrawAdminFees(ctx context.Context, caller solana.PublicKey) (paid []*uint256.Int, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("withdraw_admin_fees", start, err) }(time.Now())

	if m.spec.Owner.IsZero() || !caller.Equals(m.spec.Owner) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnauthorized, caller)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	paid = clone(m.adminBalances)
	if err = m.disburse(ctx, caller, paid); err != nil {
		return nil, err
	}
	m.adminBalances = zeros(m.spec.N())

	m.log.Info().Str("owner", caller.String()).Msg("admin fees withdrawn")
	return paid, nil
}

// VirtualPrice returns D·10^18 / supply, the value of one share in reference units.
func (m *Manager) VirtualPrice() (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.virtualPrice()
}

func (m *Manager) virtualPrice() (*uint256.Int, error) {
	v, err := m.viewOf(m.balances)
	if err != nil {
		return nil, err
	}
	return m.virtualPriceOf(v)
}

func (m *Manager) virtualPriceOf(v view) (*uint256.Int, error) {
	vp, err := stableswap.MulDiv(v.d.Value, virtualPricePrecision, m.totalSupply)
	if err != nil {
		return nil, err
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(vp.ToBig()), big.NewFloat(1e18)).Float64()
	metrics.VirtualPrice.WithLabelValues(m.spec.Name).Set(f)
	return vp, nil
}

// Snapshot copies the pool state. Invariant and VirtualPrice are nil for an
// empty pool.
func (m *Manager) Snapshot() (domain.PoolSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := domain.PoolSnapshot{
		Spec:          m.spec,
		Balances:      clone(m.balances),
		AdminBalances: clone(m.adminBalances),
		TotalSupply:   new(uint256.Int).Set(m.totalSupply),
	}
	if m.totalSupply.IsZero() {
		return snap, nil
	}
	v, err := m.viewOf(m.balances)
	if err != nil {
		return snap, err
	}
	snap.Invariant = v.d.Value
	if snap.VirtualPrice, err = m.virtualPriceOf(v); err != nil {
		return snap, err
	}
	return snap, nil
}

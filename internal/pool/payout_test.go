package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/stableswap-engine/internal/metrics"
)

var errTransferRejected = errors.New("transfer rejected")

// rejectingLedger fails every payout of one mint while reject is set.
type rejectingLedger struct {
	*MemoryLedger
	mint   solana.PublicKey
	reject bool
}

func (l *rejectingLedger) TransferOut(ctx context.Context, to, mint solana.PublicKey, amount *uint256.Int) error {
	if l.reject && mint.Equals(l.mint) {
		return errTransferRejected
	}
	return l.MemoryLedger.TransferOut(ctx, to, mint, amount)
}

// newRejectingPool is newSeededPool on a ledger that can refuse DAI payouts.
func newRejectingPool(t *testing.T) (*Manager, *rejectingLedger) {
	t.Helper()
	ledger := &rejectingLedger{MemoryLedger: NewMemoryLedger(vault), mint: daiMint}
	for _, account := range []solana.PublicKey{alice, bob} {
		ledger.Credit(account, usdcMint, dec("100000000000000"))
		ledger.Credit(account, usdtMint, dec("100000000000000"))
		ledger.Credit(account, daiMint, dec("100000000000000000000000000"))
	}
	m, err := New(testSpec(), ledger, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	_, err = m.AddLiquidity(context.Background(), alice, vec("1000000000000", "1000000000000", "1000000000000000000000000"), nil)
	require.NoError(t, err)
	return m, ledger
}

func holdings(ledger *rejectingLedger, account solana.PublicKey) []string {
	return []string{
		ledger.Balance(account, usdcMint).Dec(),
		ledger.Balance(account, usdtMint).Dec(),
		ledger.Balance(account, daiMint).Dec(),
	}
}

func TestRemoveLiquidityRollsBackPartialPayout(t *testing.T) {
	ctx := context.Background()
	m, ledger := newRejectingPool(t)
	before := holdings(ledger, alice)
	books := decs(m.Balances())

	ledger.reject = true
	_, err := m.RemoveLiquidity(ctx, alice, dec("300000000000000000000000"), nil)
	require.ErrorIs(t, err, errTransferRejected)

	assert.Equal(t, before, holdings(ledger, alice))
	assert.Equal(t, books, decs(m.Balances()))
	assert.Equal(t, "3000000000000000000000000", m.SharesOf(alice).Dec())
	assert.Equal(t, "3000000000000000000000000", m.TotalSupply().Dec())
	assertVaultMatches(t, m, ledger.MemoryLedger)

	ledger.reject = false
	r, err := m.RemoveLiquidity(ctx, alice, dec("300000000000000000000000"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"100000000000", "100000000000", "100000000000000000000000"}, decs(r.Amounts))
	assertVaultMatches(t, m, ledger.MemoryLedger)
}

func TestWithdrawAdminFeesRollsBackPartialPayout(t *testing.T) {
	ctx := context.Background()
	m, ledger := newRejectingPool(t)

	_, err := m.Exchange(ctx, bob, 0, 2, u(1_000_000_000), nil)
	require.NoError(t, err)
	_, err = m.Exchange(ctx, bob, 2, 0, dec("1000000000000000000000"), nil)
	require.NoError(t, err)
	fees := decs(m.AdminBalances())
	require.NotEqual(t, "0", fees[0])
	require.NotEqual(t, "0", fees[2])

	ledger.reject = true
	_, err = m.WithdrawAdminFees(ctx, owner)
	require.ErrorIs(t, err, errTransferRejected)
	assert.Equal(t, fees, decs(m.AdminBalances()))
	assert.Equal(t, []string{"0", "0", "0"}, holdings(ledger, owner))
	assertVaultMatches(t, m, ledger.MemoryLedger)

	ledger.reject = false
	paid, err := m.WithdrawAdminFees(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, fees, decs(paid))
	assert.Equal(t, fees, holdings(ledger, owner))
	assert.Equal(t, []string{"0", "0", "0"}, decs(m.AdminBalances()))

	paid, err = m.WithdrawAdminFees(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0", "0"}, decs(paid))
	assert.Equal(t, fees, holdings(ledger, owner))
	assertVaultMatches(t, m, ledger.MemoryLedger)
}

func TestExchangeRefundsInputWhenPayoutFails(t *testing.T) {
	ctx := context.Background()
	m, ledger := newRejectingPool(t)
	before := holdings(ledger, bob)
	books := decs(m.Balances())

	ledger.reject = true
	_, err := m.Exchange(ctx, bob, 0, 2, u(1_000_000_000), nil)
	require.ErrorIs(t, err, errTransferRejected)

	assert.Equal(t, before, holdings(ledger, bob))
	assert.Equal(t, books, decs(m.Balances()))
	assert.Equal(t, []string{"0", "0", "0"}, decs(m.AdminBalances()))
	assertVaultMatches(t, m, ledger.MemoryLedger)
}

func TestVirtualPriceGaugeIsUnscaled(t *testing.T) {
	m, _ := newSeededPool(t)
	vp, err := m.VirtualPrice()
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", vp.Dec())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.VirtualPrice.WithLabelValues(m.Spec().Name)), 1e-9)
}

package pool

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/stableswap-engine/internal/common"
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

var (
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	usdtMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	daiMint  = solana.MustPublicKeyFromBase58("EjmyN6qEC1Tf1JxiG1ae7UTJhUxSwk1TCWNWqxWV4J6o")

	vault = solana.PublicKey{0xaa}
	alice = solana.PublicKey{1}
	bob   = solana.PublicKey{2}
	owner = solana.PublicKey{3}
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func dec(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

func vec(values ...string) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = dec(v)
	}
	return out
}

func decs(values []*uint256.Int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Dec()
	}
	return out
}

func testSpec() domain.PoolSpec {
	return domain.PoolSpec{
		Name: "3pool",
		Tokens: []domain.Token{
			{Mint: usdcMint, Symbol: "USDC", Decimals: 6},
			{Mint: usdtMint, Symbol: "USDT", Decimals: 6},
			{Mint: daiMint, Symbol: "DAI", Decimals: 18},
		},
		Amplifier: 200,
		Fee:       4_000_000,
		AdminFee:  5_000_000_000,
		Owner:     owner,
	}
}

// newTestPool returns an empty pool whose ledger has funded alice and bob.
func newTestPool(t *testing.T, opts ...Option) (*Manager, *MemoryLedger) {
	t.Helper()
	ledger := NewMemoryLedger(vault)
	for _, account := range []solana.PublicKey{alice, bob} {
		ledger.Credit(account, usdcMint, dec("100000000000000"))
		ledger.Credit(account, usdtMint, dec("100000000000000"))
		ledger.Credit(account, daiMint, dec("100000000000000000000000000"))
	}
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	m, err := New(testSpec(), ledger, opts...)
	require.NoError(t, err)
	return m, ledger
}

// newSeededPool holds one million of each token, deposited by alice.
func newSeededPool(t *testing.T, opts ...Option) (*Manager, *MemoryLedger) {
	t.Helper()
	m, ledger := newTestPool(t, opts...)
	r, err := m.AddLiquidity(context.Background(), alice, vec("1000000000000", "1000000000000", "1000000000000000000000000"), nil)
	require.NoError(t, err)
	require.Equal(t, "3000000000000000000000000", r.Shares.Dec())
	return m, ledger
}

func assertVaultMatches(t *testing.T, m *Manager, ledger *MemoryLedger) {
	t.Helper()
	balances, admin := m.Balances(), m.AdminBalances()
	for k, tok := range m.Spec().Tokens {
		want := new(uint256.Int).Add(balances[k], admin[k])
		assert.Equal(t, want.Dec(), ledger.Balance(vault, tok.Mint).Dec(), "vault holdings of %s", tok.Symbol)
	}
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	spec := testSpec()
	spec.Amplifier = 0
	_, err := New(spec, NewMemoryLedger(vault))
	require.ErrorIs(t, err, stableswap.ErrZeroAmplifier)

	_, err = New(testSpec(), nil)
	require.ErrorIs(t, err, stableswap.ErrContractViolation)

	_, err = New(testSpec(), NewMemoryLedger(vault), WithSolverConfig(stableswap.Config{}))
	require.ErrorIs(t, err, stableswap.ErrInvalidConfig)
}

func TestPoolLifecycle(t *testing.T) {
	ctx := context.Background()
	m, ledger := newSeededPool(t)

	vp, err := m.VirtualPrice()
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", vp.Dec())

	// Swap quotes across precisions.
	q, err := m.GetDy(0, 2, u(1_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "999595026885489775670", q.AmountOut.Dec())
	assert.Equal(t, "399998009958179181", q.Fee.Dec())
	assert.Equal(t, "199999004979089590", q.AdminFee.Dec())
	assert.True(t, q.Converged)

	q, err = m.GetDy(2, 1, dec("1000000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "999595026", q.AmountOut.Dec())
	assert.Equal(t, "399998", q.Fee.Dec())
	assert.Equal(t, "199999", q.AdminFee.Dec())

	dx, err := m.GetDx(0, 1, u(500_000_000))
	require.NoError(t, err)
	assert.Equal(t, "500201325", dx.AmountIn.Dec())
	back, err := m.GetDy(0, 1, dx.AmountIn)
	require.NoError(t, err)
	assert.False(t, back.AmountOut.Lt(u(500_000_000)), "GetDx must cover the requested output")

	// Exchange.
	q, err = m.Exchange(ctx, bob, 0, 2, u(1_000_000_000), dec("999595026885489775670"))
	require.NoError(t, err)
	assert.Equal(t, "999595026885489775670", q.AmountOut.Dec())
	assert.Equal(t, []string{"1001000000000", "1000000000000", "999000204974109531134740"}, decs(m.Balances()))
	assert.Equal(t, []string{"0", "0", "199999004979089590"}, decs(m.AdminBalances()))
	assert.Equal(t, "100000999595026885489775670", ledger.Balance(bob, daiMint).Dec())
	assertVaultMatches(t, m, ledger)

	// Imbalanced deposit pays the imbalance fee.
	r, err := m.AddLiquidity(ctx, alice, vec("500000000", "0", "0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "499897117588862891244", r.Shares.Dec())
	assert.Equal(t, "3000499897117588862891244", r.TotalSupply.Dec())
	assert.Equal(t, []string{"1001499975013", "999999987501", "999000192486680213766517"}, decs(m.Balances()))
	assert.Equal(t, []string{"24987", "12499", "212486434296457813"}, decs(m.AdminBalances()))
	assertVaultMatches(t, m, ledger)

	// Single-token withdrawal.
	one, err := m.CalcWithdrawOneCoin(dec("1000000000000000000000"), 1)
	require.NoError(t, err)
	assert.Equal(t, "999797581", one.AmountOut.Dec())
	assert.Equal(t, "200015", one.Fee.Dec())

	one, err = m.RemoveLiquidityOneCoin(ctx, alice, dec("1000000000000000000000"), 1, u(999_797_581))
	require.NoError(t, err)
	assert.Equal(t, "999797581", one.AmountOut.Dec())
	assert.Equal(t, "999000089913", m.Balances()[1].Dec())
	assert.Equal(t, "112506", m.AdminBalances()[1].Dec())
	assert.Equal(t, "2999499897117588862891244", m.TotalSupply().Dec())
	assertVaultMatches(t, m, ledger)

	// Proportional withdrawal.
	r, err = m.RemoveLiquidity(ctx, alice, dec("100000000000000000000000"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"33388898461", "33305555065", "33305558484822197887364"}, decs(r.Amounts))
	assert.Equal(t, "2899499897117588862891244", r.TotalSupply.Dec())
	assert.Equal(t, m.TotalSupply().Dec(), m.SharesOf(alice).Dec())
	assertVaultMatches(t, m, ledger)

	vp, err = m.VirtualPrice()
	require.NoError(t, err)
	assert.Equal(t, "1000000116665011302", vp.Dec())

	// Admin fees go to the owner only.
	_, err = m.WithdrawAdminFees(ctx, bob)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	paid, err := m.WithdrawAdminFees(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"24987", "112506", "212486434296457813"}, decs(paid))
	assert.Equal(t, []string{"0", "0", "0"}, decs(m.AdminBalances()))
	assert.Equal(t, "212486434296457813", ledger.Balance(owner, daiMint).Dec())
	assertVaultMatches(t, m, ledger)
}

func TestBalancedDepositPaysNoFee(t *testing.T) {
	m, _ := newSeededPool(t)

	r, err := m.AddLiquidity(context.Background(), bob, vec("1000000000", "1000000000", "1000000000000000000000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000000000", r.Shares.Dec())
	assert.Equal(t, []string{"0", "0", "0"}, decs(r.Fees))
	assert.Equal(t, []string{"0", "0", "0"}, decs(m.AdminBalances()))
	assert.Equal(t, "3000000000000000000000", m.SharesOf(bob).Dec())
	assert.Equal(t, "3003000000000000000000000", m.TotalSupply().Dec())
}

func TestExchangeFailuresLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	m, ledger := newSeededPool(t)
	before := decs(m.Balances())

	_, err := m.Exchange(ctx, bob, 0, 2, u(1_000_000_000), dec("999595026885489775671"))
	require.ErrorIs(t, err, common.ErrSlippage)

	poor := solana.PublicKey{9}
	_, err = m.Exchange(ctx, poor, 0, 2, u(1_000_000_000), nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = m.Exchange(ctx, bob, 1, 1, u(1), nil)
	require.ErrorIs(t, err, stableswap.ErrSameIndex)

	assert.Equal(t, before, decs(m.Balances()))
	assertVaultMatches(t, m, ledger)
}

func TestQuoteErrors(t *testing.T) {
	empty, _ := newTestPool(t)
	_, err := empty.GetDy(0, 1, u(1))
	require.ErrorIs(t, err, ErrEmptyPool)
	_, err = empty.VirtualPrice()
	require.ErrorIs(t, err, ErrEmptyPool)

	m, _ := newSeededPool(t)
	tests := []struct {
		name string
		i, j int
		dx   *uint256.Int
		err  error
	}{
		{"same index", 2, 2, u(1), stableswap.ErrSameIndex},
		{"index out of range", 0, 3, u(1), stableswap.ErrIndexOutOfRange},
		{"negative index", -1, 0, u(1), stableswap.ErrIndexOutOfRange},
		{"zero amount", 0, 1, u(0), ErrZeroAmount},
		{"nil amount", 0, 1, nil, ErrZeroAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.GetDy(tt.i, tt.j, tt.dx)
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, common.KindContractViolation, common.Classify(err))
		})
	}

	_, err = m.GetDx(0, 1, u(1_000_000_000_000))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.Equal(t, common.KindNumeric, common.Classify(err))
}

func TestLiquidityErrors(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestPool(t)

	_, err := m.AddLiquidity(ctx, alice, vec("1000000", "0", "1000000000000000000"), nil)
	require.ErrorIs(t, err, ErrInitialDeposit)

	_, err = m.AddLiquidity(ctx, alice, vec("1000000", "1000000"), nil)
	require.ErrorIs(t, err, ErrAmountsLength)

	_, err = m.AddLiquidity(ctx, alice, vec("1000000", "1000000", "1000000000000000000"), dec("3000000000000000001"))
	require.ErrorIs(t, err, common.ErrSlippage)
	assert.True(t, m.TotalSupply().IsZero())

	m, _ = newSeededPool(t)
	_, err = m.AddLiquidity(ctx, bob, vec("0", "0", "0"), nil)
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = m.RemoveLiquidity(ctx, bob, u(1), nil)
	require.ErrorIs(t, err, common.ErrInsufficientShares)

	_, err = m.RemoveLiquidity(ctx, alice, dec("1000000000000000000000"), vec("333333334", "0", "0"))
	require.ErrorIs(t, err, common.ErrSlippage)

	_, err = m.RemoveLiquidityOneCoin(ctx, alice, dec("1000000000000000000000"), 0, u(1_000_000_000))
	require.ErrorIs(t, err, common.ErrSlippage)

	_, err = m.CalcWithdrawOneCoin(m.TotalSupply(), 0)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = m.CalcWithdrawOneCoin(u(1), 5)
	require.ErrorIs(t, err, stableswap.ErrIndexOutOfRange)
}

func TestRemoveAllLiquidity(t *testing.T) {
	ctx := context.Background()
	m, ledger := newSeededPool(t)

	r, err := m.RemoveLiquidity(ctx, alice, m.SharesOf(alice), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000000000", "1000000000000", "1000000000000000000000000"}, decs(r.Amounts))
	assert.True(t, r.Invariant.IsZero())
	assert.True(t, m.TotalSupply().IsZero())
	assert.True(t, m.SharesOf(alice).IsZero())
	assert.Equal(t, "100000000000000", ledger.Balance(alice, usdcMint).Dec())

	_, err = m.GetDy(0, 1, u(1))
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestStrictConvergenceSurfaces(t *testing.T) {
	cfg := stableswap.DefaultConfig()
	cfg.OutputIterations = 1
	cfg.StrictConvergence = true
	m, _ := newSeededPool(t, WithSolverConfig(cfg))

	_, err := m.GetDy(0, 2, u(1_000_000_000))
	require.ErrorIs(t, err, stableswap.ErrNotConverged)
	assert.Equal(t, common.KindNotConverged, common.Classify(err))
}

func TestNonConvergenceIsReported(t *testing.T) {
	cfg := stableswap.DefaultConfig()
	cfg.OutputIterations = 1
	m, _ := newSeededPool(t, WithSolverConfig(cfg))

	q, err := m.GetDy(0, 2, u(1_000_000_000))
	require.NoError(t, err)
	assert.False(t, q.Converged)
}

func TestSnapshot(t *testing.T) {
	empty, _ := newTestPool(t)
	snap, err := empty.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snap.Invariant)
	assert.True(t, snap.TotalSupply.IsZero())

	m, _ := newSeededPool(t)
	snap, err = m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000000000000", snap.Invariant.Dec())
	assert.Equal(t, "1000000000000000000", snap.VirtualPrice.Dec())
	assert.Equal(t, "3pool", snap.Spec.Name)

	// The snapshot is a copy.
	snap.Balances[0].SetUint64(0)
	assert.Equal(t, "1000000000000", m.Balances()[0].Dec())
}

package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/metrics"
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

// view is an immutable normalized copy of the pool state. The solvers never
// modify their inputs, so one view can back many concurrent quotes.
type view struct {
	xp []*uint256.Int
	d  stableswap.Estimate
}

// viewOf builds a view of balances. Callers hold mu.
func (m *Manager) viewOf(balances []*uint256.Int) (view, error) {
	if m.totalSupply.IsZero() {
		return view{}, ErrEmptyPool
	}
	xp, err := m.xp(balances)
	if err != nil {
		return view{}, err
	}
	d, err := m.invariant(xp)
	if err != nil {
		return view{}, err
	}
	return view{xp: xp, d: d}, nil
}

func (m *Manager) checkPair(i, j int) error {
	if err := m.checkIndex(i); err != nil {
		return err
	}
	if err := m.checkIndex(j); err != nil {
		return err
	}
	if i == j {
		return stableswap.ErrSameIndex
	}
	return nil
}

// quote prices dx of token i for token j against v.
func (m *Manager) quote(v view, i, j int, dx *uint256.Int) (domain.Quote, error) {
	if err := m.checkPair(i, j); err != nil {
		return domain.Quote{}, err
	}
	if dx == nil || dx.IsZero() {
		return domain.Quote{}, ErrZeroAmount
	}

	dxN, err := m.norm.Normalize(i, dx)
	if err != nil {
		return domain.Quote{}, err
	}
	dyN, est, err := m.outputNormalized(v, i, j, dxN)
	if err != nil {
		return domain.Quote{}, err
	}

	fee, err := feeOf(dyN, m.fee)
	if err != nil {
		return domain.Quote{}, err
	}
	net, err := stableswap.Sub(dyN, fee)
	if err != nil {
		return domain.Quote{}, err
	}
	dy, err := m.norm.Denormalize(j, net)
	if err != nil {
		return domain.Quote{}, err
	}
	feeRaw, err := m.norm.Denormalize(j, fee)
	if err != nil {
		return domain.Quote{}, err
	}
	admin, err := feeOf(fee, m.adminFee)
	if err != nil {
		return domain.Quote{}, err
	}
	adminRaw, err := m.norm.Denormalize(j, admin)
	if err != nil {
		return domain.Quote{}, err
	}

	probe := probeSize(v.xp[i])
	probeOut, _, err := m.outputNormalized(v, i, j, probe)
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		I:              i,
		J:              j,
		AmountIn:       new(uint256.Int).Set(dx),
		AmountOut:      dy,
		Fee:            feeRaw,
		AdminFee:       adminRaw,
		PriceImpactBps: CalculatePriceImpact(dxN, dyN, probe, probeOut),
		Invariant:      new(uint256.Int).Set(v.d.Value),
		Iterations:     est.Iterations,
		Converged:      est.Converged && v.d.Converged,
	}, nil
}

// outputNormalized returns the pre-fee output of depositing dxN of token i,
// everything in the reference precision.
func (m *Manager) outputNormalized(v view, i, j int, dxN *uint256.Int) (*uint256.Int, stableswap.Estimate, error) {
	x, err := stableswap.Add(v.xp[i], dxN)
	if err != nil {
		return nil, stableswap.Estimate{}, err
	}
	est, err := m.solveY(v.xp, v.d.Value, stableswap.SwapTarget(i, j, x))
	if err != nil {
		return nil, est, err
	}
	// A solve within tolerance of the current balance yields nothing.
	if !est.Value.Lt(v.xp[j]) {
		return new(uint256.Int), est, nil
	}
	return new(uint256.Int).Sub(v.xp[j], est.Value), est, nil
}

// GetDy quotes how much of token j an exchange of dx of token i returns, after fees.
func (m *Manager) GetDy(i, j int, dx *uint256.Int) (q domain.Quote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("get_dy", start, err) }(time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	var key quoteKey
	if dx != nil {
		key = quoteKey{version: m.version, i: i, j: j, dx: *dx}
		if cached, ok := m.quotes.get(key); ok {
			metrics.QuoteCacheHits.Inc()
			return cached, nil
		}
		metrics.QuoteCacheMisses.Inc()
	}

	v, err := m.viewOf(m.balances)
	if err != nil {
		return domain.Quote{}, err
	}
	q, err = m.quote(v, i, j, dx)
	if err != nil {
		return domain.Quote{}, err
	}
	m.quotes.set(key, q)
	metrics.PriceImpact.WithLabelValues(string(GetPriceImpactSeverity(q.PriceImpactBps))).Observe(float64(q.PriceImpactBps))
	return q, nil
}

// GetDx quotes the deposit of token i needed to receive dy of token j after
// fees. The result is rounded up.
func (m *Manager) GetDx(i, j int, dy *uint256.Int) (q domain.Quote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("get_dx", start, err) }(time.Now())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPair(i, j); err != nil {
		return domain.Quote{}, err
	}
	if dy == nil || dy.IsZero() {
		return domain.Quote{}, ErrZeroAmount
	}
	v, err := m.viewOf(m.balances)
	if err != nil {
		return domain.Quote{}, err
	}

	dyN, err := m.norm.Normalize(j, dy)
	if err != nil {
		return domain.Quote{}, err
	}
	// Gross the output up so that it still covers dy once the fee is taken.
	scaled, err := stableswap.Mul(dyN, feeDenominator)
	if err != nil {
		return domain.Quote{}, err
	}
	grossed, err := ceilDiv(scaled, new(uint256.Int).Sub(feeDenominator, m.fee))
	if err != nil {
		return domain.Quote{}, err
	}
	if !grossed.Lt(v.xp[j]) {
		return domain.Quote{}, fmt.Errorf("%w: %s of token %d requested", ErrInsufficientLiquidity, dy.Dec(), j)
	}
	newY := new(uint256.Int).Sub(v.xp[j], grossed)

	est, err := m.solveY(v.xp, v.d.Value, stableswap.SwapTarget(j, i, newY))
	if err != nil {
		return domain.Quote{}, err
	}
	dx := new(uint256.Int)
	if est.Value.Gt(v.xp[i]) {
		delta := new(uint256.Int).Sub(est.Value, v.xp[i])
		if dx, err = ceilDiv(delta, m.norm.Multiplier(i)); err != nil {
			return domain.Quote{}, err
		}
	}

	fee := new(uint256.Int).Sub(grossed, dyN)
	feeRaw, err := m.norm.Denormalize(j, fee)
	if err != nil {
		return domain.Quote{}, err
	}
	admin, err := feeOf(fee, m.adminFee)
	if err != nil {
		return domain.Quote{}, err
	}
	adminRaw, err := m.norm.Denormalize(j, admin)
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		I:          i,
		J:          j,
		AmountIn:   dx,
		AmountOut:  new(uint256.Int).Set(dy),
		Fee:        feeRaw,
		AdminFee:   adminRaw,
		Invariant:  new(uint256.Int).Set(v.d.Value),
		Iterations: est.Iterations,
		Converged:  est.Converged && v.d.Converged,
	}, nil
}

// QuoteMatrix prices amounts[i] of every token i against every other token,
// concurrently and on one consistent snapshot. The result is indexed [i][j];
// the diagonal is left empty.
func (m *Manager) QuoteMatrix(ctx context.Context, amounts []*uint256.Int) (out [][]domain.Quote, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("quote_matrix", start, err) }(time.Now())

	n := m.spec.N()
	if len(amounts) != n {
		return nil, ErrAmountsLength
	}

	m.mu.RLock()
	v, err := m.viewOf(m.balances)
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out = make([][]domain.Quote, n)
	for i := range out {
		out[i] = make([]domain.Quote, n)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			i, j := i, j
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				q, err := m.quote(v, i, j, amounts[i])
				if err != nil {
					return fmt.Errorf("quote %d->%d: %w", i, j, err)
				}
				out[i][j] = q
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ceilDiv returns ⌈a/b⌉.
func ceilDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, stableswap.ErrZeroDivisor
	}
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(a, b, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}

// Package pool runs a StableSwap pool on top of the numerical core: it owns the
// raw balance ledger, admin fees and liquidity shares, normalizes balances before
// every solver call and converts results back to token units.
package pool

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/stableswap-engine/internal/common"
	"github.com/hxuan190/stableswap-engine/internal/domain"
	"github.com/hxuan190/stableswap-engine/internal/metrics"
	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

var feeDenominator = uint256.NewInt(domain.FeeDenominator)

// Manager is a single pool. Quotes take a read lock and may run concurrently;
// state-changing operations are serialized.
type Manager struct {
	spec   domain.PoolSpec
	norm   *stableswap.Normalizer
	solver *stableswap.Solver
	ledger TransferPort
	log    *common.ServiceLogger

	fee      *uint256.Int
	adminFee *uint256.Int
	// imbalanceFee is the fee charged on deviation from a proportional deposit or
	// withdrawal: Fee·N / (4·(N−1)).
	imbalanceFee *uint256.Int

	quotes *quoteCache

	mu sync.RWMutex
	// version counts state changes; it keys the quote cache.
	version       uint64
	balances      []*uint256.Int
	adminBalances []*uint256.Int
	totalSupply   *uint256.Int
	shares        map[solana.PublicKey]*uint256.Int
}

type options struct {
	solver    stableswap.Config
	logger    zerolog.Logger
	cacheSize int
}

type Option func(*options)

func WithSolverConfig(cfg stableswap.Config) Option {
	return func(o *options) { o.solver = cfg }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQuoteCache sets how many GetDy results are memoized per pool state.
// Zero disables the cache.
func WithQuoteCache(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

func New(spec domain.PoolSpec, ledger TransferPort, opts ...Option) (*Manager, error) {
	o := options{solver: stableswap.DefaultConfig(), logger: log.Logger, cacheSize: DefaultQuoteCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: nil transfer port", stableswap.ErrContractViolation)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	norm, err := stableswap.NewNormalizer(spec.Decimals(), spec.Reference())
	if err != nil {
		return nil, err
	}
	solver, err := stableswap.NewSolver(o.solver)
	if err != nil {
		return nil, err
	}

	n := uint64(spec.N())
	imbalanceFee := uint256.NewInt(spec.Fee)
	imbalanceFee.Mul(imbalanceFee, uint256.NewInt(n))
	imbalanceFee.Div(imbalanceFee, uint256.NewInt(4*(n-1)))

	m := &Manager{
		spec:          spec,
		norm:          norm,
		solver:        solver,
		ledger:        ledger,
		fee:           uint256.NewInt(spec.Fee),
		adminFee:      uint256.NewInt(spec.AdminFee),
		imbalanceFee:  imbalanceFee,
		quotes:        newQuoteCache(o.cacheSize),
		balances:      zeros(spec.N()),
		adminBalances: zeros(spec.N()),
		totalSupply:   new(uint256.Int),
		shares:        make(map[solana.PublicKey]*uint256.Int),
	}
	m.log = common.NewServiceLoggerWith(o.logger, m)
	return m, nil
}

func (m *Manager) ID() string {
	return "pool:" + m.spec.Name
}

func (m *Manager) Spec() domain.PoolSpec {
	return m.spec
}

// SharesOf returns the liquidity shares held by account.
func (m *Manager) SharesOf(account solana.PublicKey) *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.shares[account]; ok {
		return new(uint256.Int).Set(s)
	}
	return new(uint256.Int)
}

func (m *Manager) TotalSupply() *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return new(uint256.Int).Set(m.totalSupply)
}

// Balances returns a copy of the raw pool balances, admin fees excluded.
func (m *Manager) Balances() []*uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.balances)
}

func (m *Manager) AdminBalances() []*uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.adminBalances)
}

func (m *Manager) checkIndex(i int) error {
	if i < 0 || i >= m.spec.N() {
		return fmt.Errorf("%w: index %d, pool has %d tokens", stableswap.ErrIndexOutOfRange, i, m.spec.N())
	}
	return nil
}

// xp normalizes raw balances. Callers hold mu.
func (m *Manager) xp(raw []*uint256.Int) ([]*uint256.Int, error) {
	return m.norm.NormalizeAll(raw)
}

func (m *Manager) invariant(xp []*uint256.Int) (stableswap.Estimate, error) {
	est, err := m.solver.Invariant(xp, m.spec.Amplifier)
	if err != nil {
		return est, err
	}
	metrics.ObserveSolver(metrics.SolverInvariant, est)
	if !est.Converged {
		m.log.Warn().Int("iterations", est.Iterations).Str("d", est.Value.Dec()).Msg("invariant did not converge")
	}
	return est, nil
}

func (m *Manager) solveY(xp []*uint256.Int, d *uint256.Int, target stableswap.Target) (stableswap.Estimate, error) {
	est, err := m.solver.SolveY(xp, m.spec.Amplifier, d, target)
	if err != nil {
		return est, err
	}
	metrics.ObserveSolver(metrics.SolverOutput, est)
	if !est.Converged {
		m.log.Warn().Int("iterations", est.Iterations).Str("mode", target.Mode.String()).Msg("output solver did not converge")
	}
	return est, nil
}

// feeOf returns amount·rate / FeeDenominator.
func feeOf(amount, rate *uint256.Int) (*uint256.Int, error) {
	return stableswap.MulDiv(amount, rate, feeDenominator)
}

func zeros(n int) []*uint256.Int {
	out := make([]*uint256.Int, n)
	for i := range out {
		out[i] = new(uint256.Int)
	}
	return out
}

func clone(values []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = new(uint256.Int).Set(v)
	}
	return out
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hxuan190/stableswap-engine/pkg/stableswap"
)

func TestObserveSolver(t *testing.T) {
	before := testutil.ToFloat64(SolverNonConverged.WithLabelValues(SolverInvariant))

	ObserveSolver(SolverInvariant, stableswap.Estimate{Value: uint256.NewInt(1), Iterations: 3, Converged: true})
	assert.Equal(t, before, testutil.ToFloat64(SolverNonConverged.WithLabelValues(SolverInvariant)))

	ObserveSolver(SolverInvariant, stableswap.Estimate{Value: uint256.NewInt(1), Iterations: 15})
	assert.Equal(t, before+1, testutil.ToFloat64(SolverNonConverged.WithLabelValues(SolverInvariant)))

	assert.Equal(t, 1, testutil.CollectAndCount(SolverIterations, "stableswap_solver_iterations"))
}

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(PoolOperations.WithLabelValues("exchange", "ok"))
	errBefore := testutil.ToFloat64(PoolOperations.WithLabelValues("exchange", "error"))

	ObserveOperation("exchange", time.Now(), nil)
	ObserveOperation("exchange", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(PoolOperations.WithLabelValues("exchange", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(PoolOperations.WithLabelValues("exchange", "error")))
}

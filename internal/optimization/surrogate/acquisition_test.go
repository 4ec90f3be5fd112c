package surrogate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/perfkit/gridtune/internal/optimization"
)

// stubModel returns a fixed mean and standard deviation per query point.
type stubModel struct {
	mean func(x []float64) float64
	std  func(x []float64) float64
}

func (m *stubModel) Fit(X *mat.Dense, y *mat.VecDense) error { return nil }

func (m *stubModel) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	n, _ := X.Dims()
	mean := mat.NewVecDense(n, nil)
	std := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		mean.SetVec(i, m.mean(row))
		std.SetVec(i, m.std(row))
	}
	return mean, std, nil
}

func lineGrid(t *testing.T) *optimization.Grid {
	t.Helper()
	grid, err := optimization.NewGrid([]float64{0, 1, 2, 3, 4})
	require.NoError(t, err)
	return grid
}

func historyWithBest(best float64, at optimization.ParameterVector) *optimization.AggregatedHistory {
	return &optimization.AggregatedHistory{
		Parameters: []optimization.ParameterVector{at},
		Fitness:    []float64{best},
	}
}

func TestExpectedImprovementPicksLowestPredictedMean(t *testing.T) {
	grid := lineGrid(t)
	// Predicted mean decreases along the axis, constant uncertainty: the
	// largest improvement over the incumbent sits at x=4.
	model := &stubModel{
		mean: func(x []float64) float64 { return 10 - 2*x[0] },
		std:  func(x []float64) float64 { return 1.0 },
	}

	ei := &ExpectedImprovement{Xi: 0.01}
	next, err := ei.Propose(model, grid, historyWithBest(6, optimization.ParameterVector{2}), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{4}, next)
}

func TestExpectedImprovementValue(t *testing.T) {
	// Hand-checked against the closed form at a single point:
	// improvement = 6 - 4 - 0 = 2, sigma = 1, z = 2,
	// EI = 2*CDF(2) + PDF(2).
	grid := lineGrid(t)
	model := &stubModel{
		mean: func(x []float64) float64 {
			if x[0] == 3 {
				return 4
			}
			return 100
		},
		std: func(x []float64) float64 { return 1.0 },
	}

	ei := &ExpectedImprovement{Xi: 0}
	next, err := ei.Propose(model, grid, historyWithBest(6, optimization.ParameterVector{0}), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{3}, next)
}

func TestExpectedImprovementZeroSigmaUsesImprovement(t *testing.T) {
	grid := lineGrid(t)
	model := &stubModel{
		mean: func(x []float64) float64 { return 10 - x[0] },
		std:  func(x []float64) float64 { return 0 },
	}

	ei := &ExpectedImprovement{Xi: 0}
	next, err := ei.Propose(model, grid, historyWithBest(8, optimization.ParameterVector{0}), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{4}, next)
}

func TestExpectedImprovementFlatSurfaceFallsBackToRandom(t *testing.T) {
	grid := lineGrid(t)
	// Every prediction is far above the incumbent, so no point improves
	// and the surface is zero everywhere.
	model := &stubModel{
		mean: func(x []float64) float64 { return 100 },
		std:  func(x []float64) float64 { return 1.0 },
	}

	ei := &ExpectedImprovement{Xi: 0}
	next, err := ei.Propose(model, grid, historyWithBest(1, optimization.ParameterVector{0}), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.True(t, grid.Contains(next))
}

func TestProbabilityOfImprovement(t *testing.T) {
	grid := lineGrid(t)
	// Identical means below the incumbent; the point with the smallest
	// uncertainty has the highest probability of improvement.
	model := &stubModel{
		mean: func(x []float64) float64 { return 5 },
		std:  func(x []float64) float64 { return 1 + x[0] },
	}

	pi := &ProbabilityOfImprovement{Xi: 0}
	next, err := pi.Propose(model, grid, historyWithBest(6, optimization.ParameterVector{0}), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{0}, next)
}

func TestMeritMinimizerSnapsToGrid(t *testing.T) {
	grid := lineGrid(t)
	// Quadratic merit with its minimum at x=2.3; the closest grid value
	// is 2.
	model := &stubModel{
		mean: func(x []float64) float64 { return math.Pow(x[0]-2.3, 2) },
		std:  func(x []float64) float64 { return 0.1 },
	}

	mm := &MeritMinimizer{}
	next, err := mm.Propose(model, grid, historyWithBest(4, optimization.ParameterVector{0}), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{2}, next)
}

func TestNewAcquisition(t *testing.T) {
	for name, want := range map[string]string{
		"":                           "expected_improvement",
		"expected_improvement":       "expected_improvement",
		"probability_of_improvement": "probability_of_improvement",
		"merit_minimizer":            "merit_minimizer",
	} {
		acq, err := NewAcquisition(name, 0.01)
		require.NoError(t, err)
		assert.Equal(t, want, acq.Name())
	}

	_, err := NewAcquisition("upper_confidence_bound", 0)
	assert.ErrorContains(t, err, "unknown acquisition")
}

func TestNewAcquisitionXiDefault(t *testing.T) {
	// A zero xi gets the same 0.01 margin the nil-acquisition path applies.
	acq, err := NewAcquisition("", 0)
	require.NoError(t, err)
	require.IsType(t, &ExpectedImprovement{}, acq)
	assert.Equal(t, 0.01, acq.(*ExpectedImprovement).Xi)

	acq, err = NewAcquisition("probability_of_improvement", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.01, acq.(*ProbabilityOfImprovement).Xi)

	acq, err = NewAcquisition("expected_improvement", 0.05)
	require.NoError(t, err)
	assert.Equal(t, 0.05, acq.(*ExpectedImprovement).Xi)
}

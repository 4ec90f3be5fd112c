package surrogate

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Acquisition turns the fitted surrogate into the next point to evaluate.
// Implementations receive the aggregated history so they can read the best
// observed fitness and its parametrization.
type Acquisition interface {
	Propose(model Model, grid *optimization.Grid, history *optimization.AggregatedHistory, rng *rand.Rand) (optimization.ParameterVector, error)
	Name() string
}

// predictGrid evaluates the surrogate over every grid point and returns the
// points with their predicted mean and standard deviation.
func predictGrid(model Model, grid *optimization.Grid) ([]optimization.ParameterVector, *mat.VecDense, *mat.VecDense, error) {
	points := grid.Enumerate()
	X := mat.NewDense(len(points), grid.Dims(), nil)
	for i, p := range points {
		X.SetRow(i, p)
	}
	mean, std, err := model.Predict(X)
	if err != nil {
		return nil, nil, nil, err
	}
	return points, mean, std, nil
}

// argmaxSurface picks the grid point with the highest score. A surface that
// is zero everywhere carries no signal, so the choice falls back to a uniform
// random grid point to keep exploring.
func argmaxSurface(points []optimization.ParameterVector, scores []float64, rng *rand.Rand) optimization.ParameterVector {
	best := 0
	allZero := true
	for i, s := range scores {
		if s != 0 {
			allZero = false
		}
		if s > scores[best] {
			best = i
		}
	}
	if allZero {
		return points[rng.Intn(len(points))].Clone()
	}
	return points[best].Clone()
}

// ExpectedImprovement scores each grid point with
// (f*-mu-xi)*CDF(z) + sigma*PDF(z), z = (f*-mu-xi)/sigma, where f* is the
// best observed fitness, and proposes the maximizer.
type ExpectedImprovement struct {
	// Xi shifts the improvement target below the incumbent; larger values
	// favor exploration.
	Xi float64
}

func (ei *ExpectedImprovement) Propose(model Model, grid *optimization.Grid, history *optimization.AggregatedHistory, rng *rand.Rand) (optimization.ParameterVector, error) {
	points, mean, std, err := predictGrid(model, grid)
	if err != nil {
		return nil, err
	}

	best := history.Fitness[history.ArgBest()]
	normal := distuv.UnitNormal

	scores := make([]float64, len(points))
	for i := range points {
		improvement := best - mean.AtVec(i) - ei.Xi
		if improvement <= 0 {
			continue
		}
		sigma := std.AtVec(i)
		if sigma <= 1e-10 {
			scores[i] = improvement
			continue
		}
		z := improvement / sigma
		scores[i] = improvement*normal.CDF(z) + sigma*normal.Prob(z)
	}

	return argmaxSurface(points, scores, rng), nil
}

func (ei *ExpectedImprovement) Name() string { return "expected_improvement" }

// ProbabilityOfImprovement scores each grid point with CDF((f*-mu-xi)/sigma)
// and proposes the maximizer.
type ProbabilityOfImprovement struct {
	Xi float64
}

func (pi *ProbabilityOfImprovement) Propose(model Model, grid *optimization.Grid, history *optimization.AggregatedHistory, rng *rand.Rand) (optimization.ParameterVector, error) {
	points, mean, std, err := predictGrid(model, grid)
	if err != nil {
		return nil, err
	}

	best := history.Fitness[history.ArgBest()]
	normal := distuv.UnitNormal

	scores := make([]float64, len(points))
	for i := range points {
		improvement := best - mean.AtVec(i) - pi.Xi
		sigma := std.AtVec(i)
		if sigma <= 1e-10 {
			if improvement > 0 {
				scores[i] = 1
			}
			continue
		}
		scores[i] = normal.CDF(improvement / sigma)
	}

	return argmaxSurface(points, scores, rng), nil
}

func (pi *ProbabilityOfImprovement) Name() string { return "probability_of_improvement" }

// MeritMinimizer treats the surrogate's posterior mean as a merit function
// and minimizes it directly with multi-start Nelder-Mead, snapping the
// continuous minimizer back onto the grid.
type MeritMinimizer struct {
	// Restarts is the number of random starting points tried in addition
	// to the best observed parametrization. Zero means a dimension-scaled
	// default.
	Restarts int
}

func (mm *MeritMinimizer) Propose(model Model, grid *optimization.Grid, history *optimization.AggregatedHistory, rng *rand.Rand) (optimization.ParameterVector, error) {
	dims := grid.Dims()
	bounds := grid.Bounds()

	merit := func(x []float64) float64 {
		clamped := make([]float64, dims)
		for i := range x {
			clamped[i] = math.Max(bounds[i][0], math.Min(x[i], bounds[i][1]))
		}
		mean, _, err := model.Predict(mat.NewDense(1, dims, clamped))
		if err != nil {
			return math.Inf(1)
		}
		return mean.AtVec(0)
	}

	restarts := mm.Restarts
	if restarts <= 0 {
		restarts = 5 + int(5*math.Sqrt(float64(dims)))
	}

	starts := make([][]float64, 0, restarts+1)
	starts = append(starts, history.Parameters[history.ArgBest()].Clone())
	for len(starts) < restarts+1 {
		start := make([]float64, dims)
		for i := range start {
			start[i] = bounds[i][0] + rng.Float64()*(bounds[i][1]-bounds[i][0])
		}
		starts = append(starts, start)
	}

	problem := optimize.Problem{Func: merit}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	bestX := starts[0]
	bestVal := math.Inf(1)
	for _, start := range starts {
		method := &optimize.NelderMead{SimplexSize: 0.2}
		result, err := optimize.Minimize(problem, start, settings, method)
		if err != nil {
			continue
		}
		if result.F < bestVal {
			bestVal = result.F
			bestX = result.X
		}
	}
	if math.IsInf(bestVal, 1) {
		return nil, optimization.NewErrorf("MeritMinimizer.Propose",
			"merit minimization failed from all %d starting points", len(starts))
	}

	return grid.Closest(bestX), nil
}

func (mm *MeritMinimizer) Name() string { return "merit_minimizer" }

// NewAcquisition builds a named built-in acquisition rule. A zero xi selects
// the 0.01 exploration margin, the same default New applies when no
// acquisition is configured.
func NewAcquisition(name string, xi float64) (Acquisition, error) {
	if xi == 0 {
		xi = 0.01
	}
	switch name {
	case "", "expected_improvement":
		return &ExpectedImprovement{Xi: xi}, nil
	case "probability_of_improvement":
		return &ProbabilityOfImprovement{Xi: xi}, nil
	case "merit_minimizer":
		return &MeritMinimizer{}, nil
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "acquisition",
			Reason: fmt.Sprintf("unknown acquisition %q", name),
		}
	}
}

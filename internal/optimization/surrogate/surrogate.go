package surrogate

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/kernels"
)

func init() {
	optimization.RegisterHeuristic("surrogate_model", func(cfg interface{}) (optimization.Heuristic, error) {
		c, ok := cfg.(Config)
		if !ok && cfg != nil {
			return nil, &optimization.InvalidParamError{
				Param:  "config",
				Reason: fmt.Sprintf("surrogate_model expects surrogate.Config, got %T", cfg),
			}
		}
		return New(c)
	})
}

// Config holds the surrogate-model search settings.
type Config struct {
	// Model is the regression model fitted on the history each step. Nil
	// selects a Gaussian process with a Matérn 5/2 kernel and a small
	// observation noise.
	Model Model

	// Acquisition selects the next point from the fitted model. Nil
	// selects Expected Improvement.
	Acquisition Acquisition

	// Xi is the exploration margin used when a default acquisition is
	// built. Zero means 0.01.
	Xi float64

	// Seed fixes the random stream used for tie-breaking and flat
	// acquisition surfaces. Zero seeds from the clock.
	Seed int64

	Logger *zap.Logger
}

// Search is the surrogate-model heuristic. Every call refits the model on the
// aggregated history and hands the prediction surface to the acquisition
// rule.
type Search struct {
	model       Model
	acquisition Acquisition
	rng         *rand.Rand
	logger      *zap.Logger

	fits int
}

// New builds the surrogate-model heuristic.
func New(cfg Config) (*Search, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	model := cfg.Model
	if model == nil {
		kernel, err := kernels.NewMatern52(1.0, 1.0)
		if err != nil {
			return nil, err
		}
		model, err = NewGP(kernel, 1e-6, logger)
		if err != nil {
			return nil, err
		}
	}

	acq := cfg.Acquisition
	if acq == nil {
		xi := cfg.Xi
		if xi == 0 {
			xi = 0.01
		}
		acq = &ExpectedImprovement{Xi: xi}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Search{
		model:       model,
		acquisition: acq,
		rng:         rand.New(rand.NewSource(seed)),
		logger:      logger.Named("surrogate_search"),
	}, nil
}

// ChooseNext refits the model on the pooled history and proposes the point
// the acquisition rule scores best.
func (s *Search) ChooseNext(history *optimization.AggregatedHistory, grid *optimization.Grid) (optimization.ParameterVector, error) {
	const op = "Search.ChooseNext"

	if history.Len() == 0 {
		return nil, optimization.NewErrorf(op, "cannot fit a surrogate on an empty history")
	}

	X := mat.NewDense(history.Len(), grid.Dims(), nil)
	y := mat.NewVecDense(history.Len(), nil)
	for i, p := range history.Parameters {
		X.SetRow(i, p)
		y.SetVec(i, history.Fitness[i])
	}

	if err := s.model.Fit(X, y); err != nil {
		return nil, optimization.WrapError(err, op)
	}
	s.fits++

	next, err := s.acquisition.Propose(s.model, grid, history, s.rng)
	if err != nil {
		return nil, optimization.WrapError(err, op)
	}

	s.logger.Debug("proposed next parametrization",
		zap.String("acquisition", s.acquisition.Name()),
		zap.Int("history_size", history.Len()),
		zap.Any("point", next),
	)

	return next, nil
}

// Summary describes the configured model and acquisition rule.
func (s *Search) Summary() string {
	return fmt.Sprintf("surrogate model search: acquisition=%s, fits=%d",
		s.acquisition.Name(), s.fits)
}

// Reset clears the fitted state so the instance can drive a fresh run.
func (s *Search) Reset() {
	s.fits = 0
}

// Package engine drives the optimization loop: initialization draws, the
// heuristic feedback phase, resampling, optional pruning and stop-criteria
// checks, ending in a terminal state with the best observed parametrization.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/resampling"
	"github.com/perfkit/gridtune/internal/optimization/stop"
)

// State is the loop's lifecycle position. Exhausted, StoppedEarly and Failed
// are terminal.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateIterating    State = "iterating"
	StateExhausted    State = "exhausted"
	StateStoppedEarly State = "stopped_early"
	StateFailed       State = "failed"
)

// Config is the construction-time configuration of one experiment. Every
// field is validated by New before any evaluation runs.
type Config struct {
	// Grid is the discrete search space.
	Grid *optimization.Grid

	// Evaluator is the black-box under tuning.
	Evaluator optimization.Evaluator

	// Heuristic names the registered search strategy; HeuristicConfig is
	// its variant-specific configuration structure.
	Heuristic       string
	HeuristicConfig interface{}

	// InitialSampleSize is the number of initialization draws;
	// InitialDraw selects the draw strategy (default uniform random).
	InitialSampleSize int
	InitialDraw       DrawStrategy

	// MaxIteration bounds the feedback phase; Timeout, when positive,
	// bounds the whole experiment.
	MaxIteration int
	Timeout      time.Duration

	// Estimator reduces raw observations to one fitness value, for both
	// aggregation and reporting. Nil means the mean.
	Estimator optimization.Estimator

	// Resampling decides how many observations each parametrization gets.
	// Nil means a single sample.
	Resampling resampling.Policy

	// Pruning enables the step-cost supervisor; MaxStepCost is the bound
	// above which an in-flight evaluation is truncated, and PollInterval
	// the monitor cadence (default 100ms).
	Pruning      bool
	MaxStepCost  float64
	PollInterval time.Duration

	// StopCriterion optionally ends the run before the budget.
	StopCriterion stop.Criterion

	// Seed fixes the initialization draws. Zero seeds from the clock.
	Seed int64

	Logger  *zap.Logger
	Metrics *Metrics
}

// Engine is one experiment instance. It is single-threaded: Optimize runs
// the whole state machine on the calling goroutine and only the pruning
// supervisor uses a background goroutine.
type Engine struct {
	cfg       Config
	grid      *optimization.Grid
	evaluator optimization.Evaluator
	heuristic optimization.Heuristic
	estimator optimization.Estimator
	policy    resampling.Policy
	pruner    *pruner
	rng       *rand.Rand
	logger    *zap.Logger
	metrics   *Metrics

	history   *optimization.History
	state     State
	stoppedBy string
	started   time.Time
	elapsed   time.Duration
}

// New validates the configuration and builds the engine. Construction errors
// name the offending parameter.
func New(cfg Config) (*Engine, error) {
	if cfg.Grid == nil {
		return nil, &optimization.InvalidParamError{Param: "grid", Reason: "must not be nil"}
	}
	if cfg.Evaluator == nil {
		return nil, &optimization.InvalidParamError{Param: "evaluator", Reason: "must not be nil"}
	}
	if cfg.InitialSampleSize < 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "initial_sample_size",
			Reason: fmt.Sprintf("must be at least 1, got %d", cfg.InitialSampleSize),
		}
	}
	if cfg.MaxIteration < 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "max_iteration",
			Reason: fmt.Sprintf("must be at least 1, got %d", cfg.MaxIteration),
		}
	}
	if cfg.Timeout < 0 {
		return nil, &optimization.InvalidParamError{Param: "timeout", Reason: "must not be negative"}
	}
	if cfg.Pruning && cfg.MaxStepCost <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "max_step_cost",
			Reason: "must be strictly positive when pruning is enabled",
		}
	}

	heuristic, err := optimization.NewHeuristic(cfg.Heuristic, cfg.HeuristicConfig)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine")

	estimator := cfg.Estimator
	if estimator == nil {
		estimator = optimization.Mean
	}

	policy := cfg.Resampling
	if policy == nil {
		policy, _ = resampling.NewStatic(1)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:       cfg,
		grid:      cfg.Grid,
		evaluator: cfg.Evaluator,
		heuristic: heuristic,
		estimator: estimator,
		policy:    policy,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
		metrics:   cfg.Metrics,
		history:   optimization.NewHistory(cfg.InitialSampleSize + cfg.MaxIteration),
		state:     StateIdle,
	}
	if cfg.Pruning {
		e.pruner = newPruner(cfg.MaxStepCost, cfg.PollInterval, logger)
	}
	return e, nil
}

// Result is the outcome of one experiment run.
type Result struct {
	BestParameters optimization.ParameterVector `json:"best_parameters"`
	BestFitness    float64                      `json:"best_fitness"`
	Trials         []optimization.Trial         `json:"trials"`
	State          State                        `json:"state"`
	StoppedBy      string                       `json:"stopped_by,omitempty"`
	Summary        Summary                      `json:"summary"`
}

// Optimize drives the state machine to a terminal state. The accumulated
// history is preserved in the result even when the run fails.
func (e *Engine) Optimize(ctx context.Context) (*Result, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	e.started = time.Now()
	defer func() { e.elapsed = time.Since(e.started) }()

	e.logger.Info("starting optimization",
		zap.String("heuristic", e.cfg.Heuristic),
		zap.Int("initial_sample_size", e.cfg.InitialSampleSize),
		zap.Int("max_iteration", e.cfg.MaxIteration),
		zap.Int("grid_size", e.grid.Size()),
	)

	if err := e.initialize(ctx); err != nil {
		return e.finish(err)
	}
	err := e.iterate(ctx)
	return e.finish(err)
}

// initialize draws and evaluates the starting points. Pruning stays inactive
// during initialization so every starting point yields a real measurement.
func (e *Engine) initialize(ctx context.Context) error {
	e.state = StateInitializing

	points, err := drawInitial(e.cfg.InitialDraw, e.grid, e.cfg.InitialSampleSize, e.rng)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := e.runTrial(ctx, p, true, false); err != nil {
			return err
		}
	}
	return nil
}

// iterate runs the feedback phase until the budget is exhausted or a stop
// criterion fires.
func (e *Engine) iterate(ctx context.Context) error {
	e.state = StateIterating

	for i := 0; i < e.cfg.MaxIteration; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		aggregated := optimization.Aggregate(e.history, e.estimator)
		next, err := e.heuristic.ChooseNext(aggregated, e.grid)
		if err != nil {
			return err
		}
		if !e.grid.Contains(next) {
			return optimization.NewErrorf("Engine.iterate",
				"heuristic proposed off-grid point %v", next)
		}

		if err := e.runTrial(ctx, next, false, e.cfg.Pruning); err != nil {
			return err
		}

		if e.cfg.StopCriterion != nil && e.cfg.StopCriterion.ShouldStop(e.history) {
			e.stoppedBy = e.cfg.StopCriterion.Name()
			if composite, ok := e.cfg.StopCriterion.(*stop.Any); ok {
				e.stoppedBy = composite.Triggered()
			}
			e.state = StateStoppedEarly
			e.logger.Info("stop criterion fired",
				zap.String("criterion", e.stoppedBy),
				zap.Int("trials", e.history.Len()),
			)
			return nil
		}
	}

	e.state = StateExhausted
	return nil
}

// runTrial evaluates one parametrization under the resampling policy and
// appends the resulting trial. A truncated observation ends resampling for
// the point immediately.
func (e *Engine) runTrial(ctx context.Context, params optimization.ParameterVector, initialization, pruned bool) error {
	start := time.Now()

	var samples []float64
	truncated := false
	for {
		var value float64
		var err error
		if pruned {
			value, truncated, err = e.pruner.supervise(ctx, e.evaluator, params)
		} else {
			value, err = e.evaluator.Evaluate(ctx, params)
		}
		if err != nil {
			return err
		}
		samples = append(samples, value)
		if truncated || e.policy.Done(samples) {
			break
		}
	}

	trial := optimization.Trial{
		Parameters:        params.Clone(),
		RawObservations:   samples,
		AggregatedFitness: e.estimator(samples),
		Truncated:         truncated,
		Initialization:    initialization,
		Resampled:         len(samples) > 1,
	}
	e.history.Append(trial)

	if e.metrics != nil {
		e.metrics.Trials.Inc()
		e.metrics.TrialDuration.Observe(time.Since(start).Seconds())
		if truncated {
			e.metrics.Truncated.Inc()
		}
		if len(samples) > 1 {
			e.metrics.Resamples.Add(float64(len(samples) - 1))
		}
	}

	e.logger.Debug("trial recorded",
		zap.Any("parameters", trial.Parameters),
		zap.Float64("fitness", trial.AggregatedFitness),
		zap.Int("samples", len(samples)),
		zap.Bool("truncated", truncated),
		zap.Bool("initialization", initialization),
	)
	return nil
}

// finish resolves the terminal state and builds the result. Cancellation and
// timeout end the run early but keep its partial results; evaluator errors
// fail it, also with history preserved.
func (e *Engine) finish(err error) (*Result, error) {
	e.elapsed = time.Since(e.started)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.state = StateStoppedEarly
			e.stoppedBy = "timeout"
		} else if errors.Is(err, context.Canceled) {
			e.state = StateStoppedEarly
			e.stoppedBy = "canceled"
		} else {
			e.state = StateFailed
			e.logger.Error("optimization failed",
				zap.Error(err),
				zap.Int("trials", e.history.Len()),
			)
			return e.result(), optimization.WrapError(err, "Engine.Optimize")
		}
	}

	res := e.result()
	e.logger.Info("optimization finished",
		zap.String("state", string(e.state)),
		zap.String("stopped_by", e.stoppedBy),
		zap.Int("trials", e.history.Len()),
		zap.Float64("best_fitness", res.BestFitness),
		zap.Duration("elapsed", e.elapsed),
	)
	return res, nil
}

func (e *Engine) result() *Result {
	best, fitness, _ := e.history.Best(e.estimator)
	return &Result{
		BestParameters: best,
		BestFitness:    fitness,
		Trials:         e.history.Trials(),
		State:          e.state,
		StoppedBy:      e.stoppedBy,
		Summary:        e.Summarize(),
	}
}

// State returns the loop's current lifecycle position.
func (e *Engine) State() State { return e.state }

// History returns the trial log accumulated so far.
func (e *Engine) History() *optimization.History { return e.history }

// Summary condenses one run for reporting.
type Summary struct {
	Trials           int           `json:"trials"`
	Iterations       int           `json:"iterations"`
	Elapsed          time.Duration `json:"elapsed"`
	Heuristic        string        `json:"heuristic"`
	ResamplingPolicy string        `json:"resampling_policy"`
	TotalResamples   int           `json:"total_resamples"`
	TruncatedTrials  int           `json:"truncated_trials"`
	ExploredRatio    float64       `json:"explored_ratio"`
	StaticMoveRatio  float64       `json:"static_move_ratio"`
	IterationsToBest int           `json:"iterations_to_best"`
}

// Summarize reports iteration counts, elapsed time, the heuristic's own
// summary and resampling, pruning and exploration statistics.
func (e *Engine) Summarize() Summary {
	s := Summary{
		Trials:           e.history.Len(),
		Elapsed:          e.elapsed,
		Heuristic:        e.heuristic.Summary(),
		ResamplingPolicy: e.policy.Name(),
	}

	trials := e.history.Trials()
	distinct := make(map[string]struct{}, len(trials))
	bestFitness := 0.0
	for i, t := range trials {
		if !t.Initialization {
			s.Iterations++
		}
		if t.Truncated {
			s.TruncatedTrials++
		}
		if len(t.RawObservations) > 1 {
			s.TotalResamples += len(t.RawObservations) - 1
		}
		distinct[t.Parameters.Key()] = struct{}{}
		if i > 0 && t.Parameters.Equal(trials[i-1].Parameters) {
			s.StaticMoveRatio++
		}
		if i == 0 || t.AggregatedFitness < bestFitness {
			bestFitness = t.AggregatedFitness
			s.IterationsToBest = i + 1
		}
	}
	if len(trials) > 1 {
		s.StaticMoveRatio /= float64(len(trials) - 1)
	}
	if size := e.grid.Size(); size > 0 {
		s.ExploredRatio = float64(len(distinct)) / float64(size)
	}
	return s
}

// Package experiment translates declarative experiment descriptions, as
// posted to the API or read from a CLI file, into a runnable engine
// configuration.
package experiment

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/annealing"
	"github.com/perfkit/gridtune/internal/optimization/engine"
	"github.com/perfkit/gridtune/internal/optimization/genetic"
	"github.com/perfkit/gridtune/internal/optimization/gridsearch"
	"github.com/perfkit/gridtune/internal/optimization/kernels"
	"github.com/perfkit/gridtune/internal/optimization/resampling"
	"github.com/perfkit/gridtune/internal/optimization/stop"
	"github.com/perfkit/gridtune/internal/optimization/surrogate"
)

// Duration wraps time.Duration so specs can carry values like "30s" in both
// JSON and YAML.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return &optimization.InvalidParamError{
			Param:  "duration",
			Reason: fmt.Sprintf("cannot parse %q: %v", s, err),
		}
	}
	*d = Duration(parsed)
	return nil
}

// Dimension describes one axis of the search grid, either as an explicit
// value list or as an arithmetic range.
type Dimension struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Min    float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Step   float64   `json:"step,omitempty" yaml:"step,omitempty"`
}

func (d Dimension) domain() ([]float64, error) {
	if len(d.Values) > 0 {
		return d.Values, nil
	}
	if d.Step <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "grid",
			Reason: fmt.Sprintf("dimension %q needs values or a positive step", d.Name),
		}
	}
	if d.Max < d.Min {
		return nil, &optimization.InvalidParamError{
			Param:  "grid",
			Reason: fmt.Sprintf("dimension %q has max below min", d.Name),
		}
	}
	var values []float64
	for v := d.Min; v <= d.Max+1e-9; v += d.Step {
		values = append(values, v)
	}
	return values, nil
}

// AnnealingSpec configures the simulated-annealing heuristic.
type AnnealingSpec struct {
	InitialTemperature float64 `json:"initial_temperature" yaml:"initial_temperature"`
	Cooling            string  `json:"cooling" yaml:"cooling"`
	Alpha              float64 `json:"alpha" yaml:"alpha"`
	Restart            string  `json:"restart,omitempty" yaml:"restart,omitempty"`
	RestartProbability float64 `json:"restart_probability,omitempty" yaml:"restart_probability,omitempty"`
	RestartThreshold   float64 `json:"restart_threshold,omitempty" yaml:"restart_threshold,omitempty"`
	MaxRestart         int     `json:"max_restart,omitempty" yaml:"max_restart,omitempty"`
	Seed               int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// GeneticSpec configures the genetic-algorithm heuristic.
type GeneticSpec struct {
	Selection      string  `json:"selection" yaml:"selection"`
	PoolSize       int     `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	MatingPoolSize int     `json:"mating_pool_size,omitempty" yaml:"mating_pool_size,omitempty"`
	Elitism        bool    `json:"elitism,omitempty" yaml:"elitism,omitempty"`
	Crossover      string  `json:"crossover" yaml:"crossover"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate"`
	MaxRepeat      int     `json:"max_repeat,omitempty" yaml:"max_repeat,omitempty"`
	Seed           int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// SurrogateSpec configures the surrogate-model heuristic.
type SurrogateSpec struct {
	Kernel         string  `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	LengthScale    float64 `json:"length_scale,omitempty" yaml:"length_scale,omitempty"`
	SignalVariance float64 `json:"signal_variance,omitempty" yaml:"signal_variance,omitempty"`
	NoiseVariance  float64 `json:"noise_variance,omitempty" yaml:"noise_variance,omitempty"`
	Acquisition    string  `json:"acquisition,omitempty" yaml:"acquisition,omitempty"`
	Xi             float64 `json:"xi,omitempty" yaml:"xi,omitempty"`
	Seed           int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// ResamplingSpec selects how often each parametrization is re-evaluated.
type ResamplingSpec struct {
	Policy     string  `json:"policy" yaml:"policy"`
	Count      int     `json:"count,omitempty" yaml:"count,omitempty"`
	Percentage float64 `json:"percentage,omitempty" yaml:"percentage,omitempty"`
}

// PruningSpec enables the step-cost supervisor.
type PruningSpec struct {
	MaxStepCost  float64  `json:"max_step_cost" yaml:"max_step_cost"`
	PollInterval Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

// StopSpec describes one early-stop criterion. Several specs combine into a
// composite that fires on the first trigger.
type StopSpec struct {
	Criterion string  `json:"criterion" yaml:"criterion"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Window    int     `json:"window,omitempty" yaml:"window,omitempty"`
	Count     int     `json:"count,omitempty" yaml:"count,omitempty"`
	Distance  float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// Spec is one complete experiment description.
type Spec struct {
	Name      string      `json:"name,omitempty" yaml:"name,omitempty"`
	Objective string      `json:"objective" yaml:"objective"`
	Grid      []Dimension `json:"grid" yaml:"grid"`

	Heuristic string `json:"heuristic" yaml:"heuristic"`

	InitialSampleSize int      `json:"initial_sample_size" yaml:"initial_sample_size"`
	InitialDraw       string   `json:"initial_draw,omitempty" yaml:"initial_draw,omitempty"`
	MaxIteration      int      `json:"max_iteration" yaml:"max_iteration"`
	Timeout           Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Estimator         string   `json:"estimator,omitempty" yaml:"estimator,omitempty"`
	Seed              int64    `json:"seed,omitempty" yaml:"seed,omitempty"`

	Annealing  *AnnealingSpec  `json:"simulated_annealing,omitempty" yaml:"simulated_annealing,omitempty"`
	Genetic    *GeneticSpec    `json:"genetic_algorithm,omitempty" yaml:"genetic_algorithm,omitempty"`
	Surrogate  *SurrogateSpec  `json:"surrogate_model,omitempty" yaml:"surrogate_model,omitempty"`
	Resampling *ResamplingSpec `json:"resampling,omitempty" yaml:"resampling,omitempty"`
	Pruning    *PruningSpec    `json:"pruning,omitempty" yaml:"pruning,omitempty"`
	Stop       []StopSpec      `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// BuildGrid materializes the declared dimensions into the discrete search
// space.
func (s *Spec) BuildGrid() (*optimization.Grid, error) {
	if len(s.Grid) == 0 {
		return nil, &optimization.InvalidParamError{Param: "grid", Reason: "needs at least one dimension"}
	}
	domains := make([][]float64, len(s.Grid))
	for i, dim := range s.Grid {
		domain, err := dim.domain()
		if err != nil {
			return nil, err
		}
		domains[i] = domain
	}
	return optimization.NewGrid(domains...)
}

func (s *Spec) heuristicConfig(logger *zap.Logger) (interface{}, error) {
	switch s.Heuristic {
	case "", "random_search", "exhaustive_search":
		return gridsearch.Config{Seed: s.Seed}, nil

	case "simulated_annealing":
		a := s.Annealing
		if a == nil {
			return nil, &optimization.InvalidParamError{
				Param:  "simulated_annealing",
				Reason: "settings are required for this heuristic",
			}
		}
		schedule, err := buildSchedule(a.Cooling, a.Alpha)
		if err != nil {
			return nil, err
		}
		restart, err := buildRestart(a)
		if err != nil {
			return nil, err
		}
		return annealing.Config{
			InitialTemperature: a.InitialTemperature,
			Schedule:           schedule,
			Restart:            restart,
			MaxRestart:         a.MaxRestart,
			Seed:               a.Seed,
		}, nil

	case "genetic_algorithm":
		g := s.Genetic
		if g == nil {
			return nil, &optimization.InvalidParamError{
				Param:  "genetic_algorithm",
				Reason: "settings are required for this heuristic",
			}
		}
		selection, err := buildSelection(g)
		if err != nil {
			return nil, err
		}
		crossover, err := buildCrossover(g.Crossover)
		if err != nil {
			return nil, err
		}
		return genetic.Config{
			Selection:    selection,
			Crossover:    crossover,
			MutationRate: g.MutationRate,
			MaxRepeat:    g.MaxRepeat,
			Seed:         g.Seed,
		}, nil

	case "surrogate_model":
		sm := s.Surrogate
		if sm == nil {
			sm = &SurrogateSpec{}
		}
		model, err := buildModel(sm, logger)
		if err != nil {
			return nil, err
		}
		acquisition, err := surrogate.NewAcquisition(sm.Acquisition, sm.Xi)
		if err != nil {
			return nil, err
		}
		return surrogate.Config{
			Model:       model,
			Acquisition: acquisition,
			Seed:        sm.Seed,
			Logger:      logger,
		}, nil

	default:
		// Leave unknown names to the heuristic registry so its error
		// lists the registered alternatives.
		return nil, nil
	}
}

func buildSchedule(name string, alpha float64) (annealing.Schedule, error) {
	switch name {
	case "", "exponential":
		return annealing.NewExponential(alpha)
	case "logarithmic":
		return annealing.NewLogarithmic(alpha)
	case "linear":
		return annealing.NewLinear(alpha)
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "cooling",
			Reason: fmt.Sprintf("unknown schedule %q", name),
		}
	}
}

func buildRestart(a *AnnealingSpec) (annealing.Restart, error) {
	switch a.Restart {
	case "":
		return nil, nil
	case "random":
		return annealing.NewRandomRestart(a.RestartProbability)
	case "threshold":
		return annealing.NewThresholdRestart(a.RestartThreshold)
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "restart",
			Reason: fmt.Sprintf("unknown restart strategy %q", a.Restart),
		}
	}
}

func buildSelection(g *GeneticSpec) (genetic.Selection, error) {
	switch g.Selection {
	case "", "tournament":
		poolSize := g.PoolSize
		if poolSize == 0 {
			poolSize = 2
		}
		return &genetic.Tournament{
			PoolSize:       poolSize,
			MatingPoolSize: g.MatingPoolSize,
			Elitism:        g.Elitism,
		}, nil
	case "roulette_wheel":
		return &genetic.RouletteWheel{
			MatingPoolSize: g.MatingPoolSize,
			Elitism:        g.Elitism,
		}, nil
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "selection",
			Reason: fmt.Sprintf("unknown selection %q", g.Selection),
		}
	}
}

func buildCrossover(name string) (genetic.Crossover, error) {
	switch name {
	case "", "single_point":
		return genetic.SinglePoint{}, nil
	case "double_point":
		return genetic.DoublePoint{}, nil
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "crossover",
			Reason: fmt.Sprintf("unknown crossover %q", name),
		}
	}
}

func buildModel(sm *SurrogateSpec, logger *zap.Logger) (surrogate.Model, error) {
	if sm.Kernel == "" && sm.NoiseVariance == 0 {
		// Package defaults apply.
		return nil, nil
	}
	lengthScale := sm.LengthScale
	if lengthScale == 0 {
		lengthScale = 1
	}
	signalVar := sm.SignalVariance
	if signalVar == 0 {
		signalVar = 1
	}
	var kernel kernels.Kernel
	var err error
	switch sm.Kernel {
	case "", "matern52":
		kernel, err = kernels.NewMatern52(lengthScale, signalVar)
	case "rbf":
		kernel, err = kernels.NewRBF(lengthScale, signalVar)
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "kernel",
			Reason: fmt.Sprintf("unknown kernel %q", sm.Kernel),
		}
	}
	if err != nil {
		return nil, err
	}
	noiseVar := sm.NoiseVariance
	if noiseVar == 0 {
		noiseVar = 1e-6
	}
	return surrogate.NewGP(kernel, noiseVar, logger)
}

func buildResampling(spec *ResamplingSpec) (resampling.Policy, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Policy {
	case "static":
		return resampling.NewStatic(spec.Count)
	case "dynamic":
		return resampling.NewDynamic(spec.Percentage)
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "resampling",
			Reason: fmt.Sprintf("unknown policy %q", spec.Policy),
		}
	}
}

func buildEstimator(name string) (optimization.Estimator, error) {
	switch name {
	case "":
		return nil, nil
	case "mean":
		return optimization.Mean, nil
	case "median":
		return optimization.Median, nil
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "estimator",
			Reason: fmt.Sprintf("unknown estimator %q", name),
		}
	}
}

func buildStop(specs []StopSpec, estimator optimization.Estimator) (stop.Criterion, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	criteria := make([]stop.Criterion, 0, len(specs))
	for _, spec := range specs {
		var criterion stop.Criterion
		var err error
		switch spec.Criterion {
		case "improvement":
			criterion, err = stop.NewImprovement(spec.Threshold, spec.Window, estimator)
		case "count_movement":
			criterion, err = stop.NewCountMovement(spec.Count, spec.Window)
		case "distance_movement":
			criterion, err = stop.NewDistanceMovement(spec.Distance, spec.Window)
		default:
			err = &optimization.InvalidParamError{
				Param:  "stop",
				Reason: fmt.Sprintf("unknown criterion %q", spec.Criterion),
			}
		}
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}
	if len(criteria) == 1 {
		return criteria[0], nil
	}
	return stop.NewAny(criteria...), nil
}

// Build assembles the engine configuration for this spec around the given
// evaluator. The evaluator is passed in so callers control how the objective
// is instantiated and instrumented.
func (s *Spec) Build(evaluator optimization.Evaluator, logger *zap.Logger, metrics *engine.Metrics) (engine.Config, error) {
	grid, err := s.BuildGrid()
	if err != nil {
		return engine.Config{}, err
	}

	heuristicCfg, err := s.heuristicConfig(logger)
	if err != nil {
		return engine.Config{}, err
	}

	estimator, err := buildEstimator(s.Estimator)
	if err != nil {
		return engine.Config{}, err
	}

	policy, err := buildResampling(s.Resampling)
	if err != nil {
		return engine.Config{}, err
	}

	criterion, err := buildStop(s.Stop, estimator)
	if err != nil {
		return engine.Config{}, err
	}

	heuristic := s.Heuristic
	if heuristic == "" {
		heuristic = "random_search"
	}

	cfg := engine.Config{
		Grid:              grid,
		Evaluator:         evaluator,
		Heuristic:         heuristic,
		HeuristicConfig:   heuristicCfg,
		InitialSampleSize: s.InitialSampleSize,
		InitialDraw:       engine.DrawStrategy(s.InitialDraw),
		MaxIteration:      s.MaxIteration,
		Timeout:           time.Duration(s.Timeout),
		Estimator:         estimator,
		Resampling:        policy,
		StopCriterion:     criterion,
		Seed:              s.Seed,
		Logger:            logger,
		Metrics:           metrics,
	}
	if s.Pruning != nil {
		cfg.Pruning = true
		cfg.MaxStepCost = s.Pruning.MaxStepCost
		cfg.PollInterval = time.Duration(s.Pruning.PollInterval)
	}
	return cfg, nil
}

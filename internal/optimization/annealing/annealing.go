// Package annealing implements simulated annealing: a random walk on the
// grid that accepts worse points with a probability driven by a decreasing
// temperature, following the Metropolis criterion.
package annealing

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/perfkit/gridtune/internal/optimization"
)

func init() {
	optimization.RegisterHeuristic("simulated_annealing", func(cfg interface{}) (optimization.Heuristic, error) {
		switch c := cfg.(type) {
		case Config:
			return New(c)
		case *Config:
			return New(*c)
		default:
			return nil, &optimization.InvalidParamError{
				Param:  "heuristic_config",
				Reason: fmt.Sprintf("expected annealing.Config, got %T", cfg),
			}
		}
	})
}

// Config holds every recognized simulated-annealing option.
type Config struct {
	// InitialTemperature is T_0, required and non-negative.
	InitialTemperature float64
	// Schedule cools the system each step. Required.
	Schedule Schedule
	// Neighbor generates the next candidate. Defaults to RandomWalk.
	Neighbor Neighbor
	// Restart optionally reheats the system. Nil disables restarts.
	Restart Restart
	// MaxRestart caps how many restarts may fire. Defaults to 5 when a
	// restart function is set.
	MaxRestart int
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
}

// SimulatedAnnealing walks the grid, tracking the accepted point and the
// system temperature between calls.
type SimulatedAnnealing struct {
	cfg Config
	rng *rand.Rand

	currentT   float64
	iteration  int
	restarts   int
	hasCurrent bool
	current    optimization.ParameterVector
	currentFit float64

	energies     []float64
	temperatures []float64
}

// New validates the configuration and builds the heuristic.
func New(cfg Config) (*SimulatedAnnealing, error) {
	if cfg.InitialTemperature < 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "initial_temperature",
			Reason: "must be non-negative",
		}
	}
	if cfg.Schedule == nil {
		return nil, &optimization.InvalidParamError{
			Param:  "cooling_schedule",
			Reason: "is required",
		}
	}
	if cfg.Neighbor == nil {
		cfg.Neighbor = RandomWalk{}
	}
	if cfg.Restart != nil && cfg.MaxRestart == 0 {
		cfg.MaxRestart = 5
	}
	if cfg.MaxRestart < 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "max_restart",
			Reason: "must be non-negative",
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedAnnealing{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		currentT: cfg.InitialTemperature,
	}, nil
}

// ChooseNext implements optimization.Heuristic. The candidate under judgment
// is the most recently evaluated point; it replaces the accepted point when
// it improves on it, or with probability exp((current-candidate)/T)
// otherwise. The proposal is then a grid neighbor of the accepted point.
func (sa *SimulatedAnnealing) ChooseNext(history *optimization.AggregatedHistory, grid *optimization.Grid) (optimization.ParameterVector, error) {
	if history.Raw == nil || history.Raw.Len() == 0 {
		return nil, optimization.NewErrorf("annealing.ChooseNext", "history is empty")
	}

	sa.temperatures = append(sa.temperatures, sa.currentT)
	sa.currentT = sa.cfg.Schedule.Temperature(sa.cfg.InitialTemperature, sa.iteration)

	candidate := history.Raw.Last().Parameters
	candidateFit := pooledFitness(history, candidate)
	if !sa.hasCurrent {
		sa.seedCurrent(history)
	}

	acceptance := math.Exp((sa.currentFit - candidateFit) / sa.currentT)
	switch {
	case candidateFit <= sa.currentFit:
		sa.accept(candidate, candidateFit)
		sa.energies = append(sa.energies, 0)
	default:
		sa.energies = append(sa.energies, acceptance)
		if sa.rng.Float64() < acceptance {
			sa.accept(candidate, candidateFit)
		}
	}

	next, err := sa.cfg.Neighbor.Next(sa.rng, grid, sa.current)
	if err != nil {
		return nil, err
	}
	sa.iteration++

	if sa.cfg.Restart != nil && sa.restarts < sa.cfg.MaxRestart {
		if fire, resetT := sa.cfg.Restart.Check(sa.rng, acceptance, sa.cfg.InitialTemperature); fire {
			sa.currentT = resetT
			sa.restarts++
			best := history.ArgBest()
			next = history.Parameters[best].Clone()
			sa.accept(next, history.Fitness[best])
		}
	}
	return next, nil
}

// seedCurrent picks the starting point of the walk: the second-to-last
// distinct point when one exists, otherwise the only point seen so far.
func (sa *SimulatedAnnealing) seedCurrent(history *optimization.AggregatedHistory) {
	idx := history.Len() - 1
	if history.Len() >= 2 {
		idx = history.Len() - 2
	}
	sa.accept(history.Parameters[idx], history.Fitness[idx])
}

func (sa *SimulatedAnnealing) accept(point optimization.ParameterVector, fitness float64) {
	sa.current = point.Clone()
	sa.currentFit = fitness
	sa.hasCurrent = true
}

func pooledFitness(history *optimization.AggregatedHistory, point optimization.ParameterVector) float64 {
	for i, p := range history.Parameters {
		if p.Equal(point) {
			return history.Fitness[i]
		}
	}
	// The last trial is always part of the aggregated view; this is
	// unreachable for well-formed histories.
	return math.Inf(1)
}

// Temperature returns the current system temperature.
func (sa *SimulatedAnnealing) Temperature() float64 { return sa.currentT }

// Restarts returns how many restarts have fired.
func (sa *SimulatedAnnealing) Restarts() int { return sa.restarts }

// Summary implements optimization.Heuristic.
func (sa *SimulatedAnnealing) Summary() string {
	s := fmt.Sprintf("simulated annealing: %d steps, final temperature %.4f", sa.iteration, sa.currentT)
	if sa.cfg.Restart != nil {
		s += fmt.Sprintf(", %d/%d restarts", sa.restarts, sa.cfg.MaxRestart)
	}
	return s
}

// Reset implements optimization.Heuristic.
func (sa *SimulatedAnnealing) Reset() {
	sa.currentT = sa.cfg.InitialTemperature
	sa.iteration = 0
	sa.restarts = 0
	sa.hasCurrent = false
	sa.current = nil
	sa.currentFit = 0
	sa.energies = nil
	sa.temperatures = nil
}

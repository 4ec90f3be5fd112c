// Package genetic implements the genetic-algorithm heuristic: selection of
// two fit parents from the trial history, crossover, and probabilistic
// mutation. The population is the history itself; nothing is carried between
// calls except bookkeeping.
package genetic

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/perfkit/gridtune/internal/optimization"
)

func init() {
	optimization.RegisterHeuristic("genetic_algorithm", func(cfg interface{}) (optimization.Heuristic, error) {
		switch c := cfg.(type) {
		case Config:
			return New(c)
		case *Config:
			return New(*c)
		default:
			return nil, &optimization.InvalidParamError{
				Param:  "heuristic_config",
				Reason: fmt.Sprintf("expected genetic.Config, got %T", cfg),
			}
		}
	})
}

// Config holds every recognized genetic-algorithm option.
type Config struct {
	// Selection picks the parents. Required.
	Selection Selection
	// Crossover mates them. Required.
	Crossover Crossover
	// Mutation perturbs the child. Defaults to NeighborMutation.
	Mutation Mutation
	// MutationRate is the per-step mutation probability in [0, 1].
	MutationRate float64
	// MaxRepeat bounds retries when the child equals one of its parents.
	// Defaults to 5.
	MaxRepeat int
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
}

// GeneticAlgorithm proposes offspring of the fittest recorded points.
type GeneticAlgorithm struct {
	cfg Config
	rng *rand.Rand

	mutations  int
	familyLine []family
}

type family struct {
	parent1, parent2, child optimization.ParameterVector
}

// New validates the configuration and builds the heuristic.
func New(cfg Config) (*GeneticAlgorithm, error) {
	if cfg.Selection == nil {
		return nil, &optimization.InvalidParamError{Param: "selection", Reason: "is required"}
	}
	if cfg.Crossover == nil {
		return nil, &optimization.InvalidParamError{Param: "crossover", Reason: "is required"}
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, &optimization.InvalidParamError{Param: "mutation_rate", Reason: "must lie in [0, 1]"}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = NeighborMutation{}
	}
	if cfg.MaxRepeat == 0 {
		cfg.MaxRepeat = 5
	}
	if cfg.MaxRepeat < 0 {
		return nil, &optimization.InvalidParamError{Param: "max_repeat", Reason: "must be non-negative"}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GeneticAlgorithm{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// ChooseNext implements optimization.Heuristic. It retries up to MaxRepeat
// times when the offspring reproduces a parent exactly, then settles for the
// last child produced.
func (ga *GeneticAlgorithm) ChooseNext(history *optimization.AggregatedHistory, grid *optimization.Grid) (optimization.ParameterVector, error) {
	var parent1, parent2, child optimization.ParameterVector
	for attempt := 0; attempt <= ga.cfg.MaxRepeat; attempt++ {
		var err error
		parent1, parent2, err = ga.cfg.Selection.Pick(ga.rng, history)
		if err != nil {
			return nil, err
		}
		child = ga.cfg.Crossover.Cross(ga.rng, parent1, parent2)
		if ga.cfg.MutationRate > 0 && ga.rng.Float64() < ga.cfg.MutationRate {
			child, err = ga.cfg.Mutation.Mutate(ga.rng, grid, child)
			if err != nil {
				return nil, err
			}
			ga.mutations++
		}
		if !child.Equal(parent1) && !child.Equal(parent2) {
			break
		}
	}
	ga.familyLine = append(ga.familyLine, family{parent1: parent1, parent2: parent2, child: child})
	return child, nil
}

// Mutations returns how many mutations have been applied.
func (ga *GeneticAlgorithm) Mutations() int { return ga.mutations }

// Summary implements optimization.Heuristic.
func (ga *GeneticAlgorithm) Summary() string {
	return fmt.Sprintf("genetic algorithm: %d offspring, %d mutations (%s selection, %s crossover)",
		len(ga.familyLine), ga.mutations, ga.cfg.Selection.Name(), ga.cfg.Crossover.Name())
}

// Reset implements optimization.Heuristic.
func (ga *GeneticAlgorithm) Reset() {
	ga.mutations = 0
	ga.familyLine = nil
}

package genetic

import (
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Selection picks two distinct parents from the aggregated history.
type Selection interface {
	Pick(rng *rand.Rand, history *optimization.AggregatedHistory) (parent1, parent2 optimization.ParameterVector, err error)
	Name() string
}

// pool is the candidate set a selection draws from: the MatingPoolSize best
// distinct parametrizations seen so far. A size of zero or less means the
// whole history.
type pool struct {
	parameters []optimization.ParameterVector
	fitness    []float64
}

func matingPool(history *optimization.AggregatedHistory, size int) pool {
	order := history.SortedByFitness()
	if size <= 0 || size > len(order) {
		size = len(order)
	}
	p := pool{
		parameters: make([]optimization.ParameterVector, size),
		fitness:    make([]float64, size),
	}
	for i, idx := range order[:size] {
		p.parameters[i] = history.Parameters[idx]
		p.fitness[i] = history.Fitness[idx]
	}
	return p
}

// remove drops one individual so a parent cannot be drawn twice.
func (p pool) remove(individual optimization.ParameterVector) pool {
	out := pool{}
	for i, candidate := range p.parameters {
		if candidate.Equal(individual) {
			continue
		}
		out.parameters = append(out.parameters, candidate)
		out.fitness = append(out.fitness, p.fitness[i])
	}
	return out
}

// weights turns fitness values into pick probabilities: lower fitness gets a
// larger 1/(f - min(f) + 1) weight, normalized to sum to one.
func (p pool) weights() []float64 {
	min := p.fitness[0]
	for _, f := range p.fitness[1:] {
		if f < min {
			min = f
		}
	}
	weights := make([]float64, len(p.fitness))
	var total float64
	for i, f := range p.fitness {
		weights[i] = 1 / (f - min + 1)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func (p pool) weightedDraw(rng *rand.Rand) optimization.ParameterVector {
	weights := p.weights()
	r := rng.Float64()
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return p.parameters[i]
		}
	}
	return p.parameters[len(p.parameters)-1]
}

// fittestOf draws up to poolSize individuals without replacement and keeps
// the fittest. When poolSize covers the pool the draw is the overall best.
func (p pool) fittestOf(rng *rand.Rand, poolSize int) optimization.ParameterVector {
	if poolSize >= len(p.parameters) {
		best := 0
		for i, f := range p.fitness {
			if f < p.fitness[best] {
				best = i
			}
		}
		return p.parameters[best]
	}
	chosen := rng.Perm(len(p.parameters))[:poolSize]
	best := chosen[0]
	for _, idx := range chosen[1:] {
		if p.fitness[idx] < p.fitness[best] {
			best = idx
		}
	}
	return p.parameters[best]
}

// RouletteWheel selects each parent proportionally to a monotone transform
// of its fitness. With Elitism the overall best is always the first parent.
type RouletteWheel struct {
	MatingPoolSize int
	Elitism        bool
}

// Pick implements Selection.
func (s *RouletteWheel) Pick(rng *rand.Rand, history *optimization.AggregatedHistory) (optimization.ParameterVector, optimization.ParameterVector, error) {
	if history.Len() < 2 {
		return nil, nil, optimization.NewErrorf("genetic.RouletteWheel", "need at least 2 distinct parametrizations, have %d", history.Len())
	}
	p := matingPool(history, s.MatingPoolSize)
	var parent1 optimization.ParameterVector
	if s.Elitism {
		parent1 = p.parameters[0]
	} else {
		parent1 = p.weightedDraw(rng)
	}
	parent2 := p.remove(parent1).weightedDraw(rng)
	return parent1, parent2, nil
}

// Name implements Selection.
func (s *RouletteWheel) Name() string { return "roulette_wheel" }

// Tournament draws a fixed-size pool per parent and keeps the fittest of
// each pool. With Elitism the overall best is always the first parent.
type Tournament struct {
	PoolSize       int
	MatingPoolSize int
	Elitism        bool
}

// Pick implements Selection.
func (s *Tournament) Pick(rng *rand.Rand, history *optimization.AggregatedHistory) (optimization.ParameterVector, optimization.ParameterVector, error) {
	if history.Len() < 2 {
		return nil, nil, optimization.NewErrorf("genetic.Tournament", "need at least 2 distinct parametrizations, have %d", history.Len())
	}
	p := matingPool(history, s.MatingPoolSize)
	var parent1 optimization.ParameterVector
	if s.Elitism {
		parent1 = p.parameters[0]
	} else {
		parent1 = p.fittestOf(rng, s.PoolSize)
	}
	parent2 := p.remove(parent1).fittestOf(rng, s.PoolSize)
	return parent1, parent2, nil
}

// Name implements Selection.
func (s *Tournament) Name() string { return "tournament" }

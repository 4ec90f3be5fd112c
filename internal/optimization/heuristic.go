package optimization

import (
	"fmt"
	"sort"
	"sync"
)

// Heuristic proposes the next parametrization to evaluate from the trial
// history and the grid. Implementations own whatever internal state they
// need (temperature, family line, fitted model); Reset clears that state so
// the instance can drive a fresh run.
//
// ChooseNext must return a point whose every component belongs to the
// matching grid domain.
type Heuristic interface {
	ChooseNext(history *AggregatedHistory, grid *Grid) (ParameterVector, error)
	Summary() string
	Reset()
}

// AggregatedHistory is the view of the trial log handed to heuristics: one
// entry per distinct parametrization, pooled fitness reduced by the engine's
// estimator, plus the raw trial sequence for strategies that need ordering
// or flags.
type AggregatedHistory struct {
	Parameters []ParameterVector
	Fitness    []float64
	Raw        *History
}

// Aggregate builds the heuristic view of a history using the estimator the
// engine is configured with.
func Aggregate(h *History, estimator Estimator) *AggregatedHistory {
	params, fitness := h.Aggregated(estimator)
	return &AggregatedHistory{Parameters: params, Fitness: fitness, Raw: h}
}

// Len returns the number of distinct parametrizations.
func (a *AggregatedHistory) Len() int { return len(a.Parameters) }

// ArgBest returns the index of the lowest pooled fitness, earliest first on
// ties.
func (a *AggregatedHistory) ArgBest() int {
	best := 0
	for i, f := range a.Fitness {
		if f < a.Fitness[best] {
			best = i
		}
	}
	return best
}

// SortedByFitness returns index positions ordered by ascending fitness.
func (a *AggregatedHistory) SortedByFitness() []int {
	order := make([]int, len(a.Fitness))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return a.Fitness[order[i]] < a.Fitness[order[j]]
	})
	return order
}

// Factory builds a heuristic from its variant-specific configuration
// structure. Each built-in variant documents and validates its own structure;
// passing a foreign type is a construction error.
type Factory func(cfg interface{}) (Heuristic, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterHeuristic adds a named heuristic constructor. Built-in variants
// register themselves; user extensions call this with their own factory.
// Registering a duplicate name panics, as it is always a programming error.
func RegisterHeuristic(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("optimization: heuristic %q registered twice", name))
	}
	registry[name] = factory
}

// NewHeuristic constructs the named heuristic with its configuration.
func NewHeuristic(name string, cfg interface{}) (Heuristic, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &InvalidParamError{
			Param:  "heuristic",
			Reason: fmt.Sprintf("unknown heuristic %q, registered: %v", name, HeuristicNames()),
		}
	}
	return factory(cfg)
}

// HeuristicNames lists the registered heuristic names, sorted.
func HeuristicNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

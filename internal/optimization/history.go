package optimization

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Estimator reduces repeated raw observations of one parametrization to a
// single fitness value. The engine uses the same estimator for aggregation
// and for reporting.
type Estimator func(samples []float64) float64

// Mean aggregates samples with the arithmetic mean.
func Mean(samples []float64) float64 {
	return stat.Mean(samples, nil)
}

// Median aggregates samples with the median.
func Median(samples []float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Trial is one completed loop iteration: a parametrization, the raw
// observations collected for it, and their aggregate. A trial is immutable
// once appended to the history.
type Trial struct {
	Parameters        ParameterVector `json:"parameters"`
	RawObservations   []float64       `json:"raw_observations"`
	AggregatedFitness float64         `json:"aggregated_fitness"`
	Truncated         bool            `json:"truncated"`
	Initialization    bool            `json:"initialization"`
	Resampled         bool            `json:"resampled"`
}

// History is the insertion-ordered, append-only trial log. It is the only
// state shared between the loop, the heuristics and the stop criteria, and
// only the loop appends to it.
type History struct {
	trials []Trial
}

// NewHistory returns an empty history with room for capacity trials.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{trials: make([]Trial, 0, capacity)}
}

// Append adds a completed trial.
func (h *History) Append(t Trial) {
	h.trials = append(h.trials, t)
}

// Len returns the number of recorded trials.
func (h *History) Len() int { return len(h.trials) }

// At returns the i-th trial in insertion order.
func (h *History) At(i int) Trial { return h.trials[i] }

// Last returns the most recent trial. It panics on an empty history; callers
// check Len first.
func (h *History) Last() Trial { return h.trials[len(h.trials)-1] }

// Trials returns a copy of the trial log for external persistence or
// inspection.
func (h *History) Trials() []Trial {
	return append([]Trial(nil), h.trials...)
}

// Fitness returns the aggregated fitness of every trial in insertion order.
func (h *History) Fitness() []float64 {
	fitness := make([]float64, len(h.trials))
	for i, t := range h.trials {
		fitness[i] = t.AggregatedFitness
	}
	return fitness
}

// Parameters returns the parametrization of every trial in insertion order.
func (h *History) Parameters() []ParameterVector {
	params := make([]ParameterVector, len(h.trials))
	for i, t := range h.trials {
		params[i] = t.Parameters
	}
	return params
}

// grouped is the per-parametrization view used for best selection and
// aggregated reporting.
type grouped struct {
	parameters ParameterVector
	samples    []float64
	firstSeen  int
}

// groupByParameters folds the history into one entry per distinct
// parametrization, preserving first-seen order and concatenating every raw
// observation recorded for the point.
func (h *History) groupByParameters() []grouped {
	index := make(map[string]int)
	groups := make([]grouped, 0, len(h.trials))
	for i, t := range h.trials {
		key := t.Parameters.Key()
		if at, ok := index[key]; ok {
			groups[at].samples = append(groups[at].samples, t.RawObservations...)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, grouped{
			parameters: t.Parameters.Clone(),
			samples:    append([]float64(nil), t.RawObservations...),
			firstSeen:  i,
		})
	}
	return groups
}

// Best returns the parametrization with the lowest aggregated fitness.
// Observations of the same point across trials are pooled and reduced with
// the estimator; ties keep the earliest observed point. ok is false on an
// empty history.
func (h *History) Best(estimator Estimator) (best ParameterVector, fitness float64, ok bool) {
	groups := h.groupByParameters()
	if len(groups) == 0 {
		return nil, 0, false
	}
	best = groups[0].parameters
	fitness = estimator(groups[0].samples)
	for _, g := range groups[1:] {
		if f := estimator(g.samples); f < fitness {
			best = g.parameters
			fitness = f
		}
	}
	return best, fitness, true
}

// Aggregated returns the per-parametrization history the heuristics consume:
// distinct points in first-seen order with their pooled fitness reduced by
// the estimator.
func (h *History) Aggregated(estimator Estimator) ([]ParameterVector, []float64) {
	groups := h.groupByParameters()
	params := make([]ParameterVector, len(groups))
	fitness := make([]float64, len(groups))
	for i, g := range groups {
		params[i] = g.parameters
		fitness[i] = estimator(g.samples)
	}
	return params, fitness
}

// DistinctInWindow counts distinct parametrizations among the last window
// trials.
func (h *History) DistinctInWindow(window int) int {
	if window > len(h.trials) {
		window = len(h.trials)
	}
	seen := make(map[string]struct{}, window)
	for _, t := range h.trials[len(h.trials)-window:] {
		seen[t.Parameters.Key()] = struct{}{}
	}
	return len(seen)
}

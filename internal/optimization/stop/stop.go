// Package stop implements convergence-based criteria that can end an
// optimization run before its evaluation budget is exhausted.
package stop

import (
	"math"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Criterion inspects the trial history after every completed iteration and
// reports whether the loop should halt. A criterion whose window is not yet
// filled never fires.
type Criterion interface {
	ShouldStop(history *optimization.History) bool
	Name() string
}

// Improvement halts when the estimator over the last StopWindow trials no
// longer improves on the estimator over the rest of the trajectory by at
// least Threshold, relatively.
type Improvement struct {
	Threshold  float64
	StopWindow int
	Estimator  optimization.Estimator
}

// NewImprovement validates and builds an improvement criterion. A nil
// estimator defaults to the mean.
func NewImprovement(threshold float64, window int, estimator optimization.Estimator) (*Improvement, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "improvement_threshold",
			Reason: "must lie strictly between 0 and 1",
		}
	}
	if window < 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "stop_window",
			Reason: "must be at least 1",
		}
	}
	if estimator == nil {
		estimator = optimization.Mean
	}
	return &Improvement{Threshold: threshold, StopWindow: window, Estimator: estimator}, nil
}

// ShouldStop implements Criterion.
func (c *Improvement) ShouldStop(history *optimization.History) bool {
	fitness := history.Fitness()
	if len(fitness) <= c.StopWindow {
		return false
	}
	outside := c.Estimator(fitness[:len(fitness)-c.StopWindow])
	inside := c.Estimator(fitness[len(fitness)-c.StopWindow:])
	if outside == 0 {
		return false
	}
	ratio := (outside - inside) / outside
	return ratio < c.Threshold
}

// Name implements Criterion.
func (c *Improvement) Name() string { return "improvement" }

// CountMovement halts when the search settles: fewer than
// NbrParametrizations distinct points appear among the last StopWindow
// trials.
type CountMovement struct {
	NbrParametrizations int
	StopWindow          int
}

// NewCountMovement validates and builds a count-movement criterion.
func NewCountMovement(nbrParametrizations, window int) (*CountMovement, error) {
	if nbrParametrizations < 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "nbr_parametrizations",
			Reason: "must be at least 1",
		}
	}
	if window < nbrParametrizations {
		return nil, &optimization.InvalidParamError{
			Param:  "stop_window",
			Reason: "must be at least nbr_parametrizations",
		}
	}
	return &CountMovement{NbrParametrizations: nbrParametrizations, StopWindow: window}, nil
}

// ShouldStop implements Criterion.
func (c *CountMovement) ShouldStop(history *optimization.History) bool {
	if history.Len() <= c.StopWindow {
		return false
	}
	return history.DistinctInWindow(c.StopWindow) < c.NbrParametrizations
}

// Name implements Criterion.
func (c *CountMovement) Name() string { return "count_movement" }

// DistanceMovement halts when the distinct points tested in the last
// StopWindow trials cluster: their mean pairwise Euclidean distance drops
// below Distance.
type DistanceMovement struct {
	Distance   float64
	StopWindow int
}

// NewDistanceMovement validates and builds a distance-movement criterion.
func NewDistanceMovement(distance float64, window int) (*DistanceMovement, error) {
	if distance <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "distance",
			Reason: "must be strictly positive",
		}
	}
	if window < 2 {
		return nil, &optimization.InvalidParamError{
			Param:  "stop_window",
			Reason: "must be at least 2",
		}
	}
	return &DistanceMovement{Distance: distance, StopWindow: window}, nil
}

// ShouldStop implements Criterion.
func (c *DistanceMovement) ShouldStop(history *optimization.History) bool {
	if history.Len() <= c.StopWindow {
		return false
	}
	params := history.Parameters()
	window := params[len(params)-c.StopWindow:]

	seen := make(map[string]struct{}, len(window))
	distinct := make([]optimization.ParameterVector, 0, len(window))
	for _, p := range window {
		key := p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, p)
	}
	if len(distinct) < 2 {
		// A single point has zero spread.
		return true
	}

	var total float64
	var pairs int
	for i := 0; i < len(distinct); i++ {
		for j := i + 1; j < len(distinct); j++ {
			total += euclidean(distinct[i], distinct[j])
			pairs++
		}
	}
	return total/float64(pairs) < c.Distance
}

// Name implements Criterion.
func (c *DistanceMovement) Name() string { return "distance_movement" }

func euclidean(a, b optimization.ParameterVector) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Any combines criteria with a short-circuit OR and remembers which one
// fired so the engine can report the halt cause.
type Any struct {
	Criteria  []Criterion
	triggered string
}

// NewAny builds a composite criterion over the given members.
func NewAny(criteria ...Criterion) *Any {
	return &Any{Criteria: criteria}
}

// ShouldStop implements Criterion.
func (a *Any) ShouldStop(history *optimization.History) bool {
	for _, c := range a.Criteria {
		if c.ShouldStop(history) {
			a.triggered = c.Name()
			return true
		}
	}
	return false
}

// Name implements Criterion.
func (a *Any) Name() string { return "any" }

// Triggered returns the name of the criterion that caused the last positive
// ShouldStop, or the empty string.
func (a *Any) Triggered() string { return a.triggered }

// Package resampling decides how often a parametrization is re-evaluated to
// average out measurement noise before its fitness enters the trial history.
package resampling

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Policy decides, from the samples collected so far for the current
// parametrization, whether the engine has enough observations.
type Policy interface {
	// Done reports whether sampling can stop. The engine calls it after
	// every observation; it is never called with an empty slice.
	Done(samples []float64) bool
	Name() string
}

// Static takes the same fixed number of samples for every parametrization.
type Static struct {
	NbrResamples int
}

// NewStatic validates and builds a static policy.
func NewStatic(nbrResamples int) (*Static, error) {
	if nbrResamples < 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "nbr_resamples",
			Reason: "must be at least 1",
		}
	}
	return &Static{NbrResamples: nbrResamples}, nil
}

// Done implements Policy.
func (s *Static) Done(samples []float64) bool {
	return len(samples) >= s.NbrResamples
}

// Name implements Policy.
func (s *Static) Name() string { return "static" }

// Dynamic keeps sampling until the 95% confidence interval half-width of the
// running mean, as a fraction of that mean, drops to Percentage or below. At
// least two samples are always taken so the variance estimate exists.
type Dynamic struct {
	Percentage float64
}

// NewDynamic validates and builds a dynamic policy.
func NewDynamic(percentage float64) (*Dynamic, error) {
	if percentage <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "percentage",
			Reason: "must be strictly positive",
		}
	}
	return &Dynamic{Percentage: percentage}, nil
}

// Done implements Policy. The half-width uses the unbiased standard
// deviation: 1.96 * s / sqrt(n).
func (d *Dynamic) Done(samples []float64) bool {
	n := len(samples)
	if n < 2 {
		return false
	}
	mean, std := stat.MeanStdDev(samples, nil)
	halfWidth := 1.96 * std / math.Sqrt(float64(n))
	return math.Abs(halfWidth) <= d.Percentage*math.Abs(mean)
}

// Name implements Policy.
func (d *Dynamic) Name() string { return "dynamic" }

package annealing

import (
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Restart decides, once per step, whether the system should be reheated and
// to which temperature. The heuristic caps how many times a restart may
// actually fire.
type Restart interface {
	// Check receives the acceptance probability of the current step and the
	// initial temperature, and returns whether to restart plus the reset
	// temperature.
	Check(rng *rand.Rand, acceptanceProbability, initialTemperature float64) (bool, float64)
	Name() string
}

// RandomRestart reheats with a fixed Bernoulli probability at every step.
type RandomRestart struct {
	Probability float64
}

// NewRandomRestart validates and builds a random restart.
func NewRandomRestart(probability float64) (*RandomRestart, error) {
	if probability < 0 || probability > 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "restart_probability",
			Reason: "must lie in [0, 1]",
		}
	}
	return &RandomRestart{Probability: probability}, nil
}

// Check implements Restart.
func (r *RandomRestart) Check(rng *rand.Rand, _, initialTemperature float64) (bool, float64) {
	return rng.Float64() < r.Probability, initialTemperature
}

// Name implements Restart.
func (r *RandomRestart) Name() string { return "random" }

// ThresholdRestart reheats once the acceptance probability (the system's
// energy) falls under a bound, i.e. when the walk has effectively frozen.
type ThresholdRestart struct {
	ProbabilityThreshold float64
}

// NewThresholdRestart validates and builds a threshold restart.
func NewThresholdRestart(threshold float64) (*ThresholdRestart, error) {
	if threshold < 0 || threshold > 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "probability_threshold",
			Reason: "must lie in [0, 1]",
		}
	}
	return &ThresholdRestart{ProbabilityThreshold: threshold}, nil
}

// Check implements Restart.
func (r *ThresholdRestart) Check(_ *rand.Rand, acceptanceProbability, initialTemperature float64) (bool, float64) {
	return acceptanceProbability < r.ProbabilityThreshold, initialTemperature
}

// Name implements Restart.
func (r *ThresholdRestart) Name() string { return "threshold" }

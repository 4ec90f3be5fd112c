package annealing

import (
	"math"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Schedule maps an iteration count to a temperature. All built-in schedules
// are non-increasing in k for their admissible cooling factors.
type Schedule interface {
	Temperature(initial float64, iteration int) float64
	Name() string
}

// Exponential cools multiplicatively: T_k = alpha^k * T_0, 0 < alpha < 1.
type Exponential struct {
	Alpha float64
}

// NewExponential validates and builds an exponential schedule.
func NewExponential(alpha float64) (*Exponential, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "cooling_factor",
			Reason: "exponential schedule requires 0 < alpha < 1",
		}
	}
	return &Exponential{Alpha: alpha}, nil
}

// Temperature implements Schedule.
func (s *Exponential) Temperature(initial float64, iteration int) float64 {
	return math.Pow(s.Alpha, float64(iteration)) * initial
}

// Name implements Schedule.
func (s *Exponential) Name() string { return "exponential" }

// Logarithmic cools as T_k = T_0 / (1 + alpha*ln(k+1)), alpha > 1.
type Logarithmic struct {
	Alpha float64
}

// NewLogarithmic validates and builds a logarithmic schedule.
func NewLogarithmic(alpha float64) (*Logarithmic, error) {
	if alpha <= 1 {
		return nil, &optimization.InvalidParamError{
			Param:  "cooling_factor",
			Reason: "logarithmic schedule requires alpha > 1",
		}
	}
	return &Logarithmic{Alpha: alpha}, nil
}

// Temperature implements Schedule.
func (s *Logarithmic) Temperature(initial float64, iteration int) float64 {
	return initial / (1 + s.Alpha*math.Log(float64(iteration)+1))
}

// Name implements Schedule.
func (s *Logarithmic) Name() string { return "logarithmic" }

// Linear cools as T_k = T_0 / (1 + alpha*k), alpha > 0.
type Linear struct {
	Alpha float64
}

// NewLinear validates and builds a linear multiplicative schedule.
func NewLinear(alpha float64) (*Linear, error) {
	if alpha <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "cooling_factor",
			Reason: "linear schedule requires alpha > 0",
		}
	}
	return &Linear{Alpha: alpha}, nil
}

// Temperature implements Schedule.
func (s *Linear) Temperature(initial float64, iteration int) float64 {
	return initial / (1 + s.Alpha*float64(iteration))
}

// Name implements Schedule.
func (s *Linear) Name() string { return "linear" }

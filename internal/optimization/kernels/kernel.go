// Package kernels provides covariance functions for the surrogate model's
// Gaussian process regressor.
package kernels

import (
	"fmt"
	"math"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Kernel computes the covariance between two points of the search space.
type Kernel interface {
	Eval(x1, x2 []float64) float64
	Name() string
}

// RBF is the squared-exponential kernel
// k(x1, x2) = signalVar * exp(-||x1-x2||^2 / (2 * lengthScale^2)).
type RBF struct {
	lengthScale float64
	signalVar   float64
}

// NewRBF builds an RBF kernel. Both parameters must be positive.
func NewRBF(lengthScale, signalVar float64) (*RBF, error) {
	if lengthScale <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "length_scale",
			Reason: fmt.Sprintf("must be positive, got %v", lengthScale),
		}
	}
	if signalVar <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "signal_variance",
			Reason: fmt.Sprintf("must be positive, got %v", signalVar),
		}
	}
	return &RBF{lengthScale: lengthScale, signalVar: signalVar}, nil
}

func (k *RBF) Eval(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	return k.signalVar * math.Exp(-sumSq/(2*k.lengthScale*k.lengthScale))
}

func (k *RBF) Name() string { return "rbf" }

// Matern52 is the Matérn kernel with smoothness 5/2, a common default for
// noisy performance measurements because it assumes less smoothness than RBF.
type Matern52 struct {
	lengthScale float64
	signalVar   float64
}

// NewMatern52 builds a Matérn 5/2 kernel. Both parameters must be positive.
func NewMatern52(lengthScale, signalVar float64) (*Matern52, error) {
	if lengthScale <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "length_scale",
			Reason: fmt.Sprintf("must be positive, got %v", lengthScale),
		}
	}
	if signalVar <= 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "signal_variance",
			Reason: fmt.Sprintf("must be positive, got %v", signalVar),
		}
	}
	return &Matern52{lengthScale: lengthScale, signalVar: signalVar}, nil
}

func (k *Matern52) Eval(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	r := math.Sqrt(sumSq) / k.lengthScale
	poly := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	return k.signalVar * poly * math.Exp(-math.Sqrt(5)*r)
}

func (k *Matern52) Name() string { return "matern52" }

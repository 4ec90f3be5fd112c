package genetic

import (
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Crossover combines two parents into one child.
type Crossover interface {
	Cross(rng *rand.Rand, parent1, parent2 optimization.ParameterVector) optimization.ParameterVector
	Name() string
}

// SinglePoint splits both parents at one index and concatenates the head of
// the first with the tail of the second. For vectors shorter than three
// components the split point is necessarily 1.
type SinglePoint struct{}

// Cross implements Crossover.
func (SinglePoint) Cross(rng *rand.Rand, parent1, parent2 optimization.ParameterVector) optimization.ParameterVector {
	length := len(parent1)
	point := 1
	if length >= 3 {
		point = 1 + rng.Intn(length-2)
	}
	child := make(optimization.ParameterVector, 0, length)
	child = append(child, parent1[:point]...)
	child = append(child, parent2[point:]...)
	return child
}

// Name implements Crossover.
func (SinglePoint) Name() string { return "single_point" }

// DoublePoint splits the parents at two indexes: the child takes its head
// and tail from the first parent and the middle from the second. Vectors too
// short for a three-way split fall back to single-point.
type DoublePoint struct{}

// Cross implements Crossover.
func (DoublePoint) Cross(rng *rand.Rand, parent1, parent2 optimization.ParameterVector) optimization.ParameterVector {
	length := len(parent1)
	if length < 4 {
		return SinglePoint{}.Cross(rng, parent1, parent2)
	}
	lo := 1 + rng.Intn(length-2)
	hi := 1 + rng.Intn(length-2)
	for hi == lo {
		hi = 1 + rng.Intn(length-2)
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	child := make(optimization.ParameterVector, 0, length)
	child = append(child, parent1[:lo]...)
	child = append(child, parent2[lo:hi]...)
	child = append(child, parent1[hi:]...)
	return child
}

// Name implements Crossover.
func (DoublePoint) Name() string { return "double_point" }

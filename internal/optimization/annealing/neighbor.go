package annealing

import (
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Neighbor picks a grid point adjacent to the given one.
type Neighbor interface {
	Next(rng *rand.Rand, grid *optimization.Grid, point optimization.ParameterVector) (optimization.ParameterVector, error)
}

// RandomWalk moves each dimension one grid step up, down, or not at all with
// equal probability, clamped at the domain edges, and retries until the
// result differs from the input.
type RandomWalk struct{}

// Next implements Neighbor.
func (RandomWalk) Next(rng *rand.Rand, grid *optimization.Grid, point optimization.ParameterVector) (optimization.ParameterVector, error) {
	return HopToNeighbor(rng, grid, point)
}

// HopToNeighbor is the random walk shared with the genetic mutation
// operator: a per-dimension one-step move on the grid that never returns the
// starting point. It errors when the point is off-grid or the grid has a
// single point, since no distinct neighbor exists then.
func HopToNeighbor(rng *rand.Rand, grid *optimization.Grid, point optimization.ParameterVector) (optimization.ParameterVector, error) {
	if !grid.Contains(point) {
		return nil, optimization.NewErrorf("annealing.HopToNeighbor", "point %v is not on the grid", point)
	}
	if grid.Size() < 2 {
		return nil, optimization.NewErrorf("annealing.HopToNeighbor", "grid has no distinct neighbor")
	}
	for {
		next := make(optimization.ParameterVector, len(point))
		for axis := range point {
			domain := grid.Domain(axis)
			idx := grid.IndexOf(axis, point[axis])
			switch rng.Intn(3) {
			case 0:
				if idx < len(domain)-1 {
					idx++
				}
			case 1:
				if idx > 0 {
					idx--
				}
			}
			next[axis] = domain[idx]
		}
		if !next.Equal(point) {
			return next, nil
		}
	}
}

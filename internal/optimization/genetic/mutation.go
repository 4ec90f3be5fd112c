package genetic

import (
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/annealing"
)

// Mutation perturbs a child chromosome within the grid.
type Mutation interface {
	Mutate(rng *rand.Rand, grid *optimization.Grid, child optimization.ParameterVector) (optimization.ParameterVector, error)
	Name() string
}

// NeighborMutation walks the child to a grid-neighboring point, reusing the
// annealing random walk.
type NeighborMutation struct{}

// Mutate implements Mutation.
func (NeighborMutation) Mutate(rng *rand.Rand, grid *optimization.Grid, child optimization.ParameterVector) (optimization.ParameterVector, error) {
	return annealing.HopToNeighbor(rng, grid, child)
}

// Name implements Mutation.
func (NeighborMutation) Name() string { return "neighbor" }

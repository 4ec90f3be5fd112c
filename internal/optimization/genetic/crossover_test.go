package genetic

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/annealing"
)

func TestSinglePointTwoComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	child := SinglePoint{}.Cross(rng,
		optimization.ParameterVector{1, 2},
		optimization.ParameterVector{9, 8})
	assert.Equal(t, optimization.ParameterVector{1, 8}, child,
		"a 2-vector always splits at index 1")
}

func TestSinglePointComponentsComeFromParents(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p1 := optimization.ParameterVector{1, 2, 3, 4, 5}
	p2 := optimization.ParameterVector{9, 8, 7, 6, 5}

	for i := 0; i < 30; i++ {
		child := SinglePoint{}.Cross(rng, p1, p2)
		require.Len(t, child, 5)

		// A prefix of p1 followed by a suffix of p2.
		split := 0
		for split < 5 && child[split] == p1[split] {
			split++
		}
		assert.GreaterOrEqual(t, split, 1)
		for j := split; j < 5; j++ {
			assert.Equal(t, p2[j], child[j])
		}
	}
}

func TestDoublePointTakesMiddleFromSecondParent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p1 := optimization.ParameterVector{1, 1, 1, 1, 1}
	p2 := optimization.ParameterVector{2, 2, 2, 2, 2}

	for i := 0; i < 30; i++ {
		child := DoublePoint{}.Cross(rng, p1, p2)
		require.Len(t, child, 5)

		// Head and tail from p1, one contiguous middle run from p2.
		assert.Equal(t, 1.0, child[0])
		assert.Equal(t, 1.0, child[len(child)-1])
		runs := 0
		for j := 1; j < len(child); j++ {
			if child[j] != child[j-1] {
				runs++
			}
		}
		assert.Equal(t, 2, runs, "child %v must switch parent exactly twice", child)
	}
}

func TestDoublePointShortVectorFallsBack(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	child := DoublePoint{}.Cross(rng,
		optimization.ParameterVector{1, 2, 3},
		optimization.ParameterVector{9, 8, 7})
	require.Len(t, child, 3)
	assert.Equal(t, 1.0, child[0], "short vectors fall back to single point")
	assert.Equal(t, 7.0, child[2])
}

func TestNeighborMutationStaysAdjacent(t *testing.T) {
	grid, err := optimization.RangeGrid([2]int{0, 5}, [2]int{0, 5})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))

	child := optimization.ParameterVector{3, 3}
	for i := 0; i < 30; i++ {
		mutated, err := NeighborMutation{}.Mutate(rng, grid, child)
		require.NoError(t, err)
		assert.True(t, grid.Contains(mutated))
		assert.False(t, mutated.Equal(child))
	}

	// Same walk as the annealing neighbor function.
	a := rand.New(rand.NewSource(9))
	b := rand.New(rand.NewSource(9))
	m1, err := NeighborMutation{}.Mutate(a, grid, child)
	require.NoError(t, err)
	m2, err := annealing.HopToNeighbor(b, grid, child)
	require.NoError(t, err)
	assert.Equal(t, m2, m1)
}

package annealing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfkit/gridtune/internal/optimization"
)

func TestScheduleValidation(t *testing.T) {
	for _, alpha := range []float64{0, 1, -0.5, 2} {
		_, err := NewExponential(alpha)
		assert.Error(t, err, "exponential alpha=%v", alpha)
	}
	for _, alpha := range []float64{1, 0.5, -1} {
		_, err := NewLogarithmic(alpha)
		assert.Error(t, err, "logarithmic alpha=%v", alpha)
	}
	for _, alpha := range []float64{0, -1} {
		_, err := NewLinear(alpha)
		assert.Error(t, err, "linear alpha=%v", alpha)
	}
}

func TestSchedulesStartAtInitialAndDecrease(t *testing.T) {
	exponential, err := NewExponential(0.8)
	require.NoError(t, err)
	logarithmic, err := NewLogarithmic(2)
	require.NoError(t, err)
	linear, err := NewLinear(0.5)
	require.NoError(t, err)

	for _, schedule := range []Schedule{exponential, logarithmic, linear} {
		const initial = 100.0
		assert.Equal(t, initial, schedule.Temperature(initial, 0), schedule.Name())

		prev := initial
		for k := 1; k < 50; k++ {
			current := schedule.Temperature(initial, k)
			assert.Less(t, current, prev, "%s must cool monotonically at k=%d", schedule.Name(), k)
			assert.Greater(t, current, 0.0, schedule.Name())
			prev = current
		}
	}
}

func TestExponentialValues(t *testing.T) {
	s, err := NewExponential(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 25, s.Temperature(100, 2), 1e-12)
}

func TestLinearValues(t *testing.T) {
	s, err := NewLinear(1)
	require.NoError(t, err)
	assert.InDelta(t, 25, s.Temperature(100, 3), 1e-12)
}

func TestRestartValidation(t *testing.T) {
	_, err := NewRandomRestart(-0.1)
	assert.ErrorContains(t, err, "restart_probability")
	_, err = NewRandomRestart(1.1)
	assert.Error(t, err)

	_, err = NewThresholdRestart(2)
	assert.ErrorContains(t, err, "probability_threshold")
}

func TestThresholdRestart(t *testing.T) {
	r, err := NewThresholdRestart(0.3)
	require.NoError(t, err)

	fire, resetT := r.Check(nil, 0.1, 42)
	assert.True(t, fire)
	assert.Equal(t, 42.0, resetT)

	fire, _ = r.Check(nil, 0.5, 42)
	assert.False(t, fire)
}

func TestRandomRestartExtremes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	never, err := NewRandomRestart(0)
	require.NoError(t, err)
	always, err := NewRandomRestart(1)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		fire, _ := never.Check(rng, 0, 10)
		assert.False(t, fire)
		fire, _ = always.Check(rng, 0, 10)
		assert.True(t, fire)
	}
}

func TestHopToNeighbor(t *testing.T) {
	grid, err := optimization.NewGrid([]float64{0, 1, 2}, []float64{0, 1, 2})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	start := optimization.ParameterVector{1, 1}
	for i := 0; i < 100; i++ {
		next, err := HopToNeighbor(rng, grid, start)
		require.NoError(t, err)
		assert.True(t, grid.Contains(next))
		assert.False(t, next.Equal(start), "neighbor must differ from the start")
		for axis := range next {
			assert.LessOrEqual(t, next[axis]-start[axis], 1.0)
			assert.GreaterOrEqual(t, next[axis]-start[axis], -1.0)
		}
	}
}

func TestHopToNeighborEdges(t *testing.T) {
	grid, err := optimization.NewGrid([]float64{0, 1, 2})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	// Clamped at the domain edge: the only neighbor of 0 is 1.
	next, err := HopToNeighbor(rng, grid, optimization.ParameterVector{0})
	require.NoError(t, err)
	assert.Equal(t, optimization.ParameterVector{1}, next)
}

func TestHopToNeighborErrors(t *testing.T) {
	grid, err := optimization.NewGrid([]float64{0, 1, 2})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	_, err = HopToNeighbor(rng, grid, optimization.ParameterVector{7})
	assert.ErrorContains(t, err, "not on the grid")

	single, err := optimization.NewGrid([]float64{5})
	require.NoError(t, err)
	_, err = HopToNeighbor(rng, single, optimization.ParameterVector{5})
	assert.ErrorContains(t, err, "no distinct neighbor")
}

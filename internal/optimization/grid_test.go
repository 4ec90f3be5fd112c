package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridValidation(t *testing.T) {
	_, err := NewGrid()
	assert.ErrorContains(t, err, "at least one dimension")

	_, err = NewGrid([]float64{1, 2}, nil)
	assert.ErrorContains(t, err, "dimension 1 is empty")
}

func TestNewGridSortsDomains(t *testing.T) {
	grid, err := NewGrid([]float64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, grid.Domain(0))
}

func TestRangeGrid(t *testing.T) {
	grid, err := RangeGrid([2]int{-2, 2}, [2]int{0, 1})
	require.NoError(t, err)

	assert.Equal(t, 2, grid.Dims())
	assert.Equal(t, []float64{-2, -1, 0, 1, 2}, grid.Domain(0))
	assert.Equal(t, 10, grid.Size())

	_, err = RangeGrid([2]int{5, 2})
	assert.ErrorContains(t, err, "max 2 below min 5")
}

func TestGridContains(t *testing.T) {
	grid, err := NewGrid([]float64{1, 2, 3}, []float64{10, 20})
	require.NoError(t, err)

	assert.True(t, grid.Contains(ParameterVector{2, 10}))
	assert.False(t, grid.Contains(ParameterVector{2, 15}))
	assert.False(t, grid.Contains(ParameterVector{2}))
	assert.False(t, grid.Contains(ParameterVector{4, 10}))
}

func TestGridClosest(t *testing.T) {
	grid, err := NewGrid([]float64{0, 10, 20}, []float64{-1, 1})
	require.NoError(t, err)

	snapped := grid.Closest(ParameterVector{12.4, 0.3})
	assert.Equal(t, ParameterVector{10, 1}, snapped)
	assert.True(t, grid.Contains(snapped))
}

func TestGridEnumerate(t *testing.T) {
	grid, err := NewGrid([]float64{0, 1}, []float64{5, 6})
	require.NoError(t, err)

	points := grid.Enumerate()
	require.Len(t, points, 4)
	// Last dimension varies fastest.
	assert.Equal(t, ParameterVector{0, 5}, points[0])
	assert.Equal(t, ParameterVector{0, 6}, points[1])
	assert.Equal(t, ParameterVector{1, 5}, points[2])
	assert.Equal(t, ParameterVector{1, 6}, points[3])
}

func TestGridSmallestDomainAndBounds(t *testing.T) {
	grid, err := NewGrid([]float64{0, 1, 2, 3}, []float64{7, 9})
	require.NoError(t, err)

	assert.Equal(t, 2, grid.SmallestDomain())
	assert.Equal(t, [][2]float64{{0, 3}, {7, 9}}, grid.Bounds())
}

func TestParameterVector(t *testing.T) {
	v := ParameterVector{1, 2, 3}

	clone := v.Clone()
	clone[0] = 9
	assert.Equal(t, ParameterVector{1, 2, 3}, v, "Clone must be independent")

	assert.True(t, v.Equal(ParameterVector{1, 2, 3}))
	assert.False(t, v.Equal(ParameterVector{1, 2}))
	assert.False(t, v.Equal(ParameterVector{1, 2, 4}))

	assert.Equal(t, v.Key(), ParameterVector{1, 2, 3}.Key())
	assert.NotEqual(t, v.Key(), ParameterVector{1, 2, 4}.Key())
}

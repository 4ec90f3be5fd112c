package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendTrial(h *History, params ParameterVector, observations ...float64) {
	h.Append(Trial{
		Parameters:        params,
		RawObservations:   observations,
		AggregatedFitness: Mean(observations),
		Resampled:         len(observations) > 1,
	})
}

func TestEstimators(t *testing.T) {
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3, 2, 4}))
	assert.Equal(t, 2.0, Median([]float64{1, 2, 4}))
}

func TestHistoryBestPoolsObservations(t *testing.T) {
	h := NewHistory(0)

	// The same point seen twice: its pooled mean is (10+2)/2 = 6, worse
	// than the single observation of {1}.
	appendTrial(h, ParameterVector{0}, 10)
	appendTrial(h, ParameterVector{1}, 7)
	appendTrial(h, ParameterVector{0}, 2)

	best, fitness, ok := h.Best(Mean)
	require.True(t, ok)
	assert.Equal(t, ParameterVector{0}, best)
	assert.Equal(t, 6.0, fitness)
}

func TestHistoryBestTieKeepsEarliest(t *testing.T) {
	h := NewHistory(0)
	appendTrial(h, ParameterVector{3}, 5)
	appendTrial(h, ParameterVector{7}, 5)

	best, fitness, ok := h.Best(Mean)
	require.True(t, ok)
	assert.Equal(t, ParameterVector{3}, best)
	assert.Equal(t, 5.0, fitness)
}

func TestHistoryBestEmpty(t *testing.T) {
	h := NewHistory(0)
	_, _, ok := h.Best(Mean)
	assert.False(t, ok)
}

func TestHistoryAggregatedFirstSeenOrder(t *testing.T) {
	h := NewHistory(0)
	appendTrial(h, ParameterVector{2}, 4)
	appendTrial(h, ParameterVector{1}, 3)
	appendTrial(h, ParameterVector{2}, 6)

	params, fitness := h.Aggregated(Mean)
	require.Len(t, params, 2)
	assert.Equal(t, ParameterVector{2}, params[0])
	assert.Equal(t, ParameterVector{1}, params[1])
	assert.Equal(t, []float64{5, 3}, fitness)
}

func TestHistoryDistinctInWindow(t *testing.T) {
	h := NewHistory(0)
	for _, p := range []ParameterVector{{1}, {2}, {2}, {3}} {
		appendTrial(h, p, 0)
	}

	assert.Equal(t, 2, h.DistinctInWindow(3), "window {2},{2},{3}")
	assert.Equal(t, 3, h.DistinctInWindow(4))
	assert.Equal(t, 3, h.DistinctInWindow(10), "window larger than history")
}

func TestHistoryAccessors(t *testing.T) {
	h := NewHistory(4)
	appendTrial(h, ParameterVector{1}, 2)
	appendTrial(h, ParameterVector{3}, 4)

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, ParameterVector{1}, h.At(0).Parameters)
	assert.Equal(t, ParameterVector{3}, h.Last().Parameters)
	assert.Equal(t, []float64{2, 4}, h.Fitness())
	assert.Equal(t, []ParameterVector{{1}, {3}}, h.Parameters())

	trials := h.Trials()
	trials[0].AggregatedFitness = 99
	assert.Equal(t, 2.0, h.At(0).AggregatedFitness, "Trials must return a copy")
}

func TestAggregateView(t *testing.T) {
	h := NewHistory(0)
	appendTrial(h, ParameterVector{5}, 9)
	appendTrial(h, ParameterVector{2}, 1)
	appendTrial(h, ParameterVector{4}, 5)

	view := Aggregate(h, Mean)
	assert.Equal(t, 3, view.Len())
	assert.Equal(t, 1, view.ArgBest())
	assert.Equal(t, []int{1, 2, 0}, view.SortedByFitness())
	assert.Same(t, h, view.Raw)
}

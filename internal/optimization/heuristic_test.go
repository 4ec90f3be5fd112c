package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedHeuristic struct{ point ParameterVector }

func (f *fixedHeuristic) ChooseNext(*AggregatedHistory, *Grid) (ParameterVector, error) {
	return f.point, nil
}
func (f *fixedHeuristic) Summary() string { return "fixed" }
func (f *fixedHeuristic) Reset()          {}

func TestHeuristicRegistry(t *testing.T) {
	RegisterHeuristic("fixed_for_test", func(cfg interface{}) (Heuristic, error) {
		return &fixedHeuristic{point: ParameterVector{1}}, nil
	})

	h, err := NewHeuristic("fixed_for_test", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", h.Summary())

	assert.Contains(t, HeuristicNames(), "fixed_for_test")
}

func TestHeuristicRegistryUnknownName(t *testing.T) {
	_, err := NewHeuristic("no_such_heuristic", nil)
	require.Error(t, err)

	var invalid *InvalidParamError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "heuristic", invalid.Param)
}

func TestHeuristicRegistryDuplicatePanics(t *testing.T) {
	RegisterHeuristic("dup_for_test", func(cfg interface{}) (Heuristic, error) {
		return &fixedHeuristic{}, nil
	})
	assert.Panics(t, func() {
		RegisterHeuristic("dup_for_test", func(cfg interface{}) (Heuristic, error) {
			return &fixedHeuristic{}, nil
		})
	})
}

package engine

import (
	"fmt"
	"math/rand"

	"github.com/perfkit/gridtune/internal/optimization"
)

// DrawStrategy generates the parametrizations evaluated during the
// initialization phase.
type DrawStrategy string

const (
	// DrawUniform draws each point independently and uniformly over the
	// grid.
	DrawUniform DrawStrategy = "uniform_random"

	// DrawLatinHypercube stratifies each dimension into n bands and draws
	// one point per band, giving better space coverage than independent
	// draws.
	DrawLatinHypercube DrawStrategy = "latin_hypercube"

	// DrawHybrid draws half the points with Latin hypercube sampling and
	// the rest uniformly.
	DrawHybrid DrawStrategy = "hybrid"
)

// drawInitial generates n starting points on the grid.
func drawInitial(strategy DrawStrategy, grid *optimization.Grid, n int, rng *rand.Rand) ([]optimization.ParameterVector, error) {
	switch strategy {
	case "", DrawUniform:
		return drawUniform(grid, n, rng), nil
	case DrawLatinHypercube:
		return drawLatinHypercube(grid, n, rng), nil
	case DrawHybrid:
		lhs := drawLatinHypercube(grid, n/2, rng)
		return append(lhs, drawUniform(grid, n-n/2, rng)...), nil
	default:
		return nil, &optimization.InvalidParamError{
			Param:  "initial_draw",
			Reason: fmt.Sprintf("unknown draw strategy %q", strategy),
		}
	}
}

func drawUniform(grid *optimization.Grid, n int, rng *rand.Rand) []optimization.ParameterVector {
	points := make([]optimization.ParameterVector, n)
	for i := range points {
		p := make(optimization.ParameterVector, grid.Dims())
		for d := 0; d < grid.Dims(); d++ {
			domain := grid.Domain(d)
			p[d] = domain[rng.Intn(len(domain))]
		}
		points[i] = p
	}
	return points
}

// drawLatinHypercube samples one value per stratum and dimension, then
// shuffles the strata independently per dimension so rows do not correlate.
func drawLatinHypercube(grid *optimization.Grid, n int, rng *rand.Rand) []optimization.ParameterVector {
	points := make([]optimization.ParameterVector, n)
	for i := range points {
		points[i] = make(optimization.ParameterVector, grid.Dims())
	}
	for d := 0; d < grid.Dims(); d++ {
		domain := grid.Domain(d)
		strata := make([]float64, n)
		for j := 0; j < n; j++ {
			// A point of the continuous stratum, snapped to the
			// nearest domain index.
			u := (float64(j) + rng.Float64()) / float64(n)
			idx := int(u * float64(len(domain)))
			if idx >= len(domain) {
				idx = len(domain) - 1
			}
			strata[j] = domain[idx]
		}
		rng.Shuffle(n, func(k, l int) {
			strata[k], strata[l] = strata[l], strata[k]
		})
		for j := 0; j < n; j++ {
			points[j][d] = strata[j]
		}
	}
	return points
}

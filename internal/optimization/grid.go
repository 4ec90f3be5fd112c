package optimization

import (
	"fmt"
	"math"
	"sort"
)

// ParameterVector is a point in the search space, one value per grid
// dimension.
type ParameterVector []float64

// Clone returns an independent copy of the vector.
func (v ParameterVector) Clone() ParameterVector {
	return append(ParameterVector(nil), v...)
}

// Equal reports whether two vectors have the same length and components.
func (v ParameterVector) Equal(other ParameterVector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a map key for the vector. Vectors with equal components share
// the same key.
func (v ParameterVector) Key() string {
	return fmt.Sprintf("%v", []float64(v))
}

// Grid is the discrete search space: an ordered list of finite, ascending
// domains, one per dimension. Every candidate point must take its i-th
// component from domain i.
type Grid struct {
	domains [][]float64
}

// NewGrid builds a grid from per-dimension domains. Domains are copied and
// sorted ascending. An empty grid or an empty dimension is a configuration
// error.
func NewGrid(domains ...[]float64) (*Grid, error) {
	if len(domains) == 0 {
		return nil, &InvalidParamError{Param: "grid", Reason: "at least one dimension is required"}
	}
	g := &Grid{domains: make([][]float64, len(domains))}
	for i, d := range domains {
		if len(d) == 0 {
			return nil, &InvalidParamError{
				Param:  "grid",
				Reason: fmt.Sprintf("dimension %d is empty", i),
			}
		}
		g.domains[i] = append([]float64(nil), d...)
		sort.Float64s(g.domains[i])
	}
	return g, nil
}

// RangeGrid builds a one-step integer grid over [min, max] for each bound
// pair, a common shape for tunable component settings.
func RangeGrid(bounds ...[2]int) (*Grid, error) {
	domains := make([][]float64, len(bounds))
	for i, b := range bounds {
		if b[1] < b[0] {
			return nil, &InvalidParamError{
				Param:  "grid",
				Reason: fmt.Sprintf("dimension %d: max %d below min %d", i, b[1], b[0]),
			}
		}
		for v := b[0]; v <= b[1]; v++ {
			domains[i] = append(domains[i], float64(v))
		}
	}
	return NewGrid(domains...)
}

// Dims returns the number of dimensions.
func (g *Grid) Dims() int { return len(g.domains) }

// Domain returns the ordered values of dimension i.
func (g *Grid) Domain(i int) []float64 { return g.domains[i] }

// Size returns the total number of grid points.
func (g *Grid) Size() int {
	size := 1
	for _, d := range g.domains {
		size *= len(d)
	}
	return size
}

// SmallestDomain returns the length of the shortest dimension.
func (g *Grid) SmallestDomain() int {
	smallest := len(g.domains[0])
	for _, d := range g.domains[1:] {
		if len(d) < smallest {
			smallest = len(d)
		}
	}
	return smallest
}

// Contains reports whether every component of v belongs to the matching
// domain.
func (g *Grid) Contains(v ParameterVector) bool {
	if len(v) != len(g.domains) {
		return false
	}
	for i, val := range v {
		if g.IndexOf(i, val) < 0 {
			return false
		}
	}
	return true
}

// IndexOf returns the index of value in dimension i, or -1 when the value is
// not a member of the domain.
func (g *Grid) IndexOf(i int, value float64) int {
	d := g.domains[i]
	idx := sort.SearchFloat64s(d, value)
	if idx < len(d) && d[idx] == value {
		return idx
	}
	return -1
}

// Closest snaps an arbitrary point onto the grid by picking, per dimension,
// the domain value with the smallest absolute distance.
func (g *Grid) Closest(v ParameterVector) ParameterVector {
	snapped := make(ParameterVector, len(g.domains))
	for i, d := range g.domains {
		best := d[0]
		bestDist := math.Abs(v[i] - d[0])
		for _, candidate := range d[1:] {
			if dist := math.Abs(v[i] - candidate); dist < bestDist {
				best = candidate
				bestDist = dist
			}
		}
		snapped[i] = best
	}
	return snapped
}

// Enumerate returns every point of the grid, last dimension varying fastest.
// The result is freshly allocated on each call.
func (g *Grid) Enumerate() []ParameterVector {
	points := make([]ParameterVector, 0, g.Size())
	current := make([]int, len(g.domains))
	for {
		point := make(ParameterVector, len(g.domains))
		for i, idx := range current {
			point[i] = g.domains[i][idx]
		}
		points = append(points, point)

		axis := len(current) - 1
		for axis >= 0 {
			current[axis]++
			if current[axis] < len(g.domains[axis]) {
				break
			}
			current[axis] = 0
			axis--
		}
		if axis < 0 {
			return points
		}
	}
}

// Bounds returns the (min, max) pair of each dimension.
func (g *Grid) Bounds() [][2]float64 {
	bounds := make([][2]float64, len(g.domains))
	for i, d := range g.domains {
		bounds[i] = [2]float64{d[0], d[len(d)-1]}
	}
	return bounds
}

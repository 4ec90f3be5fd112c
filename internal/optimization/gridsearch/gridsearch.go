// Package gridsearch provides the two baseline heuristics: uniform random
// draws over the grid and exhaustive enumeration of it.
package gridsearch

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/perfkit/gridtune/internal/optimization"
)

func init() {
	optimization.RegisterHeuristic("random_search", func(cfg interface{}) (optimization.Heuristic, error) {
		c, err := coerce(cfg)
		if err != nil {
			return nil, err
		}
		return NewRandom(c), nil
	})
	optimization.RegisterHeuristic("exhaustive_search", func(cfg interface{}) (optimization.Heuristic, error) {
		if _, err := coerce(cfg); err != nil {
			return nil, err
		}
		return NewExhaustive(), nil
	})
}

// Config holds the recognized options for both baseline heuristics.
type Config struct {
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
}

func coerce(cfg interface{}) (Config, error) {
	switch c := cfg.(type) {
	case nil:
		return Config{}, nil
	case Config:
		return c, nil
	case *Config:
		return *c, nil
	default:
		return Config{}, &optimization.InvalidParamError{
			Param:  "heuristic_config",
			Reason: fmt.Sprintf("expected gridsearch.Config, got %T", cfg),
		}
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Random draws a grid point uniformly at random on every call. It keeps no
// search state.
type Random struct {
	rng    *rand.Rand
	tested int
}

// NewRandom builds a random-search heuristic.
func NewRandom(cfg Config) *Random {
	return &Random{rng: newRand(cfg.Seed)}
}

// ChooseNext implements optimization.Heuristic.
func (r *Random) ChooseNext(_ *optimization.AggregatedHistory, grid *optimization.Grid) (optimization.ParameterVector, error) {
	point := make(optimization.ParameterVector, grid.Dims())
	for i := range point {
		domain := grid.Domain(i)
		point[i] = domain[r.rng.Intn(len(domain))]
	}
	r.tested++
	return point, nil
}

// Summary implements optimization.Heuristic.
func (r *Random) Summary() string {
	return fmt.Sprintf("random search: %d draws", r.tested)
}

// Reset implements optimization.Heuristic.
func (r *Random) Reset() { r.tested = 0 }

// Exhaustive walks the enumerated grid in order, one point per feedback
// iteration. Once the grid is spent it keeps returning the last point.
type Exhaustive struct {
	tested int
}

// NewExhaustive builds an exhaustive-search heuristic.
func NewExhaustive() *Exhaustive {
	return &Exhaustive{}
}

// ChooseNext implements optimization.Heuristic. The cursor is the number of
// non-initialization trials recorded so far, so initialization draws do not
// skip grid points.
func (e *Exhaustive) ChooseNext(history *optimization.AggregatedHistory, grid *optimization.Grid) (optimization.ParameterVector, error) {
	cursor := 0
	for i := 0; i < history.Raw.Len(); i++ {
		if !history.Raw.At(i).Initialization {
			cursor++
		}
	}
	e.tested++
	points := grid.Enumerate()
	if cursor >= len(points) {
		return points[len(points)-1], nil
	}
	return points[cursor], nil
}

// Summary implements optimization.Heuristic.
func (e *Exhaustive) Summary() string {
	return fmt.Sprintf("exhaustive search: %d parametrizations tested", e.tested)
}

// Reset implements optimization.Heuristic.
func (e *Exhaustive) Reset() { e.tested = 0 }

// Package objective provides named synthetic black-box functions. The
// service and the CLI dispatch on these names; they stand in for the real
// job wrapper during development and demos.
package objective

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/perfkit/gridtune/internal/optimization"
)

// Spec describes one registered objective.
type Spec struct {
	Name        string
	Description string
	// New builds a fresh evaluator instance, so experiments never share
	// evaluator state.
	New func() optimization.Evaluator
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Spec)
)

// Register adds a named objective. Duplicate names panic, as with the
// heuristic registry.
func Register(spec Spec) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[spec.Name]; dup {
		panic(fmt.Sprintf("objective: %q registered twice", spec.Name))
	}
	registry[spec.Name] = spec
}

// Get returns the named objective.
func Get(name string) (Spec, error) {
	mu.RLock()
	defer mu.RUnlock()
	spec, ok := registry[name]
	if !ok {
		return Spec{}, &optimization.InvalidParamError{
			Param:  "objective",
			Reason: fmt.Sprintf("unknown objective %q, registered: %v", name, Names()),
		}
	}
	return spec, nil
}

// Names lists the registered objective names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sphere(params optimization.ParameterVector) float64 {
	var sum float64
	for _, v := range params {
		sum += v * v
	}
	return sum
}

func init() {
	Register(Spec{
		Name:        "sphere",
		Description: "sum of squared components, minimum at the origin",
		New: func() optimization.Evaluator {
			return optimization.EvaluatorFunc(func(_ context.Context, p optimization.ParameterVector) (float64, error) {
				return sphere(p), nil
			})
		},
	})
	Register(Spec{
		Name:        "noisy_sphere",
		Description: "sphere with additive gaussian measurement noise (sigma 0.5)",
		New: func() optimization.Evaluator {
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			var rngMu sync.Mutex
			return optimization.EvaluatorFunc(func(_ context.Context, p optimization.ParameterVector) (float64, error) {
				rngMu.Lock()
				noise := rng.NormFloat64() * 0.5
				rngMu.Unlock()
				return sphere(p) + noise, nil
			})
		},
	})
	Register(Spec{
		Name:        "slow_sphere",
		Description: "sphere whose evaluation latency grows with the fitness, for pruning demos",
		New:         func() optimization.Evaluator { return &slowSphere{} },
	})
}

// slowSphere sleeps proportionally to the fitness before answering, so bad
// parametrizations are expensive and worth pruning. It honors cancellation
// and counts interrupt-hook invocations.
type slowSphere struct {
	interrupts int
	mu         sync.Mutex
}

func (s *slowSphere) Evaluate(ctx context.Context, p optimization.ParameterVector) (float64, error) {
	value := sphere(p)
	delay := time.Duration(value) * 10 * time.Millisecond
	select {
	case <-time.After(delay):
		return value, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *slowSphere) OnInterrupt() {
	s.mu.Lock()
	s.interrupts++
	s.mu.Unlock()
}

// Interrupts reports how many evaluations were interrupted.
func (s *slowSphere) Interrupts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupts
}

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfkit/gridtune/internal/optimization"
)

// blockingEvaluator never finishes until its context is canceled, and counts
// interrupt-hook invocations.
type blockingEvaluator struct {
	mu         sync.Mutex
	interrupts int
}

func (b *blockingEvaluator) Evaluate(ctx context.Context, _ optimization.ParameterVector) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (b *blockingEvaluator) OnInterrupt() {
	b.mu.Lock()
	b.interrupts++
	b.mu.Unlock()
}

func (b *blockingEvaluator) Interrupts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interrupts
}

func TestPrunerFastEvaluationIsNotTruncated(t *testing.T) {
	p := newPruner(10, time.Millisecond, nil)

	value, truncated, err := p.supervise(context.Background(),
		optimization.EvaluatorFunc(func(context.Context, optimization.ParameterVector) (float64, error) {
			return 7, nil
		}),
		optimization.ParameterVector{1})

	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, 7.0, value)
}

func TestPrunerTruncatesAndRecordsThreshold(t *testing.T) {
	// Wall-clock step cost in seconds against a tiny bound: the blocked
	// evaluation must be cut and the trial records the bound itself.
	evaluator := &blockingEvaluator{}
	p := newPruner(0.02, time.Millisecond, nil)

	value, truncated, err := p.supervise(context.Background(), evaluator, optimization.ParameterVector{1})

	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, 0.02, value)
	assert.Equal(t, 1, evaluator.Interrupts(), "interrupt hook fires exactly once")
}

func TestPrunerEvaluationErrorPropagates(t *testing.T) {
	boom := errors.New("exit status 1")
	p := newPruner(10, time.Millisecond, nil)

	_, truncated, err := p.supervise(context.Background(),
		optimization.EvaluatorFunc(func(context.Context, optimization.ParameterVector) (float64, error) {
			return 0, boom
		}),
		optimization.ParameterVector{1})

	assert.ErrorIs(t, err, boom)
	assert.False(t, truncated)
}

func TestPrunerParentCancellation(t *testing.T) {
	evaluator := &blockingEvaluator{}
	p := newPruner(1000, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, truncated, err := p.supervise(ctx, evaluator, optimization.ParameterVector{1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, truncated)
}

// stepCostEvaluator reports a custom step cost instead of wall-clock time.
type stepCostEvaluator struct {
	cost float64
	mu   sync.Mutex
}

func (s *stepCostEvaluator) Evaluate(ctx context.Context, _ optimization.ParameterVector) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *stepCostEvaluator) StepCost() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cost
}

func (s *stepCostEvaluator) setCost(c float64) {
	s.mu.Lock()
	s.cost = c
	s.mu.Unlock()
}

func TestPrunerUsesEvaluatorStepCost(t *testing.T) {
	evaluator := &stepCostEvaluator{}
	p := newPruner(100, time.Millisecond, nil)

	done := make(chan struct{})
	var truncated bool
	var value float64
	go func() {
		defer close(done)
		var err error
		value, truncated, err = p.supervise(context.Background(), evaluator, optimization.ParameterVector{1})
		assert.NoError(t, err)
	}()

	// Below the bound the evaluation must keep running.
	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("evaluation truncated below the cost bound")
	default:
	}

	evaluator.setCost(101)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evaluation not truncated after the cost bound was crossed")
	}
	assert.True(t, truncated)
	assert.Equal(t, 100.0, value)
}

func TestEngineRecordsTruncatedTrial(t *testing.T) {
	// One initialization trial completes fast; every feedback trial
	// blocks and gets truncated at the bound.
	evaluator := &mixedEvaluator{fastCalls: 1}

	eng, err := New(Config{
		Grid:              mustGrid(t, [2]int{0, 9}),
		Evaluator:         evaluator,
		Heuristic:         "random_search",
		InitialSampleSize: 1,
		MaxIteration:      2,
		Pruning:           true,
		MaxStepCost:       0.02,
		PollInterval:      time.Millisecond,
		Seed:              11,
	})
	require.NoError(t, err)

	res, err := eng.Optimize(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trials, 3)
	assert.False(t, res.Trials[0].Truncated, "initialization runs unpruned")
	assert.True(t, res.Trials[1].Truncated)
	assert.True(t, res.Trials[2].Truncated)
	assert.Equal(t, []float64{0.02}, res.Trials[1].RawObservations)
	assert.Equal(t, 2, res.Summary.TruncatedTrials)
	assert.Equal(t, 2, evaluator.Interrupts())
}

// mixedEvaluator answers the first fastCalls evaluations immediately and
// blocks afterwards.
type mixedEvaluator struct {
	mu         sync.Mutex
	calls      int
	fastCalls  int
	interrupts int
}

func (m *mixedEvaluator) Evaluate(ctx context.Context, p optimization.ParameterVector) (float64, error) {
	m.mu.Lock()
	m.calls++
	fast := m.calls <= m.fastCalls
	m.mu.Unlock()
	if fast {
		return 1, nil
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func (m *mixedEvaluator) OnInterrupt() {
	m.mu.Lock()
	m.interrupts++
	m.mu.Unlock()
}

func (m *mixedEvaluator) Interrupts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interrupts
}

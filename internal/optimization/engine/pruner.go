package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/perfkit/gridtune/internal/optimization"
)

// pruner supervises one evaluation at a time: the evaluation runs on a
// background goroutine while the pruner polls its step cost and cancels the
// evaluation once the cost exceeds the configured bound.
type pruner struct {
	maxStepCost  float64
	pollInterval time.Duration
	logger       *zap.Logger
}

func newPruner(maxStepCost float64, pollInterval time.Duration, logger *zap.Logger) *pruner {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pruner{
		maxStepCost:  maxStepCost,
		pollInterval: pollInterval,
		logger:       logger.Named("pruner"),
	}
}

type evalOutcome struct {
	value float64
	err   error
}

// supervise runs one evaluation under the step-cost bound. A truncated trial
// reports the cost bound itself as its observed value, since the bound is the
// only known lower bound on the true cost. The evaluator's interrupt hook
// runs at most once.
func (p *pruner) supervise(ctx context.Context, evaluator optimization.Evaluator, params optimization.ParameterVector) (value float64, truncated bool, err error) {
	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	stepCost := func() float64 { return time.Since(start).Seconds() }
	if coster, ok := evaluator.(optimization.StepCoster); ok {
		stepCost = coster.StepCost
	}

	var interruptOnce sync.Once
	interrupt := func() {
		if hook, ok := evaluator.(optimization.Interrupter); ok {
			interruptOnce.Do(hook.OnInterrupt)
		}
	}

	done := make(chan evalOutcome, 1)
	go func() {
		v, evalErr := evaluator.Evaluate(evalCtx, params)
		done <- evalOutcome{value: v, err: evalErr}
	}()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case outcome := <-done:
			return outcome.value, false, outcome.err

		case <-ctx.Done():
			cancel()
			interrupt()
			// Let the evaluation goroutine observe the cancellation
			// before returning; best effort only.
			<-done
			return 0, false, ctx.Err()

		case <-ticker.C:
			cost := stepCost()
			if cost <= p.maxStepCost {
				continue
			}
			p.logger.Info("truncating evaluation",
				zap.Float64("step_cost", cost),
				zap.Float64("max_step_cost", p.maxStepCost),
				zap.Any("parameters", params),
			)
			cancel()
			interrupt()
			<-done
			return p.maxStepCost, true, nil
		}
	}
}

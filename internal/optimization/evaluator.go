package optimization

import "context"

// Evaluator is the black-box under tuning: it maps a parametrization to a
// scalar fitness (lower is better). An evaluation may be long-running; it
// must honor context cancellation on a best-effort basis.
type Evaluator interface {
	Evaluate(ctx context.Context, params ParameterVector) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, params ParameterVector) (float64, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, params ParameterVector) (float64, error) {
	return f(ctx, params)
}

// StepCoster is optionally implemented by evaluators that can report the
// running cost of the in-flight evaluation. When absent, the pruning
// controller falls back to elapsed wall-clock seconds.
type StepCoster interface {
	StepCost() float64
}

// Interrupter is optionally implemented by evaluators that need to clean up
// when an evaluation is pruned (kill a job, release an allocation). The
// pruning controller calls OnInterrupt at most once per supervised
// evaluation.
type Interrupter interface {
	OnInterrupt()
}

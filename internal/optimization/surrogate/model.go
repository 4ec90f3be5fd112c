// Package surrogate implements the surrogate-model search heuristic: a
// regression model fitted on the trial history approximates the black-box
// function, and an acquisition rule picks the next parametrization from the
// model's predictions.
package surrogate

import (
	"gonum.org/v1/gonum/mat"
)

// Model is the regression contract the heuristic needs: fit from observed
// samples, then predict with uncertainty. Custom regressors plug in by
// implementing this interface.
type Model interface {
	// Fit trains the model on rows of X (one parametrization per row)
	// against the pooled fitness values y.
	Fit(X *mat.Dense, y *mat.VecDense) error

	// Predict returns the posterior mean and standard deviation at each
	// row of X.
	Predict(X *mat.Dense) (mean, std *mat.VecDense, err error)
}

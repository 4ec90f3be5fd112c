package surrogate

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/kernels"
)

// GP is a Gaussian process regressor. It is the default surrogate: exact
// inference via Cholesky factorization of the kernel matrix, with escalating
// diagonal jitter when the matrix is close to singular and an SVD
// pseudo-inverse as the final fallback.
type GP struct {
	kernel   kernels.Kernel
	noiseVar float64

	// Training data, copied at Fit time.
	x *mat.Dense
	y *mat.VecDense

	alpha *mat.VecDense
	chol  *mat.Cholesky

	logger *zap.Logger
}

// NewGP builds a Gaussian process on the given kernel. noiseVar is the
// observation noise added to the kernel diagonal; a small positive value also
// keeps the factorization stable. A nil logger disables logging.
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) (*GP, error) {
	if kernel == nil {
		return nil, &optimization.InvalidParamError{Param: "kernel", Reason: "must not be nil"}
	}
	if noiseVar < 0 {
		return nil, &optimization.InvalidParamError{
			Param:  "noise_variance",
			Reason: fmt.Sprintf("must be non-negative, got %v", noiseVar),
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named("gaussian_process"),
	}, nil
}

// Fit trains the regressor on the observed samples.
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		return optimization.WrapError(errors.New("training data must not be nil"), op)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return optimization.WrapError(errors.New("training data must not be empty"), op)
	}
	if nSamples != y.Len() {
		err := fmt.Errorf("dimension mismatch: X has %d samples but y has length %d",
			nSamples, y.Len())
		return optimization.WrapError(err, op)
	}

	gp.logger.Debug("fitting surrogate",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	gp.x = mat.DenseCopyOf(X)
	gp.y = mat.VecDenseCopyOf(y)

	K := gp.kernelMatrix(gp.x, nSamples)
	for i := 0; i < nSamples; i++ {
		K.SetSym(i, i, K.At(i, i)+gp.noiseVar)
	}

	alpha, chol, err := gp.solve(K, gp.y)
	if err != nil {
		return optimization.WrapError(err, op)
	}
	gp.alpha = alpha
	gp.chol = chol

	return nil
}

// Predict returns the posterior mean and standard deviation at each row of X.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, nil, optimization.WrapError(errors.New("query matrix must not be nil"), op)
	}
	if gp.x == nil || gp.alpha == nil {
		return nil, nil, optimization.WrapError(errors.New("model is not fitted"), op)
	}

	nTest, _ := X.Dims()
	nTrain, _ := gp.x.Dims()

	// Cross covariance between query and training points, plus the prior
	// variance at each query point.
	kss := make([]float64, nTest)
	kStar := mat.NewDense(nTest, nTrain, nil)
	for i := 0; i < nTest; i++ {
		xq := X.RawRowView(i)
		kss[i] = gp.kernel.Eval(xq, xq) + gp.noiseVar
		for j := 0; j < nTrain; j++ {
			kStar.Set(i, j, gp.kernel.Eval(xq, gp.x.RawRowView(j)))
		}
	}

	mean := mat.NewVecDense(nTest, nil)
	mean.MulVec(kStar, gp.alpha)

	std := mat.NewVecDense(nTest, nil)
	if gp.chol != nil {
		v := mat.NewDense(nTrain, nTest, nil)
		if err := v.Solve(gp.chol, kStar.T()); err != nil {
			return nil, nil, optimization.WrapError(
				fmt.Errorf("posterior variance solve failed: %w", err), op)
		}
		for i := 0; i < nTest; i++ {
			var sum float64
			for j := 0; j < nTrain; j++ {
				val := v.At(j, i)
				sum += val * val
			}
			// Numerical noise can push the variance slightly negative.
			std.SetVec(i, math.Sqrt(math.Max(0, kss[i]-sum)))
		}
	} else {
		// SVD fallback path has no Cholesky factor; report the prior
		// uncertainty rather than none at all.
		for i := 0; i < nTest; i++ {
			std.SetVec(i, math.Sqrt(math.Max(0, kss[i])))
		}
	}

	return mean, std, nil
}

func (gp *GP) kernelMatrix(X *mat.Dense, nSamples int) *mat.SymDense {
	K := mat.NewSymDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		x1 := X.RawRowView(i)
		K.SetSym(i, i, gp.kernel.Eval(x1, x1))
		for j := i + 1; j < nSamples; j++ {
			K.SetSym(i, j, gp.kernel.Eval(x1, X.RawRowView(j)))
		}
	}
	return K
}

// solve computes alpha = K^-1 y. Cholesky is attempted with escalating jitter
// on the diagonal; when every attempt fails the system falls back to an SVD
// pseudo-inverse, which returns a nil Cholesky factor.
func (gp *GP) solve(K *mat.SymDense, y *mat.VecDense) (*mat.VecDense, *mat.Cholesky, error) {
	n := y.Len()
	jitter := 1e-12
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		jittered := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				val := K.At(i, j)
				if i == j {
					val += jitter
				}
				jittered.SetSym(i, j, val)
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(jittered); !ok {
			gp.logger.Debug("Cholesky factorization failed, increasing jitter",
				zap.Int("attempt", attempt+1),
				zap.Float64("jitter", jitter))
			jitter *= 10
			continue
		}

		alpha := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(alpha, y); err != nil {
			jitter *= 10
			continue
		}
		return alpha, &chol, nil
	}

	gp.logger.Debug("falling back to SVD solver", zap.Float64("last_jitter", jitter))
	alpha, err := gp.solveWithSVD(K, y)
	if err != nil {
		return nil, nil, err
	}
	return alpha, nil, nil
}

func (gp *GP) solveWithSVD(K *mat.SymDense, y *mat.VecDense) (*mat.VecDense, error) {
	n := y.Len()

	var svd mat.SVD
	if ok := svd.Factorize(K, mat.SVDFull); !ok {
		return nil, errors.New("SVD factorization failed")
	}

	s := svd.Values(nil)
	if len(s) == 0 {
		return nil, errors.New("SVD returned no singular values")
	}

	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)

	// alpha = V * S^+ * U^T * y, truncating singular values below the
	// numerical rank threshold.
	uty := mat.NewVecDense(n, nil)
	uty.MulVec(U.T(), y)

	threshold := float64(n) * s[0] * 1e-15
	rank := 0
	scaled := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if s[i] > threshold {
			scaled.SetVec(i, uty.AtVec(i)/s[i])
			rank++
		}
	}
	if rank == 0 {
		return nil, errors.New("kernel matrix is effectively rank zero")
	}

	alpha := mat.NewVecDense(n, nil)
	alpha.MulVec(&V, scaled)

	gp.logger.Debug("solved system with SVD",
		zap.Int("effective_rank", rank),
		zap.Float64("max_singular_value", s[0]),
		zap.Float64("min_singular_value", s[len(s)-1]),
	)

	return alpha, nil
}

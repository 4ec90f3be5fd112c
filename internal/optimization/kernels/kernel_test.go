package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBF(t *testing.T) {
	tests := []struct {
		name     string
		x1       []float64
		x2       []float64
		ls       float64
		sv       float64
		expected float64
	}{
		{
			name:     "same point",
			x1:       []float64{1.0, 2.0},
			x2:       []float64{1.0, 2.0},
			ls:       1.0,
			sv:       1.0,
			expected: 1.0,
		},
		{
			name:     "different points",
			x1:       []float64{0.0, 0.0},
			x2:       []float64{1.0, 1.0},
			ls:       1.0,
			sv:       1.0,
			expected: math.Exp(-1.0), // exp(-0.5 * (1+1) / 1^2)
		},
		{
			name:     "different length scale",
			x1:       []float64{0.0, 0.0},
			x2:       []float64{2.0, 2.0},
			ls:       2.0,
			sv:       1.0,
			expected: math.Exp(-1.0), // exp(-0.5 * (2^2 + 2^2) / 2^2)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernel, err := NewRBF(tt.ls, tt.sv)
			require.NoError(t, err)

			result := kernel.Eval(tt.x1, tt.x2)
			assert.InDelta(t, tt.expected, result, 1e-10)

			// Symmetry.
			assert.InDelta(t, result, kernel.Eval(tt.x2, tt.x1), 1e-10)
		})
	}
}

func TestMatern52(t *testing.T) {
	tests := []struct {
		name     string
		ls       float64
		sv       float64
		x1, x2   []float64
		expected float64
	}{
		{
			name:     "same point",
			ls:       1.0,
			sv:       1.0,
			x1:       []float64{1.0, 2.0},
			x2:       []float64{1.0, 2.0},
			expected: 1.0,
		},
		{
			name:     "different points",
			ls:       1.0,
			sv:       1.0,
			x1:       []float64{0.0, 0.0},
			x2:       []float64{1.0, 1.0},
			expected: (1.0 + math.Sqrt(5)*math.Sqrt(2) + (5.0/3.0)*2) * math.Exp(-math.Sqrt(5)*math.Sqrt(2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernel, err := NewMatern52(tt.ls, tt.sv)
			require.NoError(t, err)

			result := kernel.Eval(tt.x1, tt.x2)
			assert.InDelta(t, tt.expected, result, 1e-10)
			assert.InDelta(t, result, kernel.Eval(tt.x2, tt.x1), 1e-10)
		})
	}
}

func TestKernelValidation(t *testing.T) {
	_, err := NewRBF(0, 1.0)
	assert.ErrorContains(t, err, "length_scale")

	_, err = NewRBF(1.0, -1.0)
	assert.ErrorContains(t, err, "signal_variance")

	_, err = NewMatern52(-2.0, 1.0)
	assert.ErrorContains(t, err, "length_scale")

	_, err = NewMatern52(1.0, 0)
	assert.ErrorContains(t, err, "signal_variance")
}

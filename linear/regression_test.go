package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name    string
		X       *mat.Dense
		y       *mat.VecDense
		wantErr bool
	}{
		{
			name: "simple linear relationship y = 2x + 1",
			X:    mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5}),
			y: mat.NewVecDense(5, []float64{
				3.0,  // 2*1 + 1
				5.0,  // 2*2 + 1
				7.0,  // 2*3 + 1
				9.0,  // 2*4 + 1
				11.0, // 2*5 + 1
			}),
		},
		{
			name: "multiple features",
			X: mat.NewDense(5, 2, []float64{
				1.0, 2.0,
				2.0, 1.0,
				3.0, 4.0,
				4.0, 3.0,
				5.0, 5.0,
			}),
			y: mat.NewVecDense(5, []float64{
				5.0,  // 1*1 + 2*2
				4.0,  // 1*2 + 2*1
				11.0, // 1*3 + 2*4
				10.0, // 1*4 + 2*3
				15.0, // 1*5 + 2*5
			}),
		},
		{
			name: "mismatched dimensions",
			X: mat.NewDense(3, 2, []float64{
				1.0, 2.0,
				3.0, 4.0,
				5.0, 6.0,
			}),
			y:       mat.NewVecDense(2, []float64{1.0, 2.0}),
			wantErr: true,
		},
		{
			name:    "fewer samples than parameters",
			X:       mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			y:       mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			err := lr.Fit(tt.X, tt.y)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, lr.IsFitted())
				return
			}
			require.NoError(t, err)
			assert.True(t, lr.IsFitted())
		})
	}
}

func TestLinearRegression_Coefficients(t *testing.T) {
	// y = 3 + 1.5*x1 - 2*x2
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
		2, 3,
		4, 1,
	})
	y := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		y.SetVec(i, 3+1.5*X.At(i, 0)-2*X.At(i, 1))
	}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	assert.InDelta(t, 3.0, lr.Intercept(), 1e-9)
	w := lr.Weights()
	require.Len(t, w, 2)
	assert.InDelta(t, 1.5, w[0], 1e-9)
	assert.InDelta(t, -2.0, w[1], 1e-9)

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestLinearRegression_NoisyFit(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewVecDense(8, []float64{2.1, 3.9, 6.2, 7.8, 10.1, 12.2, 13.8, 16.1})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	w := lr.Weights()
	assert.InDelta(t, 2.0, w[0], 0.1)
	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)
}

func TestLinearRegression_Predict(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{3, 5, 7, 9})

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(mat.NewDense(2, 1, []float64{0, 10}))
	require.NoError(t, err)
	rows, cols := pred.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)
	assert.InDelta(t, 1.0, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 21.0, pred.At(1, 0), 1e-9)
}

func TestLinearRegression_PredictErrors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	var notFitted *ssErrors.NotFittedError
	require.True(t, ssErrors.As(err, &notFitted))
	assert.Equal(t, "LinearRegression", notFitted.ModelName)
	assert.Equal(t, "Predict", notFitted.Method)

	require.NoError(t, lr.Fit(
		mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
		mat.NewVecDense(4, []float64{1, 2, 3, 4}),
	))
	_, err = lr.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var dimErr *ssErrors.DimensionError
	require.True(t, ssErrors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
}

func TestLinearRegression_Singular(t *testing.T) {
	// The second column carries no information.
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		2, 0,
		3, 0,
		4, 0,
	})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	lr := NewLinearRegression()
	err := lr.Fit(X, y)
	require.Error(t, err)
	assert.True(t, ssErrors.Is(err, ssErrors.ErrSingularMatrix))
	assert.False(t, lr.IsFitted())
}

func TestLinearRegression_String(t *testing.T) {
	lr := NewLinearRegression()
	assert.Equal(t, "LinearRegression(fitted=false)", lr.String())

	require.NoError(t, lr.Fit(
		mat.NewDense(3, 1, []float64{0, 1, 2}),
		mat.NewVecDense(3, []float64{1, 1, 1}),
	))
	assert.Contains(t, lr.String(), "features=1")
	assert.False(t, math.IsNaN(lr.Intercept()))
}

package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/metrics"
	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// separable returns n points in 2D labelled by the sign of x0 + x1.
func separable(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		if a+b > 0 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestAdam_MinimizesQuadratic(t *testing.T) {
	w := []float64{0}
	g := []float64{0}
	opt := NewAdam(0.1)
	for i := 0; i < 500; i++ {
		g[0] = 2 * (w[0] - 3)
		opt.Step([][]float64{w}, [][]float64{g})
	}
	assert.InDelta(t, 3.0, w[0], 0.05)
}

func TestSequential_GradientCheck(t *testing.T) {
	losses := []Loss{BinaryCrossEntropy{}, MeanSquaredError{}}
	for _, loss := range losses {
		t.Run(loss.Name(), func(t *testing.T) {
			net := NewMLP(3, 2, 4, loss, WithSeed(3))
			X := mat.NewDense(5, 3, []float64{
				0.1, -0.2, 0.3,
				1.0, 0.5, -0.5,
				-1.2, 0.3, 0.8,
				0.4, 0.4, 0.4,
				-0.3, -0.9, 0.2,
			})
			y := mat.NewDense(5, 1, []float64{0, 1, 0, 1, 1})
			// Nonzero biases keep every ReLU input off the kink at 0, where
			// the central difference is only half the one-sided slope.
			for _, layer := range net.Layers() {
				for j := range layer.B {
					layer.B[j] = 0.1 + 0.05*float64(j)
				}
			}

			out := net.forward(X)
			net.backward(loss.Gradient(y, out))

			const h = 1e-6
			for _, layer := range net.Layers() {
				params, grads := layer.params()
				for k := range params {
					for i := range params[k] {
						analytic := grads[k][i]
						orig := params[k][i]
						params[k][i] = orig + h
						plus := loss.Value(y, net.forward(X))
						params[k][i] = orig - h
						minus := loss.Value(y, net.forward(X))
						params[k][i] = orig
						numeric := (plus - minus) / (2 * h)
						assert.InDelta(t, numeric, analytic, 1e-5)
					}
				}
			}
		})
	}
}

func TestLogistic_LearnsSeparableData(t *testing.T) {
	X, y := separable(400, 1)
	net := NewLinear(2, BinaryCrossEntropy{},
		WithEpochs(30),
		WithLearningRate(0.05),
		WithValidationSplit(0.1),
		WithSeed(0),
	)
	require.NoError(t, net.Fit(X, y))

	eval, err := net.Evaluate(X, y)
	require.NoError(t, err)
	assert.Greater(t, eval[model.SeriesAUC], 0.97)
	assert.Less(t, eval[model.SeriesLoss], 0.4)

	proba, err := net.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 400, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 1.0, proba.At(0, 0)+proba.At(0, 1), 1e-12)
}

func TestMLP_LearnsSeparableData(t *testing.T) {
	X, y := separable(400, 2)
	net := NewMLP(2, 2, 8, BinaryCrossEntropy{},
		WithEpochs(60),
		WithLearningRate(0.01),
		WithValidationSplit(0.1),
		WithSeed(0),
	)
	require.NoError(t, net.Fit(X, y))

	proba, err := net.PredictProba(X)
	require.NoError(t, err)
	auc, err := metrics.AUC(metrics.Column(y, 0), metrics.Column(proba, 1))
	require.NoError(t, err)
	assert.Greater(t, auc, 0.9)
	assert.Len(t, net.Layers(), 3)
}

func TestLinear_Regression(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := 300
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64()*2 - 1
		X.Set(i, 0, x)
		y.Set(i, 0, 2*x+1)
	}
	net := NewLinear(1, MeanSquaredError{}, WithEpochs(200), WithLearningRate(0.05), WithSeed(1))
	require.NoError(t, net.Fit(X, y))

	layer := net.Layers()[0]
	assert.InDelta(t, 2.0, layer.W.At(0, 0), 0.05)
	assert.InDelta(t, 1.0, layer.B[0], 0.05)

	eval, err := net.Evaluate(X, y)
	require.NoError(t, err)
	_, hasAUC := eval[model.SeriesAUC]
	assert.False(t, hasAUC)

	_, err = net.PredictProba(X)
	var ve *ssErrors.ValueError
	assert.True(t, ssErrors.As(err, &ve))

	mae := NewLinear(1, MeanAbsoluteError{}, WithEpochs(20), WithLearningRate(0.01), WithSeed(1))
	require.NoError(t, mae.Fit(X, y))
	losses := mae.History().Get(model.SeriesLoss)
	assert.Less(t, losses[len(losses)-1], losses[0])
}

func TestSequential_History(t *testing.T) {
	X, y := separable(100, 3)
	net := NewLinear(2, BinaryCrossEntropy{}, WithEpochs(5), WithValidationSplit(0.2))
	require.NoError(t, net.Fit(X, y))

	h := net.History()
	for _, name := range []string{model.SeriesLoss, model.SeriesAUC, model.SeriesValLoss, model.SeriesValAUC} {
		assert.Len(t, h.Get(name), 5, name)
	}

	reg := NewLinear(2, MeanSquaredError{}, WithEpochs(3))
	require.NoError(t, reg.Fit(X, y))
	assert.Equal(t, []string{model.SeriesLoss}, reg.History().Names())
}

func TestSequential_AdamStatePerTensor(t *testing.T) {
	X, y := separable(40, 6)
	net := NewMLP(2, 2, 8, MeanSquaredError{}, WithEpochs(2), WithBatchSize(20), WithShuffle(false))
	require.NoError(t, net.Fit(X, y))

	params, _ := net.parameters()
	require.Len(t, params, 6)
	require.Len(t, net.opt.m, len(params))
	for k := range params {
		assert.Len(t, net.opt.m[k], len(params[k]), "moment %d", k)
		assert.Len(t, net.opt.v[k], len(params[k]), "moment %d", k)
	}
	// Two batches per epoch, one optimizer step each.
	assert.Equal(t, 4, net.opt.t)
}

func TestSequential_RefitResetsHistory(t *testing.T) {
	X, y := separable(60, 7)
	net := NewLinear(2, BinaryCrossEntropy{}, WithEpochs(4), WithValidationSplit(0.2))
	require.NoError(t, net.Fit(X, y))
	require.NoError(t, net.Fit(X, y))

	assert.Equal(t, 4, net.History().Len())
	for _, name := range net.History().Names() {
		assert.Len(t, net.History().Get(name), 4, name)
	}
}

func TestSequential_Deterministic(t *testing.T) {
	X, y := separable(120, 5)
	fit := func() mat.Matrix {
		net := NewMLP(2, 2, 3, BinaryCrossEntropy{}, WithEpochs(3), WithSeed(9))
		require.NoError(t, net.Fit(X, y))
		out, err := net.Predict(X)
		require.NoError(t, err)
		return out
	}
	assert.True(t, mat.Equal(fit(), fit()))
}

func TestSequential_Errors(t *testing.T) {
	net := NewLinear(2, BinaryCrossEntropy{})

	_, err := net.Predict(mat.NewDense(1, 2, nil))
	var nf *ssErrors.NotFittedError
	assert.True(t, ssErrors.As(err, &nf))

	err = net.Fit(mat.NewDense(3, 3, nil), mat.NewDense(3, 1, nil))
	var de *ssErrors.DimensionError
	assert.True(t, ssErrors.As(err, &de))

	err = net.Fit(mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil))
	assert.True(t, ssErrors.As(err, &de))

	bad := NewLinear(2, BinaryCrossEntropy{}, WithEpochs(0))
	err = bad.Fit(mat.NewDense(3, 2, nil), mat.NewDense(3, 1, nil))
	var ve *ssErrors.ValidationError
	assert.True(t, ssErrors.As(err, &ve))
}

func TestActivation(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid.apply(0))
	assert.InDelta(t, 0.0, Sigmoid.apply(-800), 1e-300)
	assert.False(t, math.IsNaN(Sigmoid.apply(800)))
	assert.Equal(t, 0.0, ReLU.apply(-2))
	assert.Equal(t, 2.0, ReLU.apply(2))
	assert.Equal(t, "relu", ReLU.String())
}

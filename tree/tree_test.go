package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

func separable() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestDecisionTreeClassifier_Separable(t *testing.T) {
	for _, criterion := range []string{CriterionGini, CriterionEntropy} {
		t.Run(criterion, func(t *testing.T) {
			X, y := separable()
			dt := NewDecisionTreeClassifier(WithCriterion(criterion))
			require.NoError(t, dt.Fit(X, y))

			assert.True(t, dt.IsFitted())
			assert.Equal(t, 1, dt.Depth())
			assert.Equal(t, 2, dt.NLeaves())
			assert.Equal(t, 0, dt.Root().Feature)
			assert.InDelta(t, 6.5, dt.Root().Threshold, 1e-12)
			assert.Equal(t, []float64{0, 1}, dt.Classes())

			test := mat.NewDense(2, 1, []float64{0, 20})
			pred, err := dt.Predict(test)
			require.NoError(t, err)
			assert.Equal(t, 0.0, pred.At(0, 0))
			assert.Equal(t, 1.0, pred.At(1, 0))

			proba, err := dt.PredictProba(test)
			require.NoError(t, err)
			r, c := proba.Dims()
			assert.Equal(t, 2, r)
			assert.Equal(t, 2, c)
			assert.Equal(t, 1.0, proba.At(0, 0))
			assert.Equal(t, 1.0, proba.At(1, 1))

			score, err := dt.Score(X, y)
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)
		})
	}
}

func TestDecisionTreeClassifier_FeatureImportances(t *testing.T) {
	// Feature 0 is noise, feature 1 decides the class.
	X := mat.NewDense(8, 2, []float64{
		5, 0,
		1, 0,
		4, 0,
		2, 0,
		5, 1,
		1, 1,
		4, 1,
		2, 1,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	imp := dt.FeatureImportances()
	require.Len(t, imp, 2)
	assert.InDelta(t, 0.0, imp[0], 1e-12)
	assert.InDelta(t, 1.0, imp[1], 1e-12)
}

func TestDecisionTreeClassifier_GrowthLimits(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(8, 1, []float64{0, 1, 0, 1, 0, 1, 0, 1})

	t.Run("max depth", func(t *testing.T) {
		dt := NewDecisionTreeClassifier(WithMaxDepth(2))
		require.NoError(t, dt.Fit(X, y))
		assert.LessOrEqual(t, dt.Depth(), 2)
	})

	t.Run("unlimited depth fits training data", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		require.NoError(t, dt.Fit(X, y))
		score, err := dt.Score(X, y)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})

	t.Run("min samples leaf", func(t *testing.T) {
		dt := NewDecisionTreeClassifier(WithMinSamplesLeaf(5))
		require.NoError(t, dt.Fit(X, y))
		assert.Equal(t, 1, dt.NLeaves())
		proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{3}))
		require.NoError(t, err)
		assert.InDelta(t, 0.5, proba.At(0, 1), 1e-12)
	})
}

func TestDecisionTreeClassifier_FitRows(t *testing.T) {
	X, y := separable()
	dt := NewDecisionTreeClassifier()

	// Rows may repeat; classes still come from every row of y.
	require.NoError(t, dt.FitRows(X, y, []int{0, 0, 1, 1}))
	assert.Equal(t, 4, dt.Root().NSamples)
	assert.Equal(t, 1, dt.NLeaves())
	assert.Equal(t, []float64{0, 1}, dt.Classes())

	proba, err := dt.PredictProba(mat.NewDense(1, 1, []float64{11}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, proba.At(0, 0))
	assert.Equal(t, 0.0, proba.At(0, 1))

	err = dt.FitRows(X, y, []int{0, 6})
	assert.Error(t, err)
}

func TestDecisionTreeClassifier_Deterministic(t *testing.T) {
	X := mat.NewDense(10, 4, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*(j+3))%7))
		}
		y.Set(i, 0, float64(i%2))
	}

	fit := func() mat.Matrix {
		dt := NewDecisionTreeClassifier(WithMaxFeatures(2), WithRandomState(7))
		require.NoError(t, dt.Fit(X, y))
		proba, err := dt.PredictProba(X)
		require.NoError(t, err)
		return proba
	}
	assert.True(t, mat.Equal(fit(), fit()))
}

func TestDecisionTreeClassifier_Errors(t *testing.T) {
	X, y := separable()

	dt := NewDecisionTreeClassifier()
	_, err := dt.Predict(X)
	var notFitted *ssErrors.NotFittedError
	assert.True(t, ssErrors.As(err, &notFitted))

	err = NewDecisionTreeClassifier(WithCriterion("squared_error")).Fit(X, y)
	var validation *ssErrors.ValidationError
	require.True(t, ssErrors.As(err, &validation))
	assert.Equal(t, "criterion", validation.ParamName)

	err = dt.Fit(X, mat.NewDense(5, 1, nil))
	var dim *ssErrors.DimensionError
	assert.True(t, ssErrors.As(err, &dim))

	require.NoError(t, dt.Fit(X, y))
	_, err = dt.PredictProba(mat.NewDense(1, 2, nil))
	assert.True(t, ssErrors.As(err, &dim))
}

func TestDecisionTreeRegressor(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 5, 5, 5})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1, dt.Depth())
	assert.InDelta(t, 3.5, dt.Root().Threshold, 1e-12)

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{0, 9}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, pred.At(1, 0), 1e-12)

	score, err := dt.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	assert.Equal(t, []float64{1}, dt.FeatureImportances())
}

func TestDecisionTreeRegressor_LeafMeans(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 10, 20})

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	// The best single split isolates the largest value.
	assert.InDelta(t, 3.5, dt.Root().Threshold, 1e-12)
	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{1, 4}))
	require.NoError(t, err)
	assert.InDelta(t, 16.0/3, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 20.0, pred.At(1, 0), 1e-12)
}

func TestDecisionTreeRegressor_RejectsClassCriterion(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewDense(2, 1, []float64{1, 2})
	err := NewDecisionTreeRegressor(WithCriterion(CriterionGini)).Fit(X, y)
	assert.Error(t, err)
}

func TestSqrtFeatures(t *testing.T) {
	assert.Equal(t, 1, SqrtFeatures(0))
	assert.Equal(t, 1, SqrtFeatures(1))
	assert.Equal(t, 2, SqrtFeatures(6))
	assert.Equal(t, 3, SqrtFeatures(10))
}

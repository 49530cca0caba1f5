// Package linear provides the closed-form ordinary least squares baseline.
//
// LinearRegression solves min ||Xw + b - y||² directly with a QR-based least
// squares solve. It has no epochs and no history, so in profit regression
// reports it serves as the reference row the gradient-descent and tree
// models are compared against.
//
// Example usage:
//
//	lr := linear.NewLinearRegression()
//	if err := lr.Fit(XTrain, yTrain); err != nil {
//		return err
//	}
//	predictions, err := lr.Predict(XTest)
package linear

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/core/parallel"
	"github.com/ezoic/superstore/metrics"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

const modelName = "LinearRegression"

// LinearRegression is an ordinary least squares model.
type LinearRegression struct {
	state     *model.StateManager
	weights   *mat.VecDense
	intercept float64
	logger    log.Logger
}

// NewLinearRegression creates an untrained ordinary least squares model.
//
// The returned model must be trained using the Fit method before making
// predictions.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{
		state: model.NewStateManager(modelName),
		logger: log.GetLoggerWithName("linear").With(
			log.ModelNameKey, modelName,
			log.ComponentKey, "linear",
		),
	}
}

// IsFitted reports whether Fit has completed.
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// Fit estimates weights and intercept from X and y.
//
// Parameters:
//   - X: Feature matrix of shape (n_samples, n_features)
//   - y: Target column of shape (n_samples, 1)
//
// Errors:
//   - ErrEmptyData: if X is empty
//   - DimensionError: if X and y disagree on the number of samples
//   - ErrSingularMatrix: if the design matrix is rank deficient
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, modelName+".Fit")

	startTime := time.Now()
	r, c := X.Dims()
	ry, cy := y.Dims()

	lr.logger.Debug("Starting model training",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)

	if r == 0 || c == 0 {
		return ssErrors.NewModelError(modelName+".Fit", "empty data", ssErrors.ErrEmptyData)
	}
	if r != ry {
		return ssErrors.NewDimensionError(modelName+".Fit", r, ry, 0)
	}
	if cy != 1 {
		return ssErrors.NewDimensionError(modelName+".Fit", 1, cy, 1)
	}
	if r <= c {
		return ssErrors.NewValueError(modelName+".Fit",
			fmt.Sprintf("need more samples than features + 1, got %d samples and %d features", r, c))
	}

	// Prepend a column of ones so the intercept is solved with the weights.
	design := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, 1000, func(start, end int) {
		for i := start; i < end; i++ {
			design.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				design.Set(i, j+1, X.At(i, j))
			}
		}
	})

	target := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		target.SetVec(i, y.At(i, 0))
	}

	var coef mat.VecDense
	if err := coef.SolveVec(design, target); err != nil {
		if _, ok := err.(mat.Condition); ok {
			return ssErrors.Wrap(ssErrors.ErrSingularMatrix, "design matrix is rank deficient")
		}
		return ssErrors.NewModelError(modelName+".Fit", "least squares solve failed", err)
	}

	lr.intercept = coef.AtVec(0)
	lr.weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.weights.SetVec(j, coef.AtVec(j+1))
	}

	lr.state.SetDimensions(c, r)
	lr.state.SetFitted()

	lr.logger.Info("Model training completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	)
	return nil
}

// Predict returns X·w + b as an (n_samples × 1) matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, modelName+".Predict")

	r, c := X.Dims()
	if err := lr.state.CheckFeatures("Predict", c); err != nil {
		return nil, err
	}

	predictions := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, 1000, func(start, end int) {
		for i := start; i < end; i++ {
			pred := lr.intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * lr.weights.AtVec(j)
			}
			predictions.Set(i, 0, pred)
		}
	})

	lr.logger.Debug("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, r,
	)
	return predictions, nil
}

// Weights returns a copy of the learned coefficients.
func (lr *LinearRegression) Weights() []float64 {
	if lr.weights == nil {
		return nil
	}
	n := lr.weights.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = lr.weights.AtVec(i)
	}
	return out
}

// Intercept returns the learned bias term.
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// Score returns the coefficient of determination R² of the predictions on X.
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.Column(y, 0), metrics.Column(predictions, 0))
}

// String returns a short description of the model.
func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return "LinearRegression(fitted=false)"
	}
	nFeatures, nSamples := lr.state.GetDimensions()
	return fmt.Sprintf("LinearRegression(features=%d, samples=%d, intercept=%.4f)", nFeatures, nSamples, lr.intercept)
}

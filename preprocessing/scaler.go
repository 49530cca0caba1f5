// Package preprocessing provides the feature transforms of the pipeline.
//
// The package implements two components:
//
//   - StandardScaler: standardizes columns to zero mean and unit variance using
//     statistics adapted on the training rows only
//   - LabelEncoder: maps the distinct values of a categorical column to the
//     contiguous integers [0, k) in sorted order
//
// Example usage:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	if err := scaler.Fit(XTrain); err != nil {
//		return err
//	}
//	XTest, err := scaler.Transform(XTest)
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/core/parallel"
	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// minScale is the smallest standard deviation used as a divisor. Constant
// columns are scaled by 1 instead.
const minScale = 1e-8

// parallelColumnThreshold is the number of cells above which column
// statistics are computed concurrently.
const parallelColumnThreshold = 50000

// StandardScaler standardizes features by removing the mean and scaling to
// unit variance. Variance is the population variance, as in a normalization
// layer adapted on a batch.
type StandardScaler struct {
	state *model.StateManager

	// Mean is the per-feature mean seen during Fit.
	Mean []float64

	// Variance is the per-feature population variance seen during Fit.
	Variance []float64

	// Scale is the per-feature divisor, sqrt(Variance) or 1 for constant features.
	Scale []float64

	// WithMean controls centering (default: true).
	WithMean bool

	// WithStd controls scaling (default: true).
	WithStd bool
}

// NewStandardScaler creates a new StandardScaler for feature standardization.
//
// Parameters:
//   - withMean: whether to center the data at zero by removing the mean
//   - withStd: whether to scale the data to unit variance
//
// Returns:
//   - *StandardScaler: A new StandardScaler instance ready for fitting
//
// Example:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(XTrain)
//	XScaled, err := scaler.Transform(XTest)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager("StandardScaler"),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a StandardScaler that centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// NFeatures returns the number of features seen during Fit.
func (s *StandardScaler) NFeatures() int {
	n, _ := s.state.GetDimensions()
	return n
}

// Fit computes the per-feature mean and scale from the training data.
//
// Parameters:
//   - X: Training data matrix of shape (n_samples, n_features)
//
// Returns:
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - ErrEmptyData: if X has no rows or no columns
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return ssErrors.NewModelError("StandardScaler.Fit", "empty data", ssErrors.ErrEmptyData)
	}

	mean := make([]float64, c)
	variance := make([]float64, c)
	scale := make([]float64, c)

	parallel.ParallelizeWithThreshold(c, parallelColumnThreshold/r, func(start, end int) {
		col := make([]float64, r)
		for j := start; j < end; j++ {
			for i := 0; i < r; i++ {
				col[i] = X.At(i, j)
			}
			mean[j], variance[j] = stat.PopMeanVariance(col, nil)
		}
	})

	for j := 0; j < c; j++ {
		if !s.WithMean {
			mean[j] = 0
		}
		scale[j] = 1
		if s.WithStd {
			if sd := math.Sqrt(variance[j]); sd >= minScale {
				scale[j] = sd
			}
		}
	}

	s.Mean = mean
	s.Variance = variance
	s.Scale = scale
	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform applies (X - mean) / scale using the fitted statistics.
//
// Parameters:
//   - X: Input data matrix of shape (n_samples, n_features)
//
// Returns:
//   - mat.Matrix: Standardized data with the same shape as X
//   - error: nil if successful, otherwise an error describing the failure
//
// Errors:
//   - NotFittedError: if the scaler hasn't been fitted yet
//   - DimensionError: if X doesn't match the number of features from training
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, "StandardScaler.Transform")
	r, c := X.Dims()
	if err := s.state.CheckFeatures("Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler and transforms the training data in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, "StandardScaler.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale,
// X * scale + mean.
//
// Errors:
//   - NotFittedError: if the scaler hasn't been fitted yet
//   - DimensionError: if X doesn't match the number of features from training
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, "StandardScaler.InverseTransform")
	r, c := X.Dims()
	if err := s.state.CheckFeatures("InverseTransform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// GetParams returns the scaler's hyperparameters.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures())
}

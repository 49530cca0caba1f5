package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator learns from a feature matrix X (n_samples × n_features) and a
// target column y (n_samples × 1).
type Estimator interface {
	Fit(X, y mat.Matrix) error
	IsFitted() bool
}

// Predictor produces one output per row of X as an (n_samples × 1) matrix.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is a fitted model producing continuous outputs.
type Regressor interface {
	Estimator
	Predictor
}

// Classifier is a binary classifier exposing class probabilities.
type Classifier interface {
	Estimator
	Predictor

	// PredictProba returns an (n_samples × 2) matrix of P(class 0), P(class 1).
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// HistoryProvider is implemented by iterative learners that record metrics
// per epoch, boosting round or tree count.
type HistoryProvider interface {
	History() *History
}

// Transformer learns a column-wise transform of X.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}

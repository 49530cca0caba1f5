// Package metrics provides the evaluation metrics reported for each model.
//
// Classification metrics:
//   - AUC: area under the ROC curve of predicted scores
//   - BinaryLogLoss: binary cross-entropy of predicted probabilities
//   - Accuracy: fraction of correct 0/1 predictions
//
// Regression metrics:
//   - MSE, RMSE: (root) mean squared error
//   - MAE: mean absolute error
//   - R2Score: coefficient of determination
//
// All metrics take *mat.VecDense inputs. Column converts an (n×1) model
// output into a vector.
//
// Example usage:
//
//	proba, _ := clf.PredictProba(XTest)
//	auc, err := metrics.AUC(yTest, metrics.Column(proba, 1))
package metrics

import (
	"gonum.org/v1/gonum/mat"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Column copies column j of m into a vector.
func Column(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, ssErrors.NewValueError(op, "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, ssErrors.NewValueError(op, "input vectors cannot be empty")
	}
	if yPred.Len() != n {
		return 0, ssErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

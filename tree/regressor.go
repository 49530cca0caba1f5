package tree

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/metrics"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree minimizing squared error.
type DecisionTreeRegressor struct {
	base
}

// NewDecisionTreeRegressor creates a regression tree.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	params := defaultParams(CriterionSquaredError, opts)
	return &DecisionTreeRegressor{base: newBase("DecisionTreeRegressor", params)}
}

// Fit grows the tree on every row of X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return dt.FitRows(X, y, allRows(X))
}

// FitRows grows the tree on the given rows of X and y. Rows may repeat.
func (dt *DecisionTreeRegressor) FitRows(X, y mat.Matrix, rows []int) (err error) {
	defer ssErrors.Recover(&err, "DecisionTreeRegressor.FitRows")

	if err := dt.params.validate(true); err != nil {
		return err
	}
	if err := checkRows("DecisionTreeRegressor.Fit", X, y, rows); err != nil {
		return err
	}
	start := time.Now()
	n, p := X.Dims()

	target := make([]float64, n)
	for i := range target {
		target[i] = y.At(i, 0)
	}

	b := newBuilder(dt.params, X, newVarianceCriterion(target))
	dt.root = b.build(rows, 0)
	dt.importances = b.normalized()

	dt.state.SetDimensions(p, len(rows))
	dt.state.SetFitted()

	dt.logger.Debug("Tree grown",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(rows),
		log.FeaturesKey, p,
		log.TreeDepthKey, dt.Depth(),
		log.TreeLeavesKey, dt.NLeaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns the mean target of each row's leaf as (n_samples × 1).
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, p := X.Dims()
	if err := dt.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		predictions.Set(i, 0, dt.root.find(X, i).Value[0])
	}
	return predictions, nil
}

// Score returns R² of Predict on X against y.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.Column(y, 0), metrics.Column(predictions, 0))
}

func (dt *DecisionTreeRegressor) String() string {
	if !dt.IsFitted() {
		return "DecisionTreeRegressor(fitted=false)"
	}
	return fmt.Sprintf("DecisionTreeRegressor(depth=%d, leaves=%d)", dt.Depth(), dt.NLeaves())
}

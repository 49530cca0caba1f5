package tree

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	base
	classes []float64
}

// NewDecisionTreeClassifier creates a classifier using Gini impurity unless
// WithCriterion says otherwise.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	params := defaultParams(CriterionGini, opts)
	return &DecisionTreeClassifier{base: newBase("DecisionTreeClassifier", params)}
}

// Fit grows the tree on every row of X and y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitRows(X, y, allRows(X))
}

// FitRows grows the tree on the given rows of X and y. Rows may repeat, as in
// a bootstrap sample. Classes are taken from every row of y so that trees
// trained on different samples of the same data share class columns.
func (dt *DecisionTreeClassifier) FitRows(X, y mat.Matrix, rows []int) (err error) {
	defer ssErrors.Recover(&err, "DecisionTreeClassifier.FitRows")

	if err := dt.params.validate(false); err != nil {
		return err
	}
	if err := checkRows("DecisionTreeClassifier.Fit", X, y, rows); err != nil {
		return err
	}
	start := time.Now()
	n, p := X.Dims()

	dt.classes = uniqueLabels(y)
	lookup := make(map[float64]int, len(dt.classes))
	for k, c := range dt.classes {
		lookup[c] = k
	}
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = lookup[y.At(i, 0)]
	}

	crit := newClassCriterion(labels, len(dt.classes), dt.params.Criterion == CriterionEntropy)
	b := newBuilder(dt.params, X, crit)
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

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	out := make([]float64, len(dt.classes))
	copy(out, dt.classes)
	return out
}

// PredictProba returns an (n_samples × n_classes) matrix of leaf class
// frequencies, columns ordered as Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, p := X.Dims()
	if err := dt.state.CheckFeatures("PredictProba", p); err != nil {
		return nil, err
	}
	proba := mat.NewDense(n, len(dt.classes), nil)
	for i := 0; i < n; i++ {
		proba.SetRow(i, dt.root.find(X, i).Value)
	}
	return proba, nil
}

// Predict returns the most frequent class of each row's leaf as (n_samples × 1).
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, p := X.Dims()
	if err := dt.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		value := dt.root.find(X, i).Value
		best := 0
		for k := range value {
			if value[k] > value[best] {
				best = k
			}
		}
		predictions.Set(i, 0, dt.classes[best])
	}
	return predictions, nil
}

// Score returns the mean accuracy of Predict on X against y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

func (dt *DecisionTreeClassifier) String() string {
	if !dt.IsFitted() {
		return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, fitted=false)", dt.params.Criterion)
	}
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, classes=%d, depth=%d, leaves=%d)",
		dt.params.Criterion, len(dt.classes), dt.Depth(), dt.NLeaves())
}

func uniqueLabels(y mat.Matrix) []float64 {
	n, _ := y.Dims()
	seen := make(map[float64]bool)
	var classes []float64
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}

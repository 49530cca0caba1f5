// Package tree implements CART decision trees.
//
// DecisionTreeClassifier splits on Gini impurity or entropy and predicts class
// probabilities from leaf class frequencies. DecisionTreeRegressor splits on
// squared error and predicts leaf means. Both grow depth-first, choose the
// best midpoint threshold over a (possibly random) subset of features at every
// node, and can be trained on an explicit list of row indices so bootstrap
// samples never need to be copied out of the feature matrix.
//
//	dt := tree.NewDecisionTreeClassifier(
//		tree.WithMaxDepth(8),
//		tree.WithMinSamplesLeaf(5),
//	)
//	if err := dt.Fit(XTrain, yTrain); err != nil {
//		return err
//	}
//	proba, err := dt.PredictProba(XTest)
package tree

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Splitting criteria.
const (
	CriterionGini         = "gini"
	CriterionEntropy      = "entropy"
	CriterionSquaredError = "squared_error"
)

// Node is a node of a fitted tree. Internal nodes send rows with
// X[Feature] <= Threshold to Left and every other row to Right.
type Node struct {
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node

	// Value holds the class frequencies of a classifier node or the mean
	// target of a regressor node.
	Value    []float64
	Impurity float64
	NSamples int
	Depth    int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil
}

// find descends from n to the leaf that row i of X falls into.
func (n *Node) find(X mat.Matrix, i int) *Node {
	node := n
	for !node.IsLeaf() {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// MaxDepth returns the depth of the deepest leaf below n.
func (n *Node) MaxDepth() int {
	if n.IsLeaf() {
		return n.Depth
	}
	left, right := n.Left.MaxDepth(), n.Right.MaxDepth()
	if left > right {
		return left
	}
	return right
}

// Leaves counts the leaves below n.
func (n *Node) Leaves() int {
	if n.IsLeaf() {
		return 1
	}
	return n.Left.Leaves() + n.Right.Leaves()
}

// Params are the growth controls shared by both tree types.
type Params struct {
	Criterion           string
	MaxDepth            int // 0 means unlimited
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int // features tried per split, 0 means all
	MinImpurityDecrease float64
	RandomState         int64
}

// Option configures a tree.
type Option func(*Params)

// WithCriterion sets the splitting criterion.
func WithCriterion(criterion string) Option {
	return func(p *Params) { p.Criterion = criterion }
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(depth int) Option {
	return func(p *Params) { p.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples a node needs to be split.
func WithMinSamplesSplit(n int) Option {
	return func(p *Params) { p.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *Params) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly chosen features are tried per split.
func WithMaxFeatures(n int) Option {
	return func(p *Params) { p.MaxFeatures = n }
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease for a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(p *Params) { p.MinImpurityDecrease = v }
}

// WithRandomState seeds feature subsampling.
func WithRandomState(seed int64) Option {
	return func(p *Params) { p.RandomState = seed }
}

// SqrtFeatures returns max(1, floor(sqrt(nFeatures))), the usual forest setting.
func SqrtFeatures(nFeatures int) int {
	n := int(math.Sqrt(float64(nFeatures)))
	if n < 1 {
		return 1
	}
	return n
}

func defaultParams(criterion string, opts []Option) Params {
	p := Params{
		Criterion:       criterion,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p Params) validate(regression bool) error {
	switch {
	case regression && p.Criterion != CriterionSquaredError:
		return ssErrors.NewValidationError("criterion", "regression trees support squared_error only", p.Criterion)
	case !regression && p.Criterion != CriterionGini && p.Criterion != CriterionEntropy:
		return ssErrors.NewValidationError("criterion", "must be gini or entropy", p.Criterion)
	case p.MaxDepth < 0:
		return ssErrors.NewValidationError("max_depth", "must be non-negative", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return ssErrors.NewValidationError("min_samples_split", "must be at least 2", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return ssErrors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return ssErrors.NewValidationError("max_features", "must be non-negative", p.MaxFeatures)
	case p.MinImpurityDecrease < 0:
		return ssErrors.NewValidationError("min_impurity_decrease", "must be non-negative", p.MinImpurityDecrease)
	}
	return nil
}

// base holds what both tree types share once fitted.
type base struct {
	state       *model.StateManager
	params      Params
	logger      log.Logger
	root        *Node
	importances []float64
}

func newBase(name string, params Params) base {
	return base{
		state:  model.NewStateManager(name),
		params: params,
		logger: log.GetLoggerWithName("tree").With(log.ModelNameKey, name),
	}
}

// IsFitted reports whether Fit has completed.
func (b *base) IsFitted() bool {
	return b.state.IsFitted()
}

// Root returns the root node, or nil before Fit.
func (b *base) Root() *Node {
	return b.root
}

// Depth returns the depth of the fitted tree.
func (b *base) Depth() int {
	if b.root == nil {
		return 0
	}
	return b.root.MaxDepth()
}

// NLeaves returns the number of leaves of the fitted tree.
func (b *base) NLeaves() int {
	if b.root == nil {
		return 0
	}
	return b.root.Leaves()
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (b *base) FeatureImportances() []float64 {
	if b.importances == nil {
		return nil
	}
	out := make([]float64, len(b.importances))
	copy(out, b.importances)
	return out
}

// GetParams returns the tree hyperparameters.
func (b *base) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             b.params.Criterion,
		"max_depth":             b.params.MaxDepth,
		"min_samples_split":     b.params.MinSamplesSplit,
		"min_samples_leaf":      b.params.MinSamplesLeaf,
		"max_features":          b.params.MaxFeatures,
		"min_impurity_decrease": b.params.MinImpurityDecrease,
		"random_state":          b.params.RandomState,
	}
}

// checkRows validates X, y and the row subset used for training.
func checkRows(op string, X, y mat.Matrix, rows []int) error {
	n, p := X.Dims()
	ny, cy := y.Dims()
	if n == 0 || p == 0 || len(rows) == 0 {
		return ssErrors.NewModelError(op, "empty data", ssErrors.ErrEmptyData)
	}
	if ny != n {
		return ssErrors.NewDimensionError(op, n, ny, 0)
	}
	if cy != 1 {
		return ssErrors.NewDimensionError(op, 1, cy, 1)
	}
	for _, i := range rows {
		if i < 0 || i >= n {
			return ssErrors.NewValueError(op, "row index out of range")
		}
	}
	return nil
}

func allRows(X mat.Matrix) []int {
	n, _ := X.Dims()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

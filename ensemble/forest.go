package ensemble

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/core/parallel"
	"github.com/ezoic/superstore/pkg/log"
	"github.com/ezoic/superstore/tree"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// forest holds what both random forests share.
type forest struct {
	name        string
	params      Params
	state       *model.StateManager
	logger      log.Logger
	history     *model.History
	importances []float64
}

func newForest(name string, opts []Option) forest {
	params := Params{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		Bootstrap:      true,
	}
	for _, opt := range opts {
		opt(&params)
	}
	return forest{
		name:    name,
		params:  params,
		state:   model.NewStateManager(name),
		logger:  log.GetLoggerWithName("ensemble").With(log.ModelNameKey, name),
		history: model.NewHistory(),
	}
}

// IsFitted reports whether Fit has completed.
func (f *forest) IsFitted() bool {
	return f.state.IsFitted()
}

// History returns the per-tree-count metric series of the last Fit.
func (f *forest) History() *model.History {
	return f.history
}

// FeatureImportances returns the mean impurity-based importance over trees.
func (f *forest) FeatureImportances() []float64 {
	if f.importances == nil {
		return nil
	}
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

func (f *forest) validate() error {
	if err := f.params.validateCommon(); err != nil {
		return err
	}
	if f.params.MaxFeatures < 0 {
		return ssErrors.NewValidationError("max_features", "must be non-negative", f.params.MaxFeatures)
	}
	return nil
}

func (f *forest) treeOptions(seed int64, nFeatures int) []tree.Option {
	maxFeatures := f.params.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = tree.SqrtFeatures(nFeatures)
	}
	return []tree.Option{
		tree.WithMaxDepth(f.params.MaxDepth),
		tree.WithMinSamplesLeaf(f.params.MinSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(seed),
	}
}

// grow draws every tree's seed and row sample up front from one generator,
// so the fitted forest does not depend on the number of workers, and then
// calls fit for each tree on the worker pool.
func (f *forest) grow(nRows int, fit func(i int, seed int64, rows []int) ([]float64, error)) error {
	n := f.params.NEstimators
	rng := rand.New(rand.NewSource(f.params.RandomState))
	seeds := make([]int64, n)
	samples := make([][]int, n)
	for i := 0; i < n; i++ {
		seeds[i] = rng.Int63()
		rows := make([]int, nRows)
		for r := range rows {
			if f.params.Bootstrap {
				rows[r] = rng.Intn(nRows)
			} else {
				rows[r] = r
			}
		}
		samples[i] = rows
	}

	errs := make([]error, n)
	importances := make([][]float64, n)
	parallel.ForEach(n, f.params.Workers, func(i int) {
		importances[i], errs[i] = fit(i, seeds[i], samples[i])
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	f.importances = make([]float64, len(importances[0]))
	for _, imp := range importances {
		for j, v := range imp {
			f.importances[j] += v / float64(n)
		}
	}
	return nil
}

func (f *forest) logStart(d *fitData) time.Time {
	n, p := d.XTrain.Dims()
	f.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.TreesKey, f.params.NEstimators,
		log.RandomSeedKey, f.params.RandomState,
	)
	return time.Now()
}

func (f *forest) logDone(start time.Time) {
	fields := []any{
		log.OperationKey, log.OperationFit,
		log.TreesKey, f.params.NEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if loss, ok := f.history.Last(model.SeriesLoss); ok {
		fields = append(fields, log.LossKey, loss)
	}
	if loss, ok := f.history.Last(model.SeriesValLoss); ok {
		fields = append(fields, log.ValLossKey, loss)
	}
	f.logger.Info("Training completed", fields...)
}

// RandomForestClassifier is a bagged ensemble of classification trees for
// 0/1 labels. It predicts the mean of the trees' class-1 probabilities.
type RandomForestClassifier struct {
	forest
	trees []*tree.DecisionTreeClassifier
}

// NewRandomForestClassifier creates a forest of 100 bootstrapped trees trying
// sqrt(n_features) features per split unless options say otherwise.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	return &RandomForestClassifier{forest: newForest("RandomForestClassifier", opts)}
}

// Fit grows the forest and records auc and loss (and their val_ variants)
// for every prefix of the trees.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, rf.name+".Fit")

	if err := rf.validate(); err != nil {
		return err
	}
	d, err := prepare(rf.name+".Fit", X, y, rf.params.ValidationFraction)
	if err != nil {
		return err
	}
	if err := checkBinaryLabels(rf.name+".Fit", d.yTrain); err != nil {
		return err
	}
	start := rf.logStart(d)
	nTrain, p := d.XTrain.Dims()

	trees := make([]*tree.DecisionTreeClassifier, rf.params.NEstimators)
	err = rf.grow(nTrain, func(i int, seed int64, rows []int) ([]float64, error) {
		t := tree.NewDecisionTreeClassifier(rf.treeOptions(seed, p)...)
		if err := t.FitRows(d.XTrain, d.yTrain, rows); err != nil {
			return nil, err
		}
		trees[i] = t
		return t.FeatureImportances(), nil
	})
	if err != nil {
		return ssErrors.NewModelError(rf.name+".Fit", "tree training failed", err)
	}
	rf.trees = trees

	rf.history = model.NewHistory()
	trainSum := make([]float64, nTrain)
	var valSum []float64
	if d.hasValidation() {
		valSum = make([]float64, d.yVal.Len())
	}
	for k, t := range trees {
		addPositive(trainSum, t, d.XTrain)
		recordBinary(rf.history, d.yTrain, scaled(trainSum, k+1), model.SeriesLoss, model.SeriesAUC)
		if d.hasValidation() {
			addPositive(valSum, t, d.XVal)
			recordBinary(rf.history, d.yVal, scaled(valSum, k+1), model.SeriesValLoss, model.SeriesValAUC)
		}
	}

	rf.state.SetDimensions(p, nTrain)
	rf.state.SetFitted()
	rf.logDone(start)
	return nil
}

// positive returns P(class 1) averaged over the trees.
func (rf *RandomForestClassifier) positive(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	sum := make([]float64, n)
	for _, t := range rf.trees {
		addPositive(sum, t, X)
	}
	return scaled(sum, len(rf.trees))
}

// PredictProba returns (n_samples × 2) class probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, rf.name+".PredictProba")
	_, p := X.Dims()
	if err := rf.state.CheckFeatures("PredictProba", p); err != nil {
		return nil, err
	}
	return probaMatrix(rf.positive(X)), nil
}

// Predict returns the 0/1 class with the higher mean probability as (n_samples × 1).
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, rf.name+".Predict")
	_, p := X.Dims()
	if err := rf.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	return classes(rf.positive(X)), nil
}

// NTrees returns the number of fitted trees.
func (rf *RandomForestClassifier) NTrees() int {
	return len(rf.trees)
}

// addPositive adds each row's class-1 probability under t to sum. A tree
// whose sample held no positive rows contributes zero.
func addPositive(sum []float64, t *tree.DecisionTreeClassifier, X mat.Matrix) {
	col := -1
	for k, c := range t.Classes() {
		if c == 1 {
			col = k
		}
	}
	if col < 0 {
		return
	}
	proba, err := t.PredictProba(X)
	if err != nil {
		return
	}
	for i := range sum {
		sum[i] += proba.At(i, col)
	}
}

// RandomForestRegressor is a bagged ensemble of regression trees predicting
// the mean of the trees' predictions.
type RandomForestRegressor struct {
	forest
	trees []*tree.DecisionTreeRegressor
}

// NewRandomForestRegressor creates a forest of 100 bootstrapped regression trees.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	return &RandomForestRegressor{forest: newForest("RandomForestRegressor", opts)}
}

// Fit grows the forest and records the mean absolute error as loss (and
// val_loss) for every prefix of the trees.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, rf.name+".Fit")

	if err := rf.validate(); err != nil {
		return err
	}
	d, err := prepare(rf.name+".Fit", X, y, rf.params.ValidationFraction)
	if err != nil {
		return err
	}
	start := rf.logStart(d)
	nTrain, p := d.XTrain.Dims()

	trees := make([]*tree.DecisionTreeRegressor, rf.params.NEstimators)
	err = rf.grow(nTrain, func(i int, seed int64, rows []int) ([]float64, error) {
		t := tree.NewDecisionTreeRegressor(rf.treeOptions(seed, p)...)
		if err := t.FitRows(d.XTrain, d.yTrain, rows); err != nil {
			return nil, err
		}
		trees[i] = t
		return t.FeatureImportances(), nil
	})
	if err != nil {
		return ssErrors.NewModelError(rf.name+".Fit", "tree training failed", err)
	}
	rf.trees = trees

	rf.history = model.NewHistory()
	trainSum := make([]float64, nTrain)
	var valSum []float64
	if d.hasValidation() {
		valSum = make([]float64, d.yVal.Len())
	}
	for k, t := range trees {
		addPrediction(trainSum, t, d.XTrain)
		recordRegression(rf.history, d.yTrain, scaled(trainSum, k+1), model.SeriesLoss)
		if d.hasValidation() {
			addPrediction(valSum, t, d.XVal)
			recordRegression(rf.history, d.yVal, scaled(valSum, k+1), model.SeriesValLoss)
		}
	}

	rf.state.SetDimensions(p, nTrain)
	rf.state.SetFitted()
	rf.logDone(start)
	return nil
}

// Predict returns the mean tree prediction as (n_samples × 1).
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, rf.name+".Predict")
	n, p := X.Dims()
	if err := rf.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	sum := make([]float64, n)
	for _, t := range rf.trees {
		addPrediction(sum, t, X)
	}
	return column(scaled(sum, len(rf.trees))), nil
}

// NTrees returns the number of fitted trees.
func (rf *RandomForestRegressor) NTrees() int {
	return len(rf.trees)
}

func addPrediction(sum []float64, t *tree.DecisionTreeRegressor, X mat.Matrix) {
	pred, err := t.Predict(X)
	if err != nil {
		return
	}
	for i := range sum {
		sum[i] += pred.At(i, 0)
	}
}

// scaled returns sum / k as a new slice.
func scaled(sum []float64, k int) []float64 {
	out := make([]float64, len(sum))
	for i, v := range sum {
		out[i] = v / float64(k)
	}
	return out
}

// Package ensemble provides tree ensembles: bagged random forests built from
// CART trees and histogram-based gradient boosting.
//
// Every ensemble holds out the trailing ValidationFraction of the rows passed
// to Fit and records a model.History with one entry per tree (forests) or per
// boosting round, so ensembles plot on the same axes as epoch-trained
// networks. Classifiers record "loss" (binary log loss) and "auc";
// regressors record "loss" as the mean absolute error. Validation series are
// prefixed with "val_".
//
//	rf := ensemble.NewRandomForestClassifier(
//		ensemble.WithNEstimators(100),
//		ensemble.WithValidationFraction(0.1),
//		ensemble.WithRandomState(0),
//	)
//	if err := rf.Fit(XTrain, yTrain); err != nil {
//		return err
//	}
//	proba, err := rf.PredictProba(XTest)
package ensemble

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/metrics"
	"github.com/ezoic/superstore/modelselection"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Boosting objectives.
const (
	ObjectiveBinary     = "binary"
	ObjectiveRegression = "regression"
)

// Params are the hyperparameters of every ensemble in the package. Fields a
// model does not use are ignored.
type Params struct {
	NEstimators        int
	MaxDepth           int // 0 means unlimited
	MinSamplesLeaf     int
	MaxFeatures        int // forests: features tried per split, 0 means sqrt
	Bootstrap          bool
	ValidationFraction float64
	Workers            int // 0 means one per CPU
	RandomState        int64

	// Gradient boosting
	Objective           string
	LearningRate        float64
	MaxBins             int
	Lambda              float64
	EarlyStoppingRounds int
}

// Option configures an ensemble.
type Option func(*Params)

// WithNEstimators sets the number of trees or boosting rounds.
func WithNEstimators(n int) Option {
	return func(p *Params) { p.NEstimators = n }
}

// WithMaxDepth limits the depth of every tree.
func WithMaxDepth(depth int) Option {
	return func(p *Params) { p.MaxDepth = depth }
}

// WithMinSamplesLeaf sets the minimum number of rows in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *Params) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features a forest tree tries per split.
func WithMaxFeatures(n int) Option {
	return func(p *Params) { p.MaxFeatures = n }
}

// WithBootstrap toggles sampling rows with replacement for each forest tree.
func WithBootstrap(bootstrap bool) Option {
	return func(p *Params) { p.Bootstrap = bootstrap }
}

// WithValidationFraction holds out the trailing fraction of rows for the
// val_* history series and early stopping.
func WithValidationFraction(frac float64) Option {
	return func(p *Params) { p.ValidationFraction = frac }
}

// WithWorkers bounds the goroutines used for training.
func WithWorkers(n int) Option {
	return func(p *Params) { p.Workers = n }
}

// WithRandomState seeds bootstrap sampling and feature subsampling.
func WithRandomState(seed int64) Option {
	return func(p *Params) { p.RandomState = seed }
}

// WithObjective sets the boosting objective.
func WithObjective(objective string) Option {
	return func(p *Params) { p.Objective = objective }
}

// WithLearningRate sets the boosting shrinkage.
func WithLearningRate(lr float64) Option {
	return func(p *Params) { p.LearningRate = lr }
}

// WithMaxBins sets the number of histogram bins per feature.
func WithMaxBins(n int) Option {
	return func(p *Params) { p.MaxBins = n }
}

// WithLambda sets the L2 regularization of boosting leaf values.
func WithLambda(lambda float64) Option {
	return func(p *Params) { p.Lambda = lambda }
}

// WithEarlyStoppingRounds stops boosting after n rounds without a lower
// validation loss. 0 disables early stopping.
func WithEarlyStoppingRounds(n int) Option {
	return func(p *Params) { p.EarlyStoppingRounds = n }
}

func (p Params) validateCommon() error {
	switch {
	case p.NEstimators <= 0:
		return ssErrors.NewValidationError("n_estimators", "must be positive", p.NEstimators)
	case p.MaxDepth < 0:
		return ssErrors.NewValidationError("max_depth", "must be non-negative", p.MaxDepth)
	case p.MinSamplesLeaf < 1:
		return ssErrors.NewValidationError("min_samples_leaf", "must be at least 1", p.MinSamplesLeaf)
	case p.ValidationFraction < 0 || p.ValidationFraction >= 1:
		return ssErrors.NewValidationError("validation_fraction", "must be in [0, 1)", p.ValidationFraction)
	}
	return nil
}

// fitData is the train/validation partition of the rows passed to Fit.
type fitData struct {
	XTrain *mat.Dense
	yTrain *mat.VecDense
	XVal   *mat.Dense
	yVal   *mat.VecDense
}

func (d *fitData) hasValidation() bool {
	return d.XVal != nil
}

func prepare(op string, X, y mat.Matrix, valFrac float64) (*fitData, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, ssErrors.NewModelError(op, "empty data", ssErrors.ErrEmptyData)
	}
	ny, cy := y.Dims()
	if ny != n {
		return nil, ssErrors.NewDimensionError(op, n, ny, 0)
	}
	if cy != 1 {
		return nil, ssErrors.NewDimensionError(op, 1, cy, 1)
	}

	trainIdx, valIdx := modelselection.ValidationSplit(n, valFrac)
	d := &fitData{}
	d.XTrain, d.yTrain = modelselection.Take(X, y, trainIdx)
	if len(valIdx) > 0 {
		d.XVal, d.yVal = modelselection.Take(X, y, valIdx)
	}
	return d, nil
}

func checkBinaryLabels(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return ssErrors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// recordBinary appends loss and AUC of the probabilities p against y.
func recordBinary(h *model.History, y *mat.VecDense, p []float64, lossKey, aucKey string) (float64, float64) {
	pred := mat.NewVecDense(len(p), p)
	loss, err := metrics.BinaryLogLoss(y, pred)
	if err != nil {
		loss = math.NaN()
	}
	auc, err := metrics.AUC(y, pred)
	if err != nil {
		auc = math.NaN()
	}
	h.Append(lossKey, loss)
	h.Append(aucKey, auc)
	return loss, auc
}

// recordRegression appends the mean absolute error of p against y.
func recordRegression(h *model.History, y *mat.VecDense, p []float64, lossKey string) float64 {
	mae, err := metrics.MAE(y, mat.NewVecDense(len(p), p))
	if err != nil {
		mae = math.NaN()
	}
	h.Append(lossKey, mae)
	return mae
}

// probaMatrix expands P(class 1) into (n × 2) class probabilities.
func probaMatrix(p []float64) *mat.Dense {
	out := mat.NewDense(len(p), 2, nil)
	for i, v := range p {
		out.Set(i, 0, 1-v)
		out.Set(i, 1, v)
	}
	return out
}

// classes thresholds P(class 1) at 0.5 into an (n × 1) label column.
func classes(p []float64) *mat.Dense {
	out := mat.NewDense(len(p), 1, nil)
	for i, v := range p {
		if v >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out
}

func column(p []float64) *mat.Dense {
	return mat.NewDense(len(p), 1, p)
}

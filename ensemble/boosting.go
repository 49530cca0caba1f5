package ensemble

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// GradientBoosting is a histogram-based gradient-boosted tree ensemble.
// Each round fits a depth-limited tree to the Newton step of the objective
// with L2-regularized leaf values, then shrinks it by the learning rate.
type GradientBoosting struct {
	name      string
	params    Params
	state     *model.StateManager
	logger    log.Logger
	history   *model.History
	objective objective

	bins          *binMapper
	trees         []*histTree
	initScore     float64
	bestIteration int
	importances   []float64
}

func newGradientBoosting(name, objectiveName string, opts []Option) *GradientBoosting {
	params := Params{
		Objective:      objectiveName,
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       6,
		MaxBins:        255,
		MinSamplesLeaf: 20,
		Lambda:         1,
	}
	for _, opt := range opts {
		opt(&params)
	}
	return &GradientBoosting{
		name:    name,
		params:  params,
		state:   model.NewStateManager(name),
		logger:  log.GetLoggerWithName("ensemble").With(log.ModelNameKey, name),
		history: model.NewHistory(),
	}
}

// NewGradientBoostingClassifier creates a booster with the binary log-loss
// objective for 0/1 labels.
func NewGradientBoostingClassifier(opts ...Option) *GradientBoosting {
	return newGradientBoosting("GradientBoostingClassifier", ObjectiveBinary, opts)
}

// NewGradientBoostingRegressor creates a booster with the squared-error objective.
func NewGradientBoostingRegressor(opts ...Option) *GradientBoosting {
	return newGradientBoosting("GradientBoostingRegressor", ObjectiveRegression, opts)
}

// IsFitted reports whether Fit has completed.
func (gb *GradientBoosting) IsFitted() bool {
	return gb.state.IsFitted()
}

// History returns the per-round metric series of the last Fit.
func (gb *GradientBoosting) History() *model.History {
	return gb.history
}

// NTrees returns the number of trees kept after early stopping.
func (gb *GradientBoosting) NTrees() int {
	return len(gb.trees)
}

// BestIteration returns the 1-based round with the lowest validation loss,
// or the last round when no validation rows were held out.
func (gb *GradientBoosting) BestIteration() int {
	return gb.bestIteration
}

// FeatureImportances returns the total split gain per feature, normalized.
func (gb *GradientBoosting) FeatureImportances() []float64 {
	if gb.importances == nil {
		return nil
	}
	out := make([]float64, len(gb.importances))
	copy(out, gb.importances)
	return out
}

func (gb *GradientBoosting) validate() error {
	if err := gb.params.validateCommon(); err != nil {
		return err
	}
	switch {
	case gb.params.LearningRate <= 0:
		return ssErrors.NewValidationError("learning_rate", "must be positive", gb.params.LearningRate)
	case gb.params.MaxBins < 2:
		return ssErrors.NewValidationError("max_bins", "must be at least 2", gb.params.MaxBins)
	case gb.params.Lambda < 0:
		return ssErrors.NewValidationError("lambda", "must be non-negative", gb.params.Lambda)
	case gb.params.EarlyStoppingRounds < 0:
		return ssErrors.NewValidationError("early_stopping_rounds", "must be non-negative", gb.params.EarlyStoppingRounds)
	}
	return nil
}

// Fit boosts up to NEstimators rounds. With a validation fraction and
// EarlyStoppingRounds set, training stops once val_loss has not improved
// for that many rounds and the trees after the best round are discarded.
func (gb *GradientBoosting) Fit(X, y mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, gb.name+".Fit")

	if err := gb.validate(); err != nil {
		return err
	}
	obj, err := newObjective(gb.params.Objective)
	if err != nil {
		return err
	}
	gb.objective = obj

	d, err := prepare(gb.name+".Fit", X, y, gb.params.ValidationFraction)
	if err != nil {
		return err
	}
	binary := obj.name() == ObjectiveBinary
	if binary {
		if err := checkBinaryLabels(gb.name+".Fit", d.yTrain); err != nil {
			return err
		}
	}

	nTrain, p := d.XTrain.Dims()
	gb.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nTrain,
		log.FeaturesKey, p,
		log.TreesKey, gb.params.NEstimators,
		log.LearningRateKey, gb.params.LearningRate,
	)
	start := time.Now()

	gb.bins = newBinMapper(d.XTrain, gb.params.MaxBins)
	binned := gb.bins.transform(d.XTrain)
	yTrain := vecData(d.yTrain)

	gb.initScore = obj.initScore(yTrain)
	raw := filled(nTrain, gb.initScore)
	var valRaw []float64
	if d.hasValidation() {
		valRaw = filled(d.yVal.Len(), gb.initScore)
	}

	grad := make([]float64, nTrain)
	hess := make([]float64, nTrain)
	rows := make([]int, nTrain)
	for i := range rows {
		rows[i] = i
	}
	builder := &histBuilder{
		bins:     gb.bins,
		binned:   binned,
		grad:     grad,
		hess:     hess,
		maxDepth: gb.params.MaxDepth,
		minLeaf:  gb.params.MinSamplesLeaf,
		lambda:   gb.params.Lambda,
		workers:  gb.params.Workers,
	}

	gb.history = model.NewHistory()
	gb.trees = nil
	bestLoss, bestRound := math.Inf(1), 0
	earlyStopped := false

	for round := 0; round < gb.params.NEstimators; round++ {
		obj.gradients(yTrain, raw, grad, hess)
		t := builder.build(rows)
		for k := range t.nodes {
			t.nodes[k].Value *= gb.params.LearningRate
		}
		gb.trees = append(gb.trees, t)

		for i := range raw {
			raw[i] += t.predictBinned(binned, i)
		}
		gb.record(binary, d.yTrain, raw, model.SeriesLoss, model.SeriesAUC)

		fields := []any{log.IterationKey, round + 1, log.TreeLeavesKey, t.leaves()}
		if !d.hasValidation() {
			gb.logger.Debug("Round completed", fields...)
			continue
		}
		for i := range valRaw {
			valRaw[i] += t.predict(d.XVal, i)
		}
		valLoss := gb.record(binary, d.yVal, valRaw, model.SeriesValLoss, model.SeriesValAUC)
		gb.logger.Debug("Round completed", append(fields, log.ValLossKey, valLoss)...)

		if valLoss < bestLoss {
			bestLoss, bestRound = valLoss, round
		} else if gb.params.EarlyStoppingRounds > 0 && round-bestRound >= gb.params.EarlyStoppingRounds {
			earlyStopped = true
			break
		}
	}

	gb.bestIteration = len(gb.trees)
	if earlyStopped {
		gb.bestIteration = bestRound + 1
		gb.trees = gb.trees[:gb.bestIteration]
		gb.logger.Info("Early stopping",
			log.IterationKey, gb.bestIteration,
			log.ValLossKey, bestLoss,
		)
	}
	gains := make([]float64, p)
	for _, t := range gb.trees {
		for j, g := range t.gains {
			gains[j] += g
		}
	}
	gb.importances = normalize(gains)

	gb.state.SetDimensions(p, nTrain)
	gb.state.SetFitted()

	fields := []any{
		log.OperationKey, log.OperationFit,
		log.TreesKey, len(gb.trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if loss, ok := gb.history.Last(model.SeriesLoss); ok {
		fields = append(fields, log.LossKey, loss)
	}
	gb.logger.Info("Training completed", fields...)
	return nil
}

// record appends the round's loss (and AUC for the binary objective) for
// raw scores against y and returns the loss.
func (gb *GradientBoosting) record(binary bool, y *mat.VecDense, raw []float64, lossKey, aucKey string) float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = gb.objective.output(v)
	}
	if binary {
		loss, _ := recordBinary(gb.history, y, out, lossKey, aucKey)
		return loss
	}
	return recordRegression(gb.history, y, out, lossKey)
}

// outputs returns the objective-space prediction for every row of X.
func (gb *GradientBoosting) outputs(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		raw := gb.initScore
		for _, t := range gb.trees {
			raw += t.predict(X, i)
		}
		out[i] = gb.objective.output(raw)
	}
	return out
}

// Predict returns 0/1 classes for the binary objective and regression
// values otherwise, as (n_samples × 1).
func (gb *GradientBoosting) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, gb.name+".Predict")
	_, p := X.Dims()
	if err := gb.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	out := gb.outputs(X)
	if gb.objective.name() == ObjectiveBinary {
		return classes(out), nil
	}
	return column(out), nil
}

// PredictProba returns (n_samples × 2) class probabilities. It requires the
// binary objective.
func (gb *GradientBoosting) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, gb.name+".PredictProba")
	_, p := X.Dims()
	if err := gb.state.CheckFeatures("PredictProba", p); err != nil {
		return nil, err
	}
	if gb.objective.name() != ObjectiveBinary {
		return nil, ssErrors.NewValueError(gb.name+".PredictProba", "requires the binary objective, got "+gb.objective.name())
	}
	return probaMatrix(gb.outputs(X)), nil
}

func (gb *GradientBoosting) String() string {
	return fmt.Sprintf("%s(objective=%s, trees=%d, learning_rate=%g)",
		gb.name, gb.params.Objective, len(gb.trees), gb.params.LearningRate)
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum > 0 {
		for i, x := range v {
			out[i] = x / sum
		}
	}
	return out
}

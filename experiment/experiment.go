// Package experiment runs one recipe end to end: it builds the feature
// table, splits it, standardizes features on the training rows, trains every
// configured model and scores each on the held-out rows.
//
// Classification models are scored by binary log loss, AUC and accuracy of
// their class-1 probabilities. Regression models are trained on
// standardized profit; their "loss" is the mean absolute error in those
// standardized units, and MAE, RMSE and R² are reported in dollars.
package experiment

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/config"
	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/dataset"
	"github.com/ezoic/superstore/features"
	"github.com/ezoic/superstore/metrics"
	"github.com/ezoic/superstore/modelselection"
	"github.com/ezoic/superstore/pkg/log"
	"github.com/ezoic/superstore/preprocessing"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Metric names in Result.Metrics.
const (
	MetricLoss     = "loss"
	MetricAUC      = "auc"
	MetricAccuracy = "accuracy"
	MetricMAE      = "mae"
	MetricRMSE     = "rmse"
	MetricR2       = "r2"
)

// Runner trains and evaluates the models of one experiment.
type Runner struct {
	exp    *config.Experiment
	logger log.Logger
}

// NewRunner creates a Runner. A nil experiment uses config.DefaultExperiment.
func NewRunner(exp *config.Experiment) *Runner {
	if exp == nil {
		exp = config.DefaultExperiment()
	}
	return &Runner{
		exp:    exp,
		logger: log.GetLoggerWithName("experiment"),
	}
}

// prepared is a split table with standardized features and, for
// regression, standardized labels.
type prepared struct {
	table  *features.Table
	split  *modelselection.Split
	XTrain mat.Matrix
	XTest  mat.Matrix
	yTrain mat.Matrix
	yTest  mat.Matrix
	labels *preprocessing.StandardScaler
}

// Run applies recipe to frame and trains every model of the experiment. The
// context is checked before each model; a cancelled run returns the wrapped
// context error and no report.
func (r *Runner) Run(ctx context.Context, frame *dataset.Frame, recipe features.Recipe) (*Report, error) {
	if err := r.exp.Validate(); err != nil {
		return nil, err
	}
	logger := r.logger.With(log.RecipeKey, recipe.Name)

	p, err := r.prepare(frame, recipe)
	if err != nil {
		return nil, err
	}
	nTrain, nFeatures := p.split.XTrain.Dims()
	nTest, _ := p.split.XTest.Dims()

	report := &Report{
		Recipe:       recipe.Name,
		Task:         recipe.Task,
		FeatureNames: p.table.FeatureNames,
		Samples:      len(p.table.Index),
		Dropped:      p.table.Dropped,
		TrainSamples: nTrain,
		TestSamples:  nTest,
	}
	logger.Info("Data split",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, report.Samples,
		log.FeaturesKey, nFeatures,
		log.DroppedKey, report.Dropped,
		"data.train_samples", nTrain,
		"data.test_samples", nTest,
	)

	for _, name := range r.exp.ModelsOr(DefaultModels(recipe.Task)) {
		if err := ctx.Err(); err != nil {
			return nil, ssErrors.Wrap(err, "experiment: run cancelled")
		}
		result, err := r.train(name, recipe.Task, nFeatures, p)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func (r *Runner) prepare(frame *dataset.Frame, recipe features.Recipe) (*prepared, error) {
	table, err := features.Build(frame, recipe)
	if err != nil {
		return nil, err
	}
	split, err := modelselection.SplitTable(table.X, table.Y, 1-r.exp.TestFraction, r.exp.Seed)
	if err != nil {
		return nil, err
	}

	p := &prepared{table: table, split: split, yTrain: split.YTrain, yTest: split.YTest}

	scaler := preprocessing.NewStandardScalerDefault()
	if p.XTrain, err = scaler.FitTransform(split.XTrain); err != nil {
		return nil, err
	}
	if p.XTest, err = scaler.Transform(split.XTest); err != nil {
		return nil, err
	}

	if recipe.Task == features.Regression {
		p.labels = preprocessing.NewStandardScalerDefault()
		if p.yTrain, err = p.labels.FitTransform(split.YTrain); err != nil {
			return nil, err
		}
		if p.yTest, err = p.labels.Transform(split.YTest); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (r *Runner) train(name string, task features.Task, nFeatures int, p *prepared) (Result, error) {
	display := DisplayName(name, task)
	logger := r.logger.With(log.ModelNameKey, display)

	m, err := newEstimator(name, task, nFeatures, r.exp)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	if err := m.Fit(p.XTrain, p.yTrain); err != nil {
		return Result{}, ssErrors.Wrapf(err, "experiment: fit %s", display)
	}
	elapsed := time.Since(start)

	scores, err := r.evaluate(m, task, p)
	if err != nil {
		return Result{}, ssErrors.Wrapf(err, "experiment: evaluate %s", display)
	}

	fields := []any{
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseTesting,
		log.LossKey, scores[MetricLoss],
		log.DurationMsKey, elapsed.Milliseconds(),
	}
	if task == features.Classification {
		fields = append(fields, log.AUCKey, scores[MetricAUC], log.AccuracyKey, scores[MetricAccuracy])
	} else {
		fields = append(fields, log.MAEKey, scores[MetricMAE], log.RMSEKey, scores[MetricRMSE], log.R2ScoreKey, scores[MetricR2])
	}
	logger.Info("Model evaluated", fields...)

	return Result{
		Model:    name,
		Name:     display,
		Metrics:  scores,
		History:  history(m),
		Duration: elapsed,
	}, nil
}

func (r *Runner) evaluate(m model.Regressor, task features.Task, p *prepared) (map[string]float64, error) {
	yTest := metrics.Column(p.yTest, 0)

	if task == features.Classification {
		pm, ok := m.(model.Classifier)
		if !ok {
			return nil, ssErrors.NewValueError("experiment.evaluate", "classifier does not expose probabilities")
		}
		proba, err := pm.PredictProba(p.XTest)
		if err != nil {
			return nil, err
		}
		positive := metrics.Column(proba, 1)
		loss, err := metrics.BinaryLogLoss(yTest, positive)
		if err != nil {
			return nil, err
		}
		auc, err := metrics.AUC(yTest, positive)
		if err != nil {
			r.logger.Warn("AUC undefined on test rows", log.ErrorKey, err)
			auc = math.NaN()
		}
		acc, err := metrics.Accuracy(yTest, metrics.Threshold(positive, 0.5))
		if err != nil {
			return nil, err
		}
		return map[string]float64{MetricLoss: loss, MetricAUC: auc, MetricAccuracy: acc}, nil
	}

	pred, err := m.Predict(p.XTest)
	if err != nil {
		return nil, err
	}
	loss, err := metrics.MAE(yTest, metrics.Column(pred, 0))
	if err != nil {
		return nil, err
	}
	dollars, err := p.labels.InverseTransform(pred)
	if err != nil {
		return nil, err
	}
	yTrue := p.split.YTest
	yPred := metrics.Column(dollars, 0)
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return map[string]float64{MetricLoss: loss, MetricMAE: mae, MetricRMSE: rmse, MetricR2: r2}, nil
}

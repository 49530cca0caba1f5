package experiment

import (
	"github.com/ezoic/superstore/config"
	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/ensemble"
	"github.com/ezoic/superstore/features"
	"github.com/ezoic/superstore/linear"
	"github.com/ezoic/superstore/nn"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// DefaultModels returns the models trained when the experiment names none.
// The closed-form baseline only applies to regression.
func DefaultModels(task features.Task) []string {
	if task == features.Regression {
		return []string{
			config.ModelOLS,
			config.ModelLinear,
			config.ModelMLP,
			config.ModelRandomForest,
			config.ModelGradientBoosting,
		}
	}
	return []string{
		config.ModelLinear,
		config.ModelMLP,
		config.ModelRandomForest,
		config.ModelGradientBoosting,
	}
}

// DisplayName is the label a model gets in reports and plot legends.
func DisplayName(name string, task features.Task) string {
	switch name {
	case config.ModelOLS:
		return "OLS"
	case config.ModelLinear:
		if task == features.Classification {
			return "Logistic Regression"
		}
		return "Linear Regression"
	case config.ModelMLP:
		return "MLP"
	case config.ModelRandomForest:
		return "Random Forest"
	case config.ModelGradientBoosting:
		return "Gradient Boosting"
	}
	return name
}

// newEstimator builds the named model for a table with nFeatures columns.
func newEstimator(name string, task features.Task, nFeatures int, exp *config.Experiment) (model.Regressor, error) {
	var loss nn.Loss = nn.MeanAbsoluteError{}
	if task == features.Classification {
		loss = nn.BinaryCrossEntropy{}
	}
	common := []nn.Option{
		nn.WithEpochs(exp.Epochs),
		nn.WithBatchSize(exp.BatchSize),
		nn.WithLearningRate(exp.LearningRate),
		nn.WithSeed(exp.Seed),
	}
	forestOpts := []ensemble.Option{
		ensemble.WithNEstimators(exp.RandomForest.NTrees),
		ensemble.WithMaxDepth(exp.RandomForest.MaxDepth),
		ensemble.WithMinSamplesLeaf(exp.RandomForest.MinSamplesLeaf),
		ensemble.WithValidationFraction(exp.RandomForest.ValidationSplit),
		ensemble.WithWorkers(exp.RandomForest.Workers),
		ensemble.WithRandomState(exp.Seed),
	}
	boostOpts := []ensemble.Option{
		ensemble.WithNEstimators(exp.Boosting.NRounds),
		ensemble.WithLearningRate(exp.Boosting.LearningRate),
		ensemble.WithMaxDepth(exp.Boosting.MaxDepth),
		ensemble.WithMaxBins(exp.Boosting.MaxBins),
		ensemble.WithMinSamplesLeaf(exp.Boosting.MinSamplesLeaf),
		ensemble.WithLambda(exp.Boosting.Lambda),
		ensemble.WithEarlyStoppingRounds(exp.Boosting.EarlyStoppingRounds),
		ensemble.WithValidationFraction(exp.Boosting.ValidationSplit),
		ensemble.WithRandomState(exp.Seed),
	}

	switch name {
	case config.ModelOLS:
		if task != features.Regression {
			return nil, ssErrors.NewValueError("experiment", "ols supports regression recipes only")
		}
		return linear.NewLinearRegression(), nil
	case config.ModelLinear:
		opts := append(common,
			nn.WithName(DisplayName(name, task)),
			nn.WithValidationSplit(exp.Linear.ValidationSplit),
		)
		return nn.NewLinear(nFeatures, loss, opts...), nil
	case config.ModelMLP:
		opts := append(common,
			nn.WithName(DisplayName(name, task)),
			nn.WithValidationSplit(exp.MLP.ValidationSplit),
		)
		return nn.NewMLP(nFeatures, exp.MLP.HiddenLayers, exp.MLP.HiddenWidth, loss, opts...), nil
	case config.ModelRandomForest:
		if task == features.Classification {
			return ensemble.NewRandomForestClassifier(forestOpts...), nil
		}
		return ensemble.NewRandomForestRegressor(forestOpts...), nil
	case config.ModelGradientBoosting:
		if task == features.Classification {
			return ensemble.NewGradientBoostingClassifier(boostOpts...), nil
		}
		return ensemble.NewGradientBoostingRegressor(boostOpts...), nil
	}
	return nil, ssErrors.NewConfigError("models", "unknown model "+name)
}

// history returns the training history of m, or nil for models without one.
func history(m model.Regressor) *model.History {
	if hp, ok := m.(model.HistoryProvider); ok {
		return hp.History()
	}
	return nil
}

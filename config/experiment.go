package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Model names accepted in Experiment.Models.
const (
	ModelOLS              = "ols"
	ModelLinear           = "linear"
	ModelMLP              = "mlp"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// KnownModels lists every model name in report order.
var KnownModels = []string{ModelOLS, ModelLinear, ModelMLP, ModelRandomForest, ModelGradientBoosting}

// Experiment holds training hyperparameters shared by a run.
type Experiment struct {
	Epochs       int      `yaml:"epochs"`
	LearningRate float64  `yaml:"learning_rate"`
	BatchSize    int      `yaml:"batch_size"`
	TestFraction float64  `yaml:"test_fraction"`
	Seed         int64    `yaml:"seed"`
	Models       []string `yaml:"models"`

	Linear       LinearConfig   `yaml:"linear"`
	MLP          MLPConfig      `yaml:"mlp"`
	RandomForest ForestConfig   `yaml:"random_forest"`
	Boosting     BoostingConfig `yaml:"gradient_boosting"`
}

// LinearConfig configures the single-unit network.
type LinearConfig struct {
	ValidationSplit float64 `yaml:"validation_split"`
}

// MLPConfig configures the multilayer perceptron. A zero HiddenWidth means
// one unit per input feature.
type MLPConfig struct {
	HiddenLayers    int     `yaml:"hidden_layers"`
	HiddenWidth     int     `yaml:"hidden_width"`
	ValidationSplit float64 `yaml:"validation_split"`
}

// ForestConfig configures the random forests.
type ForestConfig struct {
	NTrees          int     `yaml:"n_trees"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	ValidationSplit float64 `yaml:"validation_split"`
	Workers         int     `yaml:"workers"`
}

// BoostingConfig configures gradient-boosted trees.
type BoostingConfig struct {
	NRounds             int     `yaml:"n_rounds"`
	LearningRate        float64 `yaml:"learning_rate"`
	MaxDepth            int     `yaml:"max_depth"`
	MaxBins             int     `yaml:"max_bins"`
	MinSamplesLeaf      int     `yaml:"min_samples_leaf"`
	Lambda              float64 `yaml:"lambda"`
	EarlyStoppingRounds int     `yaml:"early_stopping_rounds"`
	ValidationSplit     float64 `yaml:"validation_split"`
}

// DefaultExperiment returns 20 epochs of Adam at 0.001, batch 32, a 20% test split
// and six hidden layers for the MLP.
func DefaultExperiment() *Experiment {
	return &Experiment{
		Epochs:       20,
		LearningRate: 0.001,
		BatchSize:    32,
		TestFraction: 0.2,
		Seed:         0,
		Linear:       LinearConfig{ValidationSplit: 0.05},
		MLP:          MLPConfig{HiddenLayers: 6, ValidationSplit: 0.1},
		RandomForest: ForestConfig{
			NTrees:          100,
			MaxDepth:        12,
			MinSamplesLeaf:  1,
			ValidationSplit: 0.1,
		},
		Boosting: BoostingConfig{
			NRounds:             100,
			LearningRate:        0.1,
			MaxDepth:            6,
			MaxBins:             255,
			MinSamplesLeaf:      20,
			Lambda:              1.0,
			EarlyStoppingRounds: 10,
			ValidationSplit:     0.1,
		},
	}
}

// LoadExperiment overlays the YAML document at path onto DefaultExperiment.
// An empty path returns the defaults.
func LoadExperiment(path string) (*Experiment, error) {
	exp := DefaultExperiment()
	if path == "" {
		return exp, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ssErrors.Wrapf(err, "config: read experiment %s", path)
	}
	if err := yaml.Unmarshal(data, exp); err != nil {
		return nil, ssErrors.Wrapf(err, "config: parse experiment %s", path)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// Validate checks ranges of every hyperparameter.
func (e *Experiment) Validate() error {
	switch {
	case e.Epochs <= 0:
		return ssErrors.NewConfigError("epochs", "must be positive")
	case e.LearningRate <= 0:
		return ssErrors.NewConfigError("learning_rate", "must be positive")
	case e.BatchSize <= 0:
		return ssErrors.NewConfigError("batch_size", "must be positive")
	case e.TestFraction <= 0 || e.TestFraction >= 1:
		return ssErrors.NewConfigError("test_fraction", "must be in (0, 1)")
	case e.MLP.HiddenLayers < 0:
		return ssErrors.NewConfigError("mlp.hidden_layers", "must not be negative")
	case e.RandomForest.NTrees <= 0:
		return ssErrors.NewConfigError("random_forest.n_trees", "must be positive")
	case e.RandomForest.MaxDepth < 0:
		return ssErrors.NewConfigError("random_forest.max_depth", "must not be negative")
	case e.RandomForest.MinSamplesLeaf < 1:
		return ssErrors.NewConfigError("random_forest.min_samples_leaf", "must be at least 1")
	case e.Boosting.NRounds <= 0:
		return ssErrors.NewConfigError("gradient_boosting.n_rounds", "must be positive")
	case e.Boosting.LearningRate <= 0:
		return ssErrors.NewConfigError("gradient_boosting.learning_rate", "must be positive")
	case e.Boosting.MaxBins < 2:
		return ssErrors.NewConfigError("gradient_boosting.max_bins", "must be at least 2")
	case e.Boosting.MaxDepth < 0:
		return ssErrors.NewConfigError("gradient_boosting.max_depth", "must not be negative")
	case e.Boosting.MinSamplesLeaf < 1:
		return ssErrors.NewConfigError("gradient_boosting.min_samples_leaf", "must be at least 1")
	case e.Boosting.Lambda < 0:
		return ssErrors.NewConfigError("gradient_boosting.lambda", "must not be negative")
	case e.Boosting.EarlyStoppingRounds < 0:
		return ssErrors.NewConfigError("gradient_boosting.early_stopping_rounds", "must not be negative")
	}

	splits := map[string]float64{
		"linear.validation_split":            e.Linear.ValidationSplit,
		"mlp.validation_split":               e.MLP.ValidationSplit,
		"random_forest.validation_split":     e.RandomForest.ValidationSplit,
		"gradient_boosting.validation_split": e.Boosting.ValidationSplit,
	}
	for key, v := range splits {
		if v < 0 || v >= 1 {
			return ssErrors.NewConfigError(key, "must be in [0, 1)")
		}
	}

	for _, name := range e.Models {
		if !isKnownModel(name) {
			return ssErrors.NewConfigError("models", "unknown model "+name)
		}
	}
	return nil
}

// ModelsOr returns the configured model list, or fallback when none is set.
func (e *Experiment) ModelsOr(fallback []string) []string {
	if len(e.Models) == 0 {
		return fallback
	}
	return e.Models
}

func isKnownModel(name string) bool {
	for _, m := range KnownModels {
		if m == name {
			return true
		}
	}
	return false
}

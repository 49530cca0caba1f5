package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvCSVURL, EnvLogLevel, EnvLogFormat, EnvOutputDir, EnvExperimentConfig} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_FromDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CSV_URL=https://example.com/superstore.csv\nLOG_FORMAT=json\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/superstore.csv", cfg.CSVURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CSV_URL=from-file.csv\n"), 0o600))
	t.Setenv(EnvCSVURL, "from-env.csv")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", cfg.CSVURL)
}

func TestLoad_MissingCSVURL(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	var ce *ssErrors.ConfigError
	require.True(t, ssErrors.As(err, &ce))
	assert.Equal(t, EnvCSVURL, ce.Key)
}

func TestConfig_ValidateFormat(t *testing.T) {
	cfg := &Config{CSVURL: "x.csv", LogLevel: "info", LogFormat: "xml", OutputDir: "out"}
	err := cfg.Validate()
	var ce *ssErrors.ConfigError
	require.True(t, ssErrors.As(err, &ce))
	assert.Equal(t, EnvLogFormat, ce.Key)
}

func TestLoadExperiment_Defaults(t *testing.T) {
	exp, err := LoadExperiment("")
	require.NoError(t, err)
	assert.Equal(t, 20, exp.Epochs)
	assert.Equal(t, 0.001, exp.LearningRate)
	assert.Equal(t, 32, exp.BatchSize)
	assert.Equal(t, 0.2, exp.TestFraction)
	assert.Equal(t, 0.05, exp.Linear.ValidationSplit)
	assert.Equal(t, 0.1, exp.MLP.ValidationSplit)
	assert.Equal(t, 6, exp.MLP.HiddenLayers)
	assert.Equal(t, []string{ModelMLP}, exp.ModelsOr([]string{ModelMLP}))
}

func TestLoadExperiment_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	doc := `
epochs: 5
models: [linear, random_forest]
random_forest:
  n_trees: 25
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	exp, err := LoadExperiment(path)
	require.NoError(t, err)
	assert.Equal(t, 5, exp.Epochs)
	assert.Equal(t, 0.001, exp.LearningRate)
	assert.Equal(t, 25, exp.RandomForest.NTrees)
	assert.Equal(t, 12, exp.RandomForest.MaxDepth)
	assert.Equal(t, []string{ModelLinear, ModelRandomForest}, exp.ModelsOr(nil))
}

func TestLoadExperiment_Invalid(t *testing.T) {
	cases := map[string]string{
		"test_fraction":                      "test_fraction: 1.5\n",
		"models":                             "models: [svm]\n",
		"mlp.validation_split":               "mlp:\n  validation_split: 1\n",
		"random_forest.min_samples_leaf":     "random_forest:\n  min_samples_leaf: 0\n",
		"random_forest.max_depth":            "random_forest:\n  max_depth: -1\n",
		"gradient_boosting.min_samples_leaf": "gradient_boosting:\n  min_samples_leaf: 0\n",
		"gradient_boosting.lambda":           "gradient_boosting:\n  lambda: -0.5\n",
	}
	for key, doc := range cases {
		t.Run(key, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "experiment.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

			_, err := LoadExperiment(path)
			var ce *ssErrors.ConfigError
			require.True(t, ssErrors.As(err, &ce), "error: %v", err)
			assert.Equal(t, key, ce.Key)
		})
	}
}

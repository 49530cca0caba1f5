// Package config loads the runtime environment and the experiment settings.
//
// Environment values come from the process environment, optionally seeded from
// a .env file; real environment variables always win over the file. Experiment
// hyperparameters come from an optional YAML document layered over defaults.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Environment variable names.
const (
	EnvCSVURL           = "CSV_URL"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvOutputDir        = "OUTPUT_DIR"
	EnvExperimentConfig = "EXPERIMENT_CONFIG"
)

// Config is the runtime environment of one invocation.
type Config struct {
	// CSVURL is an http(s) URL or a local path to the order records.
	CSVURL string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is "console" or "json".
	LogFormat string
	// OutputDir receives the generated plots.
	OutputDir string
	// ExperimentPath optionally points at a YAML experiment document.
	ExperimentPath string
}

// Load reads envFile (if it exists) into the environment without overriding
// variables that are already set, then builds a Config from the environment.
// An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, ssErrors.Wrapf(err, "config: read %s", envFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, ssErrors.Wrapf(err, "config: stat %s", envFile)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		CSVURL:         strings.TrimSpace(os.Getenv(EnvCSVURL)),
		LogLevel:       envOr(EnvLogLevel, "info"),
		LogFormat:      envOr(EnvLogFormat, "console"),
		OutputDir:      envOr(EnvOutputDir, "out"),
		ExperimentPath: strings.TrimSpace(os.Getenv(EnvExperimentConfig)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	if c.CSVURL == "" {
		return ssErrors.NewConfigError(EnvCSVURL, "must be set to a URL or file path")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return ssErrors.NewConfigError(EnvLogFormat, "must be console or json, got "+c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ssErrors.NewConfigError(EnvLogLevel, "unknown level "+c.LogLevel)
	}
	if c.OutputDir == "" {
		return ssErrors.NewConfigError(EnvOutputDir, "must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

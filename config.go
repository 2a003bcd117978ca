package notesolve

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the numeric tolerances and defaults an Engine uses.
type Config struct {
	// Tolerance is the Newton convergence threshold on |x[n+1] - x[n]|.
	Tolerance float64 `yaml:"tolerance"`
	// VerifyTolerance is the absolute difference under which both sides of
	// a fully known equation count as equal.
	VerifyTolerance float64 `yaml:"verify_tolerance"`
	MaxIterations   int     `yaml:"max_iterations"`
	InitialGuess    float64 `yaml:"initial_guess"`
	// MinDerivative is the |g'(x)| below which Newton gives up.
	MinDerivative float64 `yaml:"min_derivative"`
	// DefaultSource is the provenance given to context entries without one.
	DefaultSource      string `yaml:"default_source"`
	MaxRelatedFormulas int    `yaml:"max_related_formulas"`
	LogLevel           string `yaml:"log_level"`
}

// DefaultConfig returns the stock tolerances and defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance:          1e-10,
		VerifyTolerance:    1e-10,
		MaxIterations:      100,
		InitialGuess:       1,
		MinDerivative:      1e-15,
		DefaultSource:      SourceSpatial,
		MaxRelatedFormulas: 3,
		LogLevel:           "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig; keys absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("notesolve: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("notesolve: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings that would make the solvers misbehave.
func (c Config) Validate() error {
	switch {
	case c.Tolerance <= 0:
		return fmt.Errorf("notesolve: tolerance must be positive, got %g", c.Tolerance)
	case c.VerifyTolerance <= 0:
		return fmt.Errorf("notesolve: verify_tolerance must be positive, got %g", c.VerifyTolerance)
	case c.MaxIterations < 1:
		return fmt.Errorf("notesolve: max_iterations must be at least 1, got %d", c.MaxIterations)
	case c.MinDerivative < 0:
		return fmt.Errorf("notesolve: min_derivative must not be negative, got %g", c.MinDerivative)
	case c.MaxRelatedFormulas < 0:
		return fmt.Errorf("notesolve: max_related_formulas must not be negative, got %d", c.MaxRelatedFormulas)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a slog level. NOTESOLVE_DEBUG=true or
// DEBUG_ALL=true in the environment forces debug.
func (c Config) Level() (slog.Level, error) {
	if envTrue("NOTESOLVE_DEBUG") || envTrue("DEBUG_ALL") {
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("notesolve: log_level: %w", err)
	}
	return lvl, nil
}

func envTrue(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/reelsmith/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Request defaults
	Platform    string  `json:"platform,omitempty"`     // Target platform (instagram, tiktok, facebook)
	ContentMode string  `json:"content_mode,omitempty"` // Audio mode (music, narration, hybrid)
	Duration    int     `json:"duration,omitempty"`     // Requested reel duration in seconds
	BudgetUSD   float64 `json:"budget_usd,omitempty"`   // Spend ceiling per run

	// Quality gate
	QualityWeights map[string]float64 `json:"quality_weights,omitempty"` // Per-dimension composite weights, must sum to 1.0
	PassThreshold  float64            `json:"pass_threshold,omitempty"`  // Composite score required to pass review
	TechnicalFloor float64            `json:"technical_floor,omitempty"` // Hard floor on the technical dimension
	DimensionFloor float64            `json:"dimension_floor,omitempty"` // Per-dimension sub-threshold for reloop classification

	// Reloop policy
	MaxReloopAttempts int `json:"max_reloop_attempts,omitempty"` // Phase re-entries allowed per run
	FallbackDepth     int `json:"fallback_depth,omitempty"`      // Extra candidates tried after the first

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	FalAPIKey   string `json:"fal_api_key,omitempty"`  // FAL generation API key
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for run archival
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. The quality
// weight sum is a startup invariant: a config that does not sum to 1.0 is
// rejected here, before any run is created.
func (c *Config) Validate() error {
	if len(c.QualityWeights) > 0 {
		if err := c.Weights().Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	for name, v := range map[string]float64{
		"pass_threshold":  c.PassThreshold,
		"technical_floor": c.TechnicalFloor,
		"dimension_floor": c.DimensionFloor,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("config error: %q must be within [0,10], got %v", name, v)
		}
	}

	if c.MaxReloopAttempts < 0 {
		return fmt.Errorf("config error: 'max_reloop_attempts' must be non-negative")
	}
	if c.FallbackDepth < 0 {
		return fmt.Errorf("config error: 'fallback_depth' must be non-negative")
	}
	if c.BudgetUSD < 0 {
		return fmt.Errorf("config error: 'budget_usd' must be non-negative")
	}

	if c.ContentMode != "" && !types.KnownContentMode(types.ContentMode(c.ContentMode)) {
		return fmt.Errorf("config error: unknown content mode %q", c.ContentMode)
	}
	if c.Platform != "" {
		if _, ok := types.SpecForPlatform(types.Platform(c.Platform)); !ok {
			return fmt.Errorf("config error: unknown platform %q", c.Platform)
		}
	}

	return nil
}

// Weights converts the configured weight map to typed dimension weights,
// falling back to the defaults when none are configured.
func (c *Config) Weights() types.Weights {
	if len(c.QualityWeights) == 0 {
		return types.DefaultWeights()
	}
	w := make(types.Weights, len(c.QualityWeights))
	for name, v := range c.QualityWeights {
		w[types.Dimension(name)] = v
	}
	return w
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Platform == "" {
		result.Platform = defaults.Platform
	}
	if result.ContentMode == "" {
		result.ContentMode = defaults.ContentMode
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.FalAPIKey == "" {
		result.FalAPIKey = defaults.FalAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Numeric fields: use default if zero
	if result.Duration == 0 {
		result.Duration = defaults.Duration
	}
	if result.BudgetUSD == 0 {
		result.BudgetUSD = defaults.BudgetUSD
	}
	if result.PassThreshold == 0 {
		result.PassThreshold = defaults.PassThreshold
	}
	if result.TechnicalFloor == 0 {
		result.TechnicalFloor = defaults.TechnicalFloor
	}
	if result.DimensionFloor == 0 {
		result.DimensionFloor = defaults.DimensionFloor
	}
	if result.MaxReloopAttempts == 0 {
		result.MaxReloopAttempts = defaults.MaxReloopAttempts
	}
	if result.FallbackDepth == 0 {
		result.FallbackDepth = defaults.FallbackDepth
	}

	if len(result.QualityWeights) == 0 {
		result.QualityWeights = defaults.QualityWeights
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Platform:          string(types.PlatformInstagram),
		ContentMode:       string(types.ModeMusic),
		Duration:          24,
		BudgetUSD:         10.0,
		PassThreshold:     7.5,
		TechnicalFloor:    6.0,
		DimensionFloor:    6.0,
		MaxReloopAttempts: 3,
		FallbackDepth:     2,
	}
}

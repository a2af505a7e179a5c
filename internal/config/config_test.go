package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reelsmith/internal/types"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"platform": "tiktok",
		"content_mode": "narration",
		"duration": 18,
		"budget_usd": 12.5,
		"pass_threshold": 8.0,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "tiktok", cfg.Platform)
	assert.Equal(t, "narration", cfg.ContentMode)
	assert.Equal(t, 18, cfg.Duration)
	assert.Equal(t, 12.5, cfg.BudgetUSD)
	assert.Equal(t, 8.0, cfg.PassThreshold)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := &Config{
		QualityWeights: map[string]float64{
			"technical":  0.5,
			"content":    0.5,
			"brand":      0.5,
			"platform":   0.5,
			"engagement": 0.5,
		},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := &Config{PassThreshold: 11}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pass_threshold")
}

func TestValidate_UnknownPlatform(t *testing.T) {
	cfg := &Config{Platform: "vimeo"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestWeights_DefaultWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, types.DefaultWeights(), cfg.Weights())
}

func TestWeights_FromConfig(t *testing.T) {
	cfg := &Config{
		QualityWeights: map[string]float64{
			"technical":  0.4,
			"content":    0.3,
			"brand":      0.1,
			"platform":   0.1,
			"engagement": 0.1,
		},
	}

	w := cfg.Weights()
	require.NoError(t, w.Validate())
	assert.Equal(t, 0.4, w[types.DimTechnical])
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()

	partial := Config{
		Platform:  "facebook",
		BudgetUSD: 5,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "facebook", merged.Platform)
	assert.Equal(t, 5.0, merged.BudgetUSD)

	// Default values should fill in empty fields
	assert.Equal(t, string(types.ModeMusic), merged.ContentMode)
	assert.Equal(t, 24, merged.Duration)
	assert.Equal(t, 7.5, merged.PassThreshold)
	assert.Equal(t, 3, merged.MaxReloopAttempts)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		Platform:  "tiktok",
		BudgetUSD: 2.5,
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "tiktok", merged.Platform)
	assert.Equal(t, 2.5, merged.BudgetUSD)
}

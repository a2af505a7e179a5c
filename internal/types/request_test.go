package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RunRequest {
	return RunRequest{
		Prompt:          "sunset over the ocean with upbeat energy",
		DurationSeconds: 20,
		ContentMode:     ModeMusic,
		Platform:        PlatformInstagram,
		BudgetUSD:       5.0,
	}
}

func TestRunRequestValidate_Valid(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate())
}

func TestRunRequestValidate_DurationBounds(t *testing.T) {
	req := validRequest()
	req.DurationSeconds = 4
	assert.Error(t, req.Validate())

	req.DurationSeconds = 61
	assert.Error(t, req.Validate())

	req.DurationSeconds = 5
	assert.NoError(t, req.Validate())

	req.DurationSeconds = 60
	assert.NoError(t, req.Validate())
}

func TestRunRequestValidate_BudgetMustBePositive(t *testing.T) {
	req := validRequest()
	req.BudgetUSD = 0
	assert.Error(t, req.Validate())

	req.BudgetUSD = -1
	assert.Error(t, req.Validate())
}

func TestRunRequestValidate_UnknownContentMode(t *testing.T) {
	req := validRequest()
	req.ContentMode = ContentMode("slideshow")
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content mode")
}

func TestRunRequestValidate_UnknownPlatform(t *testing.T) {
	req := validRequest()
	req.Platform = Platform("myspace")
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform")
}

func TestSpecForPlatform_KnownPlatforms(t *testing.T) {
	spec, ok := SpecForPlatform(PlatformTikTok)
	require.True(t, ok)
	assert.Equal(t, "1080x1920", spec.Resolution)
	assert.Equal(t, 9, spec.OptimalDurationMin)
	assert.Equal(t, 21, spec.OptimalDurationMax)

	_, ok = SpecForPlatform(Platform("vine"))
	assert.False(t, ok)
}

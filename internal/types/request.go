package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Platform identifies the target social platform for a reel.
type Platform string

// Supported platforms.
const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
)

// PlatformSpec describes the technical requirements a platform imposes on
// the final artifact.
type PlatformSpec struct {
	Resolution         string
	OptimalDurationMin int // seconds
	OptimalDurationMax int // seconds
}

// platformSpecs holds per-platform requirements. All short-form platforms
// currently share the 9:16 vertical resolution.
var platformSpecs = map[Platform]PlatformSpec{
	PlatformInstagram: {Resolution: "1080x1920", OptimalDurationMin: 15, OptimalDurationMax: 30},
	PlatformTikTok:    {Resolution: "1080x1920", OptimalDurationMin: 9, OptimalDurationMax: 21},
	PlatformFacebook:  {Resolution: "1080x1920", OptimalDurationMin: 15, OptimalDurationMax: 60},
}

// SpecForPlatform returns the platform spec and whether the platform is known.
func SpecForPlatform(p Platform) (PlatformSpec, bool) {
	spec, ok := platformSpecs[p]
	return spec, ok
}

// RunRequest is the user-facing request that starts a pipeline run.
type RunRequest struct {
	Prompt          string      `json:"prompt" validate:"required,min=3"`
	DurationSeconds int         `json:"duration_seconds" validate:"required,min=5,max=60"`
	ContentMode     ContentMode `json:"content_mode" validate:"required"`
	Platform        Platform    `json:"platform" validate:"required"`
	BudgetUSD       float64     `json:"budget_usd" validate:"required,gt=0"`
}

// Validate checks the request against the intake contract: duration within
// [5s, 60s], budget > 0, recognized content mode and platform.
func (r *RunRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !KnownContentMode(r.ContentMode) {
		return fmt.Errorf("unknown content mode: %q", r.ContentMode)
	}
	if _, ok := SpecForPlatform(r.Platform); !ok {
		return fmt.Errorf("unknown platform: %q", r.Platform)
	}
	return nil
}

// Package capability defines the abstract service contracts the pipeline
// core invokes for generation and analysis, plus the error taxonomy shared
// across the pipeline. Implementations live in their own packages; the core
// never inspects provider-specific payloads beyond these contracts.
package capability

import (
	"context"

	"github.com/jonathan/reelsmith/internal/types"
)

// PlanningService turns a user prompt into a storyboard.
type PlanningService interface {
	Plan(ctx context.Context, prompt string, mode types.ContentMode, durationHint int) (*types.Storyboard, error)
}

// RefinementService enhances storyboard scenes into generation-ready
// prompts, each carrying the refiner's own quality prediction.
type RefinementService interface {
	Refine(ctx context.Context, storyboard *types.Storyboard, targetModelProfile string) ([]types.RefinedPrompt, error)
}

// VideoBackend generates one clip from a refined prompt.
type VideoBackend interface {
	Generate(ctx context.Context, prompt string, durationSeconds float64, resolution string) (*types.VideoArtifact, error)
}

// AudioBackend synthesizes the audio track for a reel. The input is either
// a narration script or a mood description depending on content mode.
type AudioBackend interface {
	Synthesize(ctx context.Context, spec AudioSpec) (*types.AudioArtifact, error)
}

// AudioSpec carries the input for audio synthesis.
type AudioSpec struct {
	Script          string
	MoodHints       []string
	Mode            types.ContentMode
	DurationSeconds float64
}

// SynchronizationService assembles clips and audio into the final reel.
type SynchronizationService interface {
	Assemble(ctx context.Context, clips []types.VideoArtifact, audio *types.AudioArtifact) (*types.FinalArtifact, error)
}

// ReviewContext carries run information the reviewer needs to judge
// content against its intent.
type ReviewContext struct {
	Prompt      string
	ContentMode types.ContentMode
	Platform    types.Platform
}

// ReviewResponse is the content reviewer's structured verdict: one score
// per non-technical dimension on a 0-10 scale, with improvement notes.
type ReviewResponse struct {
	Content    float64 `json:"content"`
	Brand      float64 `json:"brand"`
	Platform   float64 `json:"platform"`
	Engagement float64 `json:"engagement"`

	Notes map[string]string `json:"notes,omitempty"`
}

// ReviewService reviews the final artifact and scores the content-facing
// quality dimensions.
type ReviewService interface {
	Review(ctx context.Context, final *types.FinalArtifact, rc ReviewContext) (*ReviewResponse, error)
}

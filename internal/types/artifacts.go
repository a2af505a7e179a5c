package types

// Scene is one storyboard entry describing a single clip to generate.
type Scene struct {
	Number      int     `json:"number"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"` // seconds
	Script      string  `json:"script,omitempty"`
}

// Storyboard is the planning phase artifact: an ordered scene list plus
// mood hints for audio generation.
type Storyboard struct {
	Scenes    []Scene  `json:"scenes"`
	MoodHints []string `json:"mood_hints,omitempty"`
}

// TotalDuration returns the sum of scene durations in seconds.
func (s *Storyboard) TotalDuration() float64 {
	var total float64
	for _, scene := range s.Scenes {
		total += scene.Duration
	}
	return total
}

// RefinedPrompt is one enhanced generation prompt produced by the
// refinement phase, with the refiner's own quality prediction.
type RefinedPrompt struct {
	SceneNumber       int     `json:"scene_number"`
	Prompt            string  `json:"prompt"`
	QualityPrediction float64 `json:"quality_prediction"` // 0-1
	RecommendedModel  string  `json:"recommended_model,omitempty"`
}

// VideoArtifact references one generated clip.
type VideoArtifact struct {
	SceneNumber    int     `json:"scene_number"`
	Ref            string  `json:"ref"` // path or blob reference
	DurationActual float64 `json:"duration_actual"`
	Resolution     string  `json:"resolution"`
	ModelID        string  `json:"model_id"`
}

// AudioArtifact references the generated audio track.
type AudioArtifact struct {
	Ref            string  `json:"ref"`
	DurationActual float64 `json:"duration_actual"`
	ModelID        string  `json:"model_id"`
}

// FinalArtifact is the assembled reel produced by synchronization.
type FinalArtifact struct {
	Ref            string  `json:"ref"`
	DurationActual float64 `json:"duration_actual"`
	AudioDuration  float64 `json:"audio_duration"`
	Resolution     string  `json:"resolution"`
	HasAllTracks   bool    `json:"has_all_tracks"`
}

// ArtifactBundle collects everything the phases have produced so far.
// The quality aggregator assesses the bundle as a whole.
type ArtifactBundle struct {
	Storyboard *Storyboard     `json:"storyboard,omitempty"`
	Prompts    []RefinedPrompt `json:"prompts,omitempty"`
	Clips      []VideoArtifact `json:"clips,omitempty"`
	Audio      *AudioArtifact  `json:"audio,omitempty"`
	Final      *FinalArtifact  `json:"final,omitempty"`
}

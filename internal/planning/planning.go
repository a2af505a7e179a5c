// Package planning produces storyboards from user prompts using an LLM.
package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/llm"
	"github.com/jonathan/reelsmith/internal/prompts"
	jsonschema "github.com/jonathan/reelsmith/internal/schemas"
	"github.com/jonathan/reelsmith/internal/types"
	"github.com/jonathan/reelsmith/schemas"
)

// maxSceneSeconds caps a single scene so every text-to-video backend in
// the catalog can render it as one clip.
const maxSceneSeconds = 8.0

// Service implements storyboard planning on a Gemini model tier.
type Service struct {
	client llm.Client
	tier   llm.ModelTier
}

// New creates a planning service on the given client and tier.
func New(client llm.Client, tier llm.ModelTier) *Service {
	return &Service{client: client, tier: tier}
}

// Plan asks the model for a scene plan and normalizes it to the
// requested duration.
func (s *Service) Plan(ctx context.Context, prompt string, mode types.ContentMode, durationHint int) (*types.Storyboard, error) {
	brief := prompts.Format(prompts.MustGet("planning.json", "storyboard-brief"), map[string]string{
		"Prompt":   prompt,
		"Duration": strconv.Itoa(durationHint),
		"Mode":     string(mode),
	})

	raw, err := s.client.GenerateJSON(ctx, llm.BuildExtractionPrompt(llm.StoryboardSchema(), brief), s.tier)
	if err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Transient: true, Cause: err}
	}

	raw = llm.CleanJSONBlock(raw)
	if err := jsonschema.ValidateJSONString(schemas.Storyboard, raw); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("storyboard rejected: %w", err)}
	}

	var storyboard types.Storyboard
	if err := json.Unmarshal([]byte(raw), &storyboard); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("failed to parse storyboard: %w", err)}
	}

	normalize(&storyboard, float64(durationHint))
	return &storyboard, nil
}

// normalize scales scene durations to the requested total, splits scenes
// that exceed the clip ceiling, and renumbers sequentially.
func normalize(sb *types.Storyboard, targetSeconds float64) {
	total := sb.TotalDuration()
	if total > 0 && targetSeconds > 0 && total != targetSeconds {
		factor := targetSeconds / total
		for i := range sb.Scenes {
			sb.Scenes[i].Duration *= factor
		}
	}

	scenes := make([]types.Scene, 0, len(sb.Scenes))
	for _, scene := range sb.Scenes {
		if scene.Duration <= maxSceneSeconds {
			scenes = append(scenes, scene)
			continue
		}
		parts := int(math.Ceil(scene.Duration / maxSceneSeconds))
		chunk := scene.Duration / float64(parts)
		for p := 0; p < parts; p++ {
			split := scene
			split.Duration = chunk
			scenes = append(scenes, split)
		}
	}
	for i := range scenes {
		scenes[i].Number = i + 1
	}
	sb.Scenes = scenes
}

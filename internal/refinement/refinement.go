// Package refinement rewrites storyboard scenes into generation-ready
// prompts tuned for a specific video model.
package refinement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/llm"
	"github.com/jonathan/reelsmith/internal/prompts"
	jsonschema "github.com/jonathan/reelsmith/internal/schemas"
	"github.com/jonathan/reelsmith/internal/types"
	"github.com/jonathan/reelsmith/schemas"
)

// neutralPrediction is assigned when the model skipped a scene and we
// fall back to the raw storyboard description.
const neutralPrediction = 0.5

// Service implements prompt refinement on a Gemini model tier.
type Service struct {
	client llm.Client
	tier   llm.ModelTier
}

// New creates a refinement service on the given client and tier.
func New(client llm.Client, tier llm.ModelTier) *Service {
	return &Service{client: client, tier: tier}
}

// Refine produces exactly one generation prompt per storyboard scene,
// in scene order, targeted at the named model profile.
func (s *Service) Refine(ctx context.Context, storyboard *types.Storyboard, targetModelProfile string) ([]types.RefinedPrompt, error) {
	if storyboard == nil || len(storyboard.Scenes) == 0 {
		return nil, fmt.Errorf("refinement requires a storyboard with at least one scene")
	}

	sbJSON, err := json.Marshal(storyboard)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize storyboard: %w", err)
	}

	brief := prompts.Format(prompts.MustGet("refinement.json", "refine-prompts-brief"), map[string]string{
		"TargetModel": targetModelProfile,
		"Storyboard":  string(sbJSON),
	})

	raw, err := s.client.GenerateJSON(ctx, llm.BuildExtractionPrompt(llm.RefinedPromptsSchema(), brief), s.tier)
	if err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Transient: true, Cause: err}
	}

	raw = llm.CleanJSONBlock(raw)
	if err := jsonschema.ValidateJSONString(schemas.RefinedPrompts, raw); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("refined prompts rejected: %w", err)}
	}

	var out struct {
		Prompts []types.RefinedPrompt `json:"prompts"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("failed to parse refined prompts: %w", err)}
	}

	return align(storyboard, out.Prompts, targetModelProfile), nil
}

// align guarantees one prompt per scene, in scene order. Scenes the
// model skipped fall back to their storyboard description.
func align(sb *types.Storyboard, got []types.RefinedPrompt, model string) []types.RefinedPrompt {
	byScene := make(map[int]types.RefinedPrompt, len(got))
	for _, p := range got {
		if _, dup := byScene[p.SceneNumber]; !dup {
			byScene[p.SceneNumber] = p
		}
	}

	refined := make([]types.RefinedPrompt, 0, len(sb.Scenes))
	for _, scene := range sb.Scenes {
		p, ok := byScene[scene.Number]
		if !ok || p.Prompt == "" {
			p = types.RefinedPrompt{
				SceneNumber:       scene.Number,
				Prompt:            scene.Description,
				QualityPrediction: neutralPrediction,
			}
		}
		if p.QualityPrediction < 0 {
			p.QualityPrediction = 0
		} else if p.QualityPrediction > 1 {
			p.QualityPrediction = 1
		}
		p.RecommendedModel = model
		refined = append(refined, p)
	}
	return refined
}

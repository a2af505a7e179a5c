// Package review scores finished reels on the content-facing quality
// dimensions using a reviewer LLM.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/llm"
	"github.com/jonathan/reelsmith/internal/prompts"
	jsonschema "github.com/jonathan/reelsmith/internal/schemas"
	"github.com/jonathan/reelsmith/internal/types"
	"github.com/jonathan/reelsmith/schemas"
)

// Service implements content review on a Gemini model tier.
type Service struct {
	client llm.Client
	tier   llm.ModelTier
}

// New creates a review service on the given client and tier.
func New(client llm.Client, tier llm.ModelTier) *Service {
	return &Service{client: client, tier: tier}
}

// Review scores the final artifact against the run's brief. Technical
// checks are measured elsewhere; the model judges content only.
func (s *Service) Review(ctx context.Context, final *types.FinalArtifact, rc capability.ReviewContext) (*capability.ReviewResponse, error) {
	if final == nil {
		return nil, fmt.Errorf("review requires a final artifact")
	}

	brief := prompts.Format(prompts.MustGet("review.json", "review-brief"), map[string]string{
		"Prompt":   rc.Prompt,
		"Platform": string(rc.Platform),
		"Mode":     string(rc.ContentMode),
		"Duration": strconv.FormatFloat(final.DurationActual, 'f', 1, 64),
	})

	raw, err := s.client.GenerateJSON(ctx, llm.BuildExtractionPrompt(llm.ContentReviewSchema(), brief), s.tier)
	if err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Transient: true, Cause: err}
	}

	raw = llm.CleanJSONBlock(raw)
	if err := jsonschema.ValidateJSONString(schemas.Review, raw); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("review rejected: %w", err)}
	}

	var resp capability.ReviewResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &capability.GenerationError{Backend: s.client.GetModel(s.tier), Cause: fmt.Errorf("failed to parse review: %w", err)}
	}

	return &resp, nil
}

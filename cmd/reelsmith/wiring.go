package main

import (
	"context"
	"fmt"

	"github.com/jonathan/reelsmith/internal/assembly"
	"github.com/jonathan/reelsmith/internal/budget"
	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/config"
	"github.com/jonathan/reelsmith/internal/fal"
	"github.com/jonathan/reelsmith/internal/llm"
	"github.com/jonathan/reelsmith/internal/pipeline"
	"github.com/jonathan/reelsmith/internal/planning"
	"github.com/jonathan/reelsmith/internal/quality"
	"github.com/jonathan/reelsmith/internal/refinement"
	"github.com/jonathan/reelsmith/internal/review"
	"github.com/jonathan/reelsmith/internal/selector"
)

// fal.run queue endpoints for each catalog backend.
const (
	endpointHailuo   = "fal-ai/minimax/hailuo-02/standard/text-to-video"
	endpointRunway   = "fal-ai/runway-gen3/turbo/text-to-video"
	endpointVeo      = "fal-ai/veo2"
	endpointF5TTS    = "fal-ai/f5-tts"
	endpointMusicGen = "fal-ai/musicgen/medium"
)

// buildController assembles the full pipeline from configuration: the
// Gemini client behind planning, refinement, and review; the fal queue
// client behind every video and audio backend in the default catalog;
// and the selector, budget tracker, and quality gate around them.
func buildController(ctx context.Context, cfg config.Config, archiver pipeline.Archiver, onProgress pipeline.ProgressCallback) (*pipeline.Controller, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set --api-key or GEMINI_API_KEY)")
	}
	if cfg.FalAPIKey == "" {
		return nil, fmt.Errorf("fal API key is required (set --fal-api-key or FAL_KEY)")
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	falClient := fal.NewClient(cfg.FalAPIKey, nil)

	ports := pipeline.Ports{
		Planners: map[string]capability.PlanningService{
			selector.PlannerFlash: planning.New(client, llm.TierStandard),
			selector.PlannerPro:   planning.New(client, llm.TierAdvanced),
		},
		Refiners: map[string]capability.RefinementService{
			selector.RefinerFlash: refinement.New(client, llm.TierStandard),
			selector.RefinerPro:   refinement.New(client, llm.TierAdvanced),
		},
		Video: map[string]capability.VideoBackend{
			selector.VideoHailuo: fal.NewVideoBackend(falClient, endpointHailuo, selector.VideoHailuo),
			selector.VideoRunway: fal.NewVideoBackend(falClient, endpointRunway, selector.VideoRunway),
			selector.VideoVeo:    fal.NewVideoBackend(falClient, endpointVeo, selector.VideoVeo),
		},
		Audio: map[string]capability.AudioBackend{
			selector.AudioF5TTS:    fal.NewAudioBackend(falClient, endpointF5TTS, selector.AudioF5TTS),
			selector.AudioMusicGen: fal.NewAudioBackend(falClient, endpointMusicGen, selector.AudioMusicGen),
		},
		Sync:   assembly.New(),
		Review: review.New(client, llm.TierStandard),
	}

	thresholds := quality.Thresholds{
		PassThreshold:  cfg.PassThreshold,
		TechnicalFloor: cfg.TechnicalFloor,
		DimensionFloor: cfg.DimensionFloor,
	}

	policy := pipeline.DefaultPolicy()
	policy.MaxReloopAttempts = cfg.MaxReloopAttempts
	policy.FallbackDepth = cfg.FallbackDepth

	return pipeline.New(pipeline.Options{
		Ports:      ports,
		Selector:   selector.NewWithDefaultCatalog(),
		Tracker:    budget.NewTracker(),
		Aggregator: quality.NewAggregator(cfg.Weights(), thresholds),
		Thresholds: thresholds,
		Policy:     policy,
		Archiver:   archiver,
		OnProgress: onProgress,
	}), nil
}

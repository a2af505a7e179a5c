package fal

import (
	"context"
	"errors"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/types"
)

// VideoBackend generates clips through one fal.ai text-to-video model.
type VideoBackend struct {
	client   *Client
	endpoint string
	modelID  string
}

// NewVideoBackend binds a queue client to a model endpoint. The modelID
// is the catalog identifier reported on generated artifacts.
func NewVideoBackend(client *Client, endpoint, modelID string) *VideoBackend {
	return &VideoBackend{client: client, endpoint: endpoint, modelID: modelID}
}

type videoRequest struct {
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration"`
	Resolution      string  `json:"resolution,omitempty"`
}

type videoResponse struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
	Duration   float64 `json:"duration,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
}

// Generate renders one clip from a refined prompt.
func (b *VideoBackend) Generate(ctx context.Context, prompt string, durationSeconds float64, resolution string) (*types.VideoArtifact, error) {
	req := videoRequest{
		Prompt:          prompt,
		DurationSeconds: durationSeconds,
		Resolution:      resolution,
	}

	var resp videoResponse
	if err := b.client.run(ctx, b.endpoint, req, &resp); err != nil {
		return nil, wrapBackendError(b.modelID, err)
	}
	if resp.Video.URL == "" {
		return nil, &capability.GenerationError{
			Backend: b.modelID,
			Cause:   &APIError{Endpoint: b.endpoint, Message: "response carries no video URL"},
		}
	}

	actual := resp.Duration
	if actual == 0 {
		actual = durationSeconds
	}
	res := resp.Resolution
	if res == "" {
		res = resolution
	}

	return &types.VideoArtifact{
		Ref:            resp.Video.URL,
		DurationActual: actual,
		Resolution:     res,
		ModelID:        b.modelID,
	}, nil
}

// wrapBackendError translates queue failures into the pipeline's error
// taxonomy so the controller can pick between local retry and fallback.
func wrapBackendError(modelID string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &capability.GenerationError{Backend: modelID, Transient: apiErr.retryable(), Cause: apiErr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &capability.GenerationError{Backend: modelID, Transient: true, Cause: err}
}

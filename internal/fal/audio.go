package fal

import (
	"context"
	"strings"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/types"
)

// AudioBackend synthesizes soundtracks through one fal.ai audio model.
// The same backend type serves both narration and music endpoints; the
// request text is chosen from the AudioSpec by content mode.
type AudioBackend struct {
	client   *Client
	endpoint string
	modelID  string
}

// NewAudioBackend binds a queue client to an audio model endpoint.
func NewAudioBackend(client *Client, endpoint, modelID string) *AudioBackend {
	return &AudioBackend{client: client, endpoint: endpoint, modelID: modelID}
}

type audioRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration"`
}

type audioResponse struct {
	Audio struct {
		URL string `json:"url"`
	} `json:"audio"`
	Duration float64 `json:"duration,omitempty"`
}

// Synthesize produces the audio track for a reel.
func (b *AudioBackend) Synthesize(ctx context.Context, spec capability.AudioSpec) (*types.AudioArtifact, error) {
	text := spec.Script
	if spec.Mode == types.ModeMusic || text == "" {
		text = strings.Join(spec.MoodHints, ", ")
	}

	req := audioRequest{
		Text:            text,
		DurationSeconds: spec.DurationSeconds,
	}

	var resp audioResponse
	if err := b.client.run(ctx, b.endpoint, req, &resp); err != nil {
		return nil, wrapBackendError(b.modelID, err)
	}
	if resp.Audio.URL == "" {
		return nil, &capability.GenerationError{
			Backend: b.modelID,
			Cause:   &APIError{Endpoint: b.endpoint, Message: "response carries no audio URL"},
		}
	}

	actual := resp.Duration
	if actual == 0 {
		actual = spec.DurationSeconds
	}

	return &types.AudioArtifact{
		Ref:            resp.Audio.URL,
		DurationActual: actual,
		ModelID:        b.modelID,
	}, nil
}

package refinement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/llm"
	"github.com/jonathan/reelsmith/internal/types"
)

type stubClient struct {
	response   string
	err        error
	lastPrompt string
}

func (c *stubClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.GenerateJSON(ctx, prompt, tier)
}

func (c *stubClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	c.lastPrompt = prompt
	return c.response, c.err
}

func (c *stubClient) GetModel(tier llm.ModelTier) string { return "stub-model" }

func (c *stubClient) Close() error { return nil }

func testStoryboard() *types.Storyboard {
	return &types.Storyboard{
		Scenes: []types.Scene{
			{Number: 1, Description: "A fox runs through snow", Duration: 8},
			{Number: 2, Description: "Close-up of paw prints", Duration: 8},
		},
	}
}

func TestRefine_OnePromptPerScene(t *testing.T) {
	client := &stubClient{response: `{
		"prompts": [
			{"scene_number": 1, "prompt": "Tracking shot of a red fox sprinting through deep snow, golden hour", "quality_prediction": 0.8},
			{"scene_number": 2, "prompt": "Macro shot of fresh paw prints, soft morning light", "quality_prediction": 0.7}
		]
	}`}

	svc := New(client, llm.TierStandard)
	refined, err := svc.Refine(context.Background(), testStoryboard(), "hailuo-02")
	require.NoError(t, err)

	require.Len(t, refined, 2)
	assert.Equal(t, 1, refined[0].SceneNumber)
	assert.Equal(t, 2, refined[1].SceneNumber)
	assert.InDelta(t, 0.8, refined[0].QualityPrediction, 0.001)
	for _, p := range refined {
		assert.Equal(t, "hailuo-02", p.RecommendedModel)
		assert.NotEmpty(t, p.Prompt)
	}
	assert.Contains(t, client.lastPrompt, "hailuo-02")
	assert.Contains(t, client.lastPrompt, "A fox runs through snow")
}

func TestRefine_FillsSkippedScenes(t *testing.T) {
	client := &stubClient{response: `{
		"prompts": [
			{"scene_number": 1, "prompt": "Tracking shot of a red fox", "quality_prediction": 0.9}
		]
	}`}

	svc := New(client, llm.TierStandard)
	refined, err := svc.Refine(context.Background(), testStoryboard(), "veo-2")
	require.NoError(t, err)

	require.Len(t, refined, 2)
	assert.Equal(t, "Close-up of paw prints", refined[1].Prompt)
	assert.InDelta(t, neutralPrediction, refined[1].QualityPrediction, 0.001)
}

func TestRefine_RequiresStoryboard(t *testing.T) {
	svc := New(&stubClient{}, llm.TierStandard)

	_, err := svc.Refine(context.Background(), nil, "veo-2")
	assert.Error(t, err)

	_, err = svc.Refine(context.Background(), &types.Storyboard{}, "veo-2")
	assert.Error(t, err)
}

func TestRefine_RejectsMalformedPrompts(t *testing.T) {
	client := &stubClient{response: `{"prompts": []}`}

	svc := New(client, llm.TierStandard)
	_, err := svc.Refine(context.Background(), testStoryboard(), "veo-2")
	require.Error(t, err)
	assert.False(t, capability.IsTransient(err))
}

func TestRefine_CallErrorIsTransient(t *testing.T) {
	client := &stubClient{err: errors.New("deadline exceeded")}

	svc := New(client, llm.TierStandard)
	_, err := svc.Refine(context.Background(), testStoryboard(), "veo-2")
	require.Error(t, err)
	assert.True(t, capability.IsTransient(err))
}

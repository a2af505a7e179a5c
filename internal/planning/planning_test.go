package planning

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

func TestPlan_ParsesStoryboard(t *testing.T) {
	client := &stubClient{response: `{
		"scenes": [
			{"number": 1, "description": "A fox runs through snow", "duration": 10, "script": "It begins."},
			{"number": 2, "description": "Close-up of paw prints", "duration": 14, "script": "Every step counts."}
		],
		"mood_hints": ["wintry", "calm"]
	}`}

	svc := New(client, llm.TierStandard)
	sb, err := svc.Plan(context.Background(), "a fox in winter", types.ModeNarration, 24)
	require.NoError(t, err)

	assert.InDelta(t, 24.0, sb.TotalDuration(), 0.001)
	assert.Equal(t, []string{"wintry", "calm"}, sb.MoodHints)
	for i, scene := range sb.Scenes {
		assert.Equal(t, i+1, scene.Number)
		assert.LessOrEqual(t, scene.Duration, maxSceneSeconds)
	}
	assert.Contains(t, client.lastPrompt, "a fox in winter")
	assert.Contains(t, client.lastPrompt, "24 seconds")
}

func TestPlan_ScalesDurationsToHint(t *testing.T) {
	client := &stubClient{response: `{
		"scenes": [
			{"number": 1, "description": "Opening shot", "duration": 3},
			{"number": 2, "description": "Closing shot", "duration": 3}
		]
	}`}

	svc := New(client, llm.TierStandard)
	sb, err := svc.Plan(context.Background(), "anything", types.ModeMusic, 12)
	require.NoError(t, err)

	require.Len(t, sb.Scenes, 2)
	assert.InDelta(t, 6.0, sb.Scenes[0].Duration, 0.001)
	assert.InDelta(t, 12.0, sb.TotalDuration(), 0.001)
}

func TestPlan_SplitsScenesOverClipCeiling(t *testing.T) {
	client := &stubClient{response: `{
		"scenes": [
			{"number": 1, "description": "One long take", "duration": 20, "script": "All in one breath."}
		]
	}`}

	svc := New(client, llm.TierStandard)
	sb, err := svc.Plan(context.Background(), "anything", types.ModeNarration, 20)
	require.NoError(t, err)

	require.Len(t, sb.Scenes, 3)
	for i, scene := range sb.Scenes {
		assert.Equal(t, i+1, scene.Number)
		assert.Equal(t, "One long take", scene.Description)
		assert.LessOrEqual(t, scene.Duration, maxSceneSeconds)
	}
	assert.InDelta(t, 20.0, sb.TotalDuration(), 0.001)
}

func TestPlan_StripsCodeFences(t *testing.T) {
	client := &stubClient{response: "```json\n{\"scenes\": [{\"number\": 1, \"description\": \"A fox\", \"duration\": 8}]}\n```"}

	svc := New(client, llm.TierStandard)
	sb, err := svc.Plan(context.Background(), "a fox", types.ModeMusic, 8)
	require.NoError(t, err)
	require.Len(t, sb.Scenes, 1)
}

func TestPlan_RejectsMalformedStoryboard(t *testing.T) {
	client := &stubClient{response: `{"scenes": [{"number": 1, "description": "A fox"}]}`}

	svc := New(client, llm.TierStandard)
	_, err := svc.Plan(context.Background(), "a fox", types.ModeMusic, 24)
	require.Error(t, err)
	assert.False(t, capability.IsTransient(err), "schema rejection should not be retried")
}

func TestPlan_CallErrorIsTransient(t *testing.T) {
	client := &stubClient{err: errors.New("connection reset")}

	svc := New(client, llm.TierStandard)
	_, err := svc.Plan(context.Background(), "a fox", types.ModeMusic, 24)
	require.Error(t, err)
	assert.True(t, capability.IsTransient(err))

	var genErr *capability.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "stub-model", genErr.Backend)
}

package fal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/types"
)

// queueServer simulates the fal.ai queue: submit, poll, fetch result.
type queueServer struct {
	*httptest.Server

	pendingPolls int32 // polls answering IN_PROGRESS before COMPLETED
	result       interface{}
	submitStatus int
	lastRequest  map[string]interface{}
}

func newQueueServer(t *testing.T, result interface{}) *queueServer {
	t.Helper()
	qs := &queueServer{result: result, submitStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := "COMPLETED"
		if atomic.AddInt32(&qs.pendingPolls, -1) >= 0 {
			status = "IN_PROGRESS"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(qs.result)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if qs.submitStatus != http.StatusOK {
			http.Error(w, "model error", qs.submitStatus)
			return
		}
		assert.Equal(t, "Key test-key", r.Header.Get("Authorization"))
		qs.lastRequest = map[string]interface{}{}
		_ = json.NewDecoder(r.Body).Decode(&qs.lastRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req-1",
			"status_url":   qs.URL + "/status",
			"response_url": qs.URL + "/result",
		})
	})

	qs.Server = httptest.NewServer(mux)
	t.Cleanup(qs.Close)
	return qs
}

func newTestClient(qs *queueServer) *Client {
	return NewClient("test-key", &Options{
		BaseURL:      qs.URL,
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
	})
}

func TestVideoBackend_Generate(t *testing.T) {
	qs := newQueueServer(t, map[string]interface{}{
		"video":    map[string]string{"url": "https://cdn.example/clip-1.mp4"},
		"duration": 7.9,
	})
	qs.pendingPolls = 2

	backend := NewVideoBackend(newTestClient(qs), "fal-ai/minimax-video", "hailuo-standard")
	clip, err := backend.Generate(context.Background(), "a fox in snow", 8, "1080x1920")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/clip-1.mp4", clip.Ref)
	assert.InDelta(t, 7.9, clip.DurationActual, 0.001)
	assert.Equal(t, "1080x1920", clip.Resolution)
	assert.Equal(t, "hailuo-standard", clip.ModelID)

	assert.Equal(t, "a fox in snow", qs.lastRequest["prompt"])
	assert.InDelta(t, 8.0, qs.lastRequest["duration"].(float64), 0.001)
}

func TestVideoBackend_ServerErrorIsTransient(t *testing.T) {
	qs := newQueueServer(t, nil)
	qs.submitStatus = http.StatusServiceUnavailable

	backend := NewVideoBackend(newTestClient(qs), "fal-ai/minimax-video", "hailuo-standard")
	_, err := backend.Generate(context.Background(), "a fox", 8, "1080x1920")
	require.Error(t, err)
	assert.True(t, capability.IsTransient(err))
}

func TestVideoBackend_ClientErrorIsFatal(t *testing.T) {
	qs := newQueueServer(t, nil)
	qs.submitStatus = http.StatusUnprocessableEntity

	backend := NewVideoBackend(newTestClient(qs), "fal-ai/minimax-video", "hailuo-standard")
	_, err := backend.Generate(context.Background(), "a fox", 8, "1080x1920")
	require.Error(t, err)
	assert.False(t, capability.IsTransient(err))

	var genErr *capability.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "hailuo-standard", genErr.Backend)
}

func TestVideoBackend_MissingURLIsFatal(t *testing.T) {
	qs := newQueueServer(t, map[string]interface{}{"duration": 8})

	backend := NewVideoBackend(newTestClient(qs), "fal-ai/minimax-video", "hailuo-standard")
	_, err := backend.Generate(context.Background(), "a fox", 8, "1080x1920")
	require.Error(t, err)
	assert.False(t, capability.IsTransient(err))
}

func TestVideoBackend_CancelDuringPoll(t *testing.T) {
	qs := newQueueServer(t, map[string]interface{}{
		"video": map[string]string{"url": "https://cdn.example/clip.mp4"},
	})
	qs.pendingPolls = 1 << 20

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	backend := NewVideoBackend(newTestClient(qs), "fal-ai/minimax-video", "hailuo-standard")
	_, err := backend.Generate(ctx, "a fox", 8, "1080x1920")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAudioBackend_SynthesizeNarration(t *testing.T) {
	qs := newQueueServer(t, map[string]interface{}{
		"audio":    map[string]string{"url": "https://cdn.example/track.wav"},
		"duration": 24.1,
	})

	backend := NewAudioBackend(newTestClient(qs), "fal-ai/f5-tts", "f5-tts")
	track, err := backend.Synthesize(context.Background(), capability.AudioSpec{
		Script:          "It begins. Every step counts.",
		Mode:            types.ModeNarration,
		DurationSeconds: 24,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/track.wav", track.Ref)
	assert.InDelta(t, 24.1, track.DurationActual, 0.001)
	assert.Equal(t, "f5-tts", track.ModelID)
	assert.Equal(t, "It begins. Every step counts.", qs.lastRequest["text"])
}

func TestAudioBackend_MusicUsesMoodHints(t *testing.T) {
	qs := newQueueServer(t, map[string]interface{}{
		"audio": map[string]string{"url": "https://cdn.example/track.wav"},
	})

	backend := NewAudioBackend(newTestClient(qs), "fal-ai/musicgen", "musicgen")
	track, err := backend.Synthesize(context.Background(), capability.AudioSpec{
		Script:          "ignored for music",
		MoodHints:       []string{"wintry", "calm"},
		Mode:            types.ModeMusic,
		DurationSeconds: 24,
	})
	require.NoError(t, err)

	assert.Equal(t, "wintry, calm", qs.lastRequest["text"])
	assert.InDelta(t, 24.0, track.DurationActual, 0.001)
}

func TestAPIError_Format(t *testing.T) {
	err := &APIError{Endpoint: "fal-ai/musicgen", StatusCode: 429, Message: "rate limited"}
	assert.Contains(t, err.Error(), "fal-ai/musicgen")
	assert.Contains(t, err.Error(), "429")
	assert.True(t, err.retryable())

	fatal := &APIError{Endpoint: "fal-ai/musicgen", StatusCode: 400, Message: "bad request"}
	assert.False(t, fatal.retryable())
}

package server

import (
	"sync"

	"github.com/jonathan/reelsmith/internal/pipeline"
)

// subscriber channels are buffered; a slow SSE client drops events rather
// than blocking the pipeline.
const subscriberBuffer = 16

// Hub fans controller progress events out to SSE subscribers per run.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan pipeline.ProgressEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan pipeline.ProgressEvent]struct{})}
}

// Publish delivers an event to every subscriber of its run. Publish never
// blocks; it is safe to wire directly as the controller's progress callback.
func (h *Hub) Publish(event pipeline.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[event.RunID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener for one run's events. The returned cancel
// function must be called when the listener is done.
func (h *Hub) Subscribe(runID string) (<-chan pipeline.ProgressEvent, func()) {
	ch := make(chan pipeline.ProgressEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[chan pipeline.ProgressEvent]struct{})
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[runID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, runID)
			}
		}
	}
	return ch, cancel
}

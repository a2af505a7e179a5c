package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventStream writes Server-Sent Events to a run progress watcher.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &eventStream{w: w, flusher: flusher}, nil
}

// send marshals data and flushes one named event to the client.
func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// done closes the logical stream with the run's terminal status. The HTTP
// connection itself is closed by the handler returning.
func (s *eventStream) done(runID, status string) {
	s.send("complete", map[string]string{ //nolint:errcheck
		"run_id": runID,
		"status": status,
	})
}

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/reelsmith/internal/db"
	"github.com/jonathan/reelsmith/internal/types"
)

// tokenRequest is the body of a token exchange.
type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// handleToken exchanges the configured API key for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.apiKeyHash == "" || !s.creds.VerifyAPIKey(req.APIKey, s.apiKeyHash) {
		err := &ErrInvalidAPIKey{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	// Each token carries a fresh client ID; the pipeline has no user
	// accounts, the claim exists to satisfy the middleware contract.
	token, err := s.jwtService.GenerateToken(uuid.New())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"token": token})
}

// handleCreateRun starts a pipeline run and drives it in the background.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The run must outlive this HTTP request.
	runID, err := s.runs.StartRun(context.Background(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	go func() {
		if _, err := s.runs.Run(context.Background(), runID); err != nil {
			log.Printf("run %s failed: %v", runID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"run_id": runID.String(),
		"status": string(types.StatusRunning),
	})
}

// handleGetRun returns the live status of a run, falling back to the
// archive for runs the controller no longer tracks.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	view, err := s.runs.GetRunStatus(runID)
	if err == nil {
		s.jsonResponse(w, http.StatusOK, view)
		return
	}

	if s.archive != nil {
		rec, dbErr := s.archive.GetRun(r.Context(), runID)
		if dbErr == nil && rec != nil {
			s.jsonResponse(w, http.StatusOK, rec)
			return
		}
		if dbErr != nil {
			log.Printf("archive lookup for run %s failed: %v", runID, dbErr)
		}
	}

	notFound := &ErrRunNotFound{RunID: runID}
	s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
}

// handleCancelRun aborts a run.
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	if err := s.runs.Cancel(runID); err != nil {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	view, err := s.runs.GetRunStatus(runID)
	if err != nil {
		s.jsonResponse(w, http.StatusOK, map[string]string{"run_id": runID.String(), "status": string(types.StatusAborted)})
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

// handleListRuns returns archived runs, optionally filtered by status or
// platform query parameters.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run archive not configured")
		return
	}

	filters := db.RunFilters{
		Status:   r.URL.Query().Get("status"),
		Platform: r.URL.Query().Get("platform"),
	}

	records, err := s.archive.ListRuns(r.Context(), filters)
	if err != nil {
		log.Printf("failed to list runs: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if records == nil {
		records = []db.RunRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": records})
}

// handleRunEvents streams a run's progress events as SSE until the run
// reaches a terminal state or the client disconnects.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	view, err := s.runs.GetRunStatus(runID)
	if err != nil {
		notFound := &ErrRunNotFound{RunID: runID}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	events, cancel := s.hub.Subscribe(runID.String())
	defer cancel()

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream.send("status", view) //nolint:errcheck
	if view.Status.IsTerminal() {
		stream.done(runID.String(), string(view.Status))
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			if err := stream.send("progress", event); err != nil {
				return
			}
		case <-ticker.C:
			view, err := s.runs.GetRunStatus(runID)
			if err != nil {
				return
			}
			if view.Status.IsTerminal() {
				stream.send("status", view) //nolint:errcheck
				stream.done(runID.String(), string(view.Status))
				return
			}
		}
	}
}

// runID parses the {id} path value, writing a 400 response on failure.
func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		verr := &ErrValidation{Field: "id", Message: "must be a UUID"}
		s.errorResponse(w, HTTPStatus(verr), verr.Error())
		return uuid.Nil, false
	}
	return runID, true
}

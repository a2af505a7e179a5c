// Package types provides type definitions for structured data used throughout the reelsmith system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies one stage of the generation pipeline.
type Phase string

// Pipeline phases, in execution order.
const (
	PhasePlanning        Phase = "planning"
	PhaseRefinement      Phase = "refinement"
	PhaseVideoGeneration Phase = "video_generation"
	PhaseAudioGeneration Phase = "audio_generation"
	PhaseSynchronization Phase = "synchronization"
	PhaseExport          Phase = "export"
	PhaseQualityReview   Phase = "quality_review"
)

// PhaseOrder lists the phases in the order the controller executes them.
var PhaseOrder = []Phase{
	PhasePlanning,
	PhaseRefinement,
	PhaseVideoGeneration,
	PhaseAudioGeneration,
	PhaseSynchronization,
	PhaseExport,
	PhaseQualityReview,
}

// PhaseIndex returns the position of a phase in PhaseOrder, or -1 if unknown.
func PhaseIndex(p Phase) int {
	for i, phase := range PhaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

// Run statuses. A run is terminal in exactly one of Completed,
// CompletedDegraded, Aborted, or InvalidRequest.
const (
	StatusRunning           RunStatus = "running"
	StatusCompleted         RunStatus = "completed"
	StatusCompletedDegraded RunStatus = "completed_degraded"
	StatusAborted           RunStatus = "aborted"
	StatusInvalidRequest    RunStatus = "invalid_request"
)

// IsTerminal reports whether the status is a terminal state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedDegraded, StatusAborted, StatusInvalidRequest:
		return true
	}
	return false
}

// ContentMode selects how the reel's audio track is produced.
type ContentMode string

// Supported content modes.
const (
	ModeMusic     ContentMode = "music"
	ModeNarration ContentMode = "narration"
	ModeHybrid    ContentMode = "hybrid"
)

// KnownContentMode reports whether the mode is one of the supported values.
func KnownContentMode(m ContentMode) bool {
	switch m {
	case ModeMusic, ModeNarration, ModeHybrid:
		return true
	}
	return false
}

// Outcome classifies the result of a single phase attempt.
type Outcome string

// Attempt outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// FailureClass categorizes why an attempt failed.
type FailureClass string

// Failure classifications. Transient failures are retried locally by the
// controller; the rest surface to the reloop decision engine or terminate
// the run.
const (
	FailureNone              FailureClass = ""
	FailureTransient         FailureClass = "transient"
	FailureGenerationFatal   FailureClass = "generation_fatal"
	FailureNoCandidate       FailureClass = "no_candidate"
	FailureSelectorExhausted FailureClass = "selector_exhausted"
	FailureBudgetExceeded    FailureClass = "budget_exceeded"
	FailureCancelled         FailureClass = "cancelled"
	FailureQuality           FailureClass = "quality"
)

// Attempt records one execution of a phase. Attempts are immutable once
// recorded and are appended to the run's history in issuance order.
type Attempt struct {
	Phase        Phase         `json:"phase"`
	Index        int           `json:"index"` // monotonic per phase
	CandidateID  string        `json:"candidate_id,omitempty"`
	InputsHash   string        `json:"inputs_hash,omitempty"`
	ArtifactRef  string        `json:"artifact_ref,omitempty"`
	CostUSD      float64       `json:"cost_usd"`
	Elapsed      time.Duration `json:"elapsed"`
	Outcome      Outcome       `json:"outcome"`
	FailureClass FailureClass  `json:"failure_class,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
}

// ReloopDecision records one consultation of the decision engine,
// forming the run's reloop audit trail.
type ReloopDecision struct {
	Strategy       StrategyKind `json:"strategy"`
	TargetPhase    Phase        `json:"target_phase,omitempty"`
	Classification string       `json:"classification"`
	Justification  string       `json:"justification"`
	CompositeScore float64      `json:"composite_score"`
	DecidedAt      time.Time    `json:"decided_at"`
}

// PipelineRun is one end-to-end generation attempt for one user request.
// It is owned exclusively by the pipeline controller: created at run
// start, mutated only by the controller, archived at a terminal state.
type PipelineRun struct {
	ID           uuid.UUID        `json:"id"`
	Request      RunRequest       `json:"request"`
	CurrentPhase Phase            `json:"current_phase"`
	Status       RunStatus        `json:"status"`
	Attempts     []Attempt        `json:"attempts"`
	Decisions    []ReloopDecision `json:"decisions"`
	SpendUSD     float64          `json:"spend_usd"`
	ReloopCount  int              `json:"reloop_count"`
	AbortReason  string           `json:"abort_reason,omitempty"`
	LastReport   *QualityReport   `json:"last_report,omitempty"`
	Artifacts    ArtifactBundle   `json:"artifacts"`
	CreatedAt    time.Time        `json:"created_at"`
	FinishedAt   time.Time        `json:"finished_at,omitempty"`
}

// AttemptsForPhase returns the attempts recorded against a phase, in order.
func (r *PipelineRun) AttemptsForPhase(p Phase) []Attempt {
	var out []Attempt
	for _, a := range r.Attempts {
		if a.Phase == p {
			out = append(out, a)
		}
	}
	return out
}

// NextAttemptIndex returns the next monotonic attempt index for a phase.
func (r *PipelineRun) NextAttemptIndex(p Phase) int {
	return len(r.AttemptsForPhase(p))
}

// TriedCandidates returns the IDs of candidates already attempted for a
// phase, preserving first-seen order. Used by the selector to exclude
// exhausted backends after a SwitchModel decision.
func (r *PipelineRun) TriedCandidates(p Phase) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range r.Attempts {
		if a.Phase != p || a.CandidateID == "" || seen[a.CandidateID] {
			continue
		}
		seen[a.CandidateID] = true
		out = append(out, a.CandidateID)
	}
	return out
}

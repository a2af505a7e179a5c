package capability

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for conditions that need no extra payload.
var (
	// ErrPlanningUnavailable is returned when the planning service cannot
	// produce a storyboard at all.
	ErrPlanningUnavailable = errors.New("planning service unavailable")

	// ErrNoCandidate is returned by the selector when no registered
	// backend satisfies a phase's hard constraints. Fatal for the current
	// attempt; never retried locally.
	ErrNoCandidate = errors.New("no candidate satisfies constraints")

	// ErrBudgetExceeded marks an attempt that was refused before any
	// backend call because its estimated cost would breach the budget.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrMaxAttemptsReached marks a run terminated because the reloop
	// ceiling was hit.
	ErrMaxAttemptsReached = errors.New("max reloop attempts reached")
)

// InvalidRequestError reports a request rejected at intake. No run is
// created for an invalid request.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// GenerationError is returned by video/audio backends. Transient failures
// (network, timeout) are eligible for local retry; fatal ones trigger the
// selector's fallback chain.
type GenerationError struct {
	Backend   string
	Transient bool
	Cause     error
}

func (e *GenerationError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("generation failed (%s, %s): %v", e.Backend, kind, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether an error should be handled by the
// controller's local retry policy. Context deadline expiry counts as
// transient; explicit cancellation never does.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Transient
	}
	return false
}

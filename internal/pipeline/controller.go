// Package pipeline provides the high-level orchestration for the reel
// generation process: the phase state machine, candidate fallback chains,
// local retry with backoff, budget-gated invocation, and the quality-gated
// reloop that rewinds a run to an earlier phase when review fails.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/reelsmith/internal/budget"
	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/quality"
	"github.com/jonathan/reelsmith/internal/selector"
	"github.com/jonathan/reelsmith/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution.
type ProgressEvent struct {
	RunID   string      `json:"run_id"`
	Phase   types.Phase `json:"phase"`
	Message string      `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs.
type ProgressCallback func(event ProgressEvent)

// Archiver persists a run once it reaches a terminal state. Implementations
// may be nil; archival is best-effort and never blocks run completion.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *types.PipelineRun) error
}

// Policy holds the controller's retry, fallback, and timing constants.
type Policy struct {
	// MaxReloopAttempts bounds phase re-entries per run. The controller
	// enforces this ceiling itself, independent of the decision engine.
	MaxReloopAttempts int
	// FallbackDepth is how many additional candidates are tried after the
	// first within one phase attempt.
	FallbackDepth int
	// LocalRetries is the number of immediate retries for transient
	// failures of a single candidate invocation.
	LocalRetries   int
	BackoffBase    time.Duration
	BackoffFactor  float64
	JitterFraction float64
	PhaseTimeouts  map[types.Phase]time.Duration
}

// DefaultPolicy returns the standard controller policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxReloopAttempts: 3,
		FallbackDepth:     2,
		LocalRetries:      2,
		BackoffBase:       500 * time.Millisecond,
		BackoffFactor:     2.0,
		JitterFraction:    0.2,
		PhaseTimeouts: map[types.Phase]time.Duration{
			types.PhasePlanning:        30 * time.Second,
			types.PhaseRefinement:      30 * time.Second,
			types.PhaseVideoGeneration: 300 * time.Second,
			types.PhaseAudioGeneration: 120 * time.Second,
			types.PhaseSynchronization: 120 * time.Second,
			types.PhaseExport:          10 * time.Second,
			types.PhaseQualityReview:   60 * time.Second,
		},
	}
}

// Ports are the concrete backends the controller can invoke. Selector-driven
// phases look up the backend for the chosen candidate ID; synchronization
// and review have a single implementation each.
type Ports struct {
	Planners map[string]capability.PlanningService
	Refiners map[string]capability.RefinementService
	Video    map[string]capability.VideoBackend
	Audio    map[string]capability.AudioBackend
	Sync     capability.SynchronizationService
	Review   capability.ReviewService
}

// Options configures a Controller. Zero-value fields fall back to defaults.
type Options struct {
	Ports      Ports
	Selector   *selector.Selector
	Tracker    *budget.Tracker
	Aggregator *quality.Aggregator
	Thresholds quality.Thresholds
	Policy     Policy
	Archiver   Archiver
	OnProgress ProgressCallback
}

// runState wraps one run with its cancellation handle and reloop context.
// stepMu serializes Advance calls; mu guards field access for status reads
// while a long backend call is in flight.
type runState struct {
	stepMu sync.Mutex
	mu     sync.Mutex

	run    *types.PipelineRun
	ctx    context.Context
	cancel context.CancelFunc

	lastClassification string
	exhaustedPhase     types.Phase
	// switchExclusions holds candidate IDs a SwitchModel decision has ruled
	// out for a phase.
	switchExclusions map[types.Phase][]string
}

// Controller owns every PipelineRun: it creates runs, advances them through
// phases, and is the only writer of run state. Independent runs advance
// fully in parallel; they share only the budget tracker and the selector's
// history table, both internally synchronized.
type Controller struct {
	ports      Ports
	selector   *selector.Selector
	tracker    *budget.Tracker
	aggregator *quality.Aggregator
	thresholds quality.Thresholds
	policy     Policy
	archiver   Archiver
	onProgress ProgressCallback

	mu   sync.RWMutex
	runs map[uuid.UUID]*runState
}

// New creates a controller from options, filling unset fields with defaults.
func New(opts Options) *Controller {
	if opts.Selector == nil {
		opts.Selector = selector.NewWithDefaultCatalog()
	}
	if opts.Tracker == nil {
		opts.Tracker = budget.NewTracker()
	}
	if opts.Thresholds == (quality.Thresholds{}) {
		opts.Thresholds = quality.DefaultThresholds()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = quality.NewAggregator(types.DefaultWeights(), opts.Thresholds)
	}
	if opts.Policy.MaxReloopAttempts == 0 {
		opts.Policy = DefaultPolicy()
	}
	return &Controller{
		ports:      opts.Ports,
		selector:   opts.Selector,
		tracker:    opts.Tracker,
		aggregator: opts.Aggregator,
		thresholds: opts.Thresholds,
		policy:     opts.Policy,
		archiver:   opts.Archiver,
		onProgress: opts.OnProgress,
		runs:       make(map[uuid.UUID]*runState),
	}
}

// StartRun validates the request and creates a run in the Planning phase.
// An invalid request creates no run and fails with InvalidRequestError.
func (c *Controller) StartRun(ctx context.Context, req types.RunRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, &capability.InvalidRequestError{Reason: err.Error()}
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &types.PipelineRun{
		ID:           uuid.New(),
		Request:      req,
		CurrentPhase: types.PhasePlanning,
		Status:       types.StatusRunning,
		CreatedAt:    time.Now(),
	}
	c.tracker.Open(run.ID, req.BudgetUSD)

	state := &runState{
		run:              run,
		ctx:              runCtx,
		cancel:           cancel,
		switchExclusions: make(map[types.Phase][]string),
	}

	c.mu.Lock()
	c.runs[run.ID] = state
	c.mu.Unlock()

	c.emit(run.ID, types.PhasePlanning, "run created")
	return run.ID, nil
}

// PhaseResult reports the outcome of one Advance step.
type PhaseResult struct {
	Phase    types.Phase
	Status   types.RunStatus
	Terminal bool
}

// Run drives a run to a terminal state by calling Advance in a loop.
func (c *Controller) Run(ctx context.Context, runID uuid.UUID) (*types.PipelineRun, error) {
	for {
		result, err := c.Advance(ctx, runID)
		if err != nil {
			return nil, err
		}
		if result.Terminal {
			break
		}
	}
	return c.snapshot(runID)
}

// Advance executes the run's current phase once and applies the resulting
// transition. Calling Advance on a terminal run returns the terminal result
// without side effects.
func (c *Controller) Advance(ctx context.Context, runID uuid.UUID) (PhaseResult, error) {
	state, err := c.state(runID)
	if err != nil {
		return PhaseResult{}, err
	}

	state.stepMu.Lock()
	defer state.stepMu.Unlock()

	state.mu.Lock()
	phase := state.run.CurrentPhase
	status := state.run.Status
	state.mu.Unlock()

	if status.IsTerminal() {
		return PhaseResult{Phase: phase, Status: status, Terminal: true}, nil
	}

	// A cancellation raised between steps aborts before any backend call.
	if state.ctx.Err() != nil || ctx.Err() != nil {
		c.abortCancelled(state, phase)
		return c.result(state), nil
	}

	c.emit(runID, phase, "executing phase")
	c.executePhase(ctx, state, phase)
	return c.result(state), nil
}

// Cancel aborts a run. In-flight backend calls observe the cancellation
// through their context; a run waiting between steps is aborted directly.
func (c *Controller) Cancel(runID uuid.UUID) error {
	state, err := c.state(runID)
	if err != nil {
		return err
	}

	state.cancel()

	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.run.Status.IsTerminal() {
		state.run.Status = types.StatusAborted
		state.run.AbortReason = string(types.FailureCancelled)
		state.run.FinishedAt = time.Now()
	}
	return nil
}

// RunStatusView is a point-in-time snapshot of a run for callers.
type RunStatusView struct {
	RunID       uuid.UUID              `json:"run_id"`
	Phase       types.Phase            `json:"phase"`
	Status      types.RunStatus        `json:"status"`
	Attempts    []types.Attempt        `json:"attempts"`
	Decisions   []types.ReloopDecision `json:"decisions"`
	SpendUSD    float64                `json:"spend_usd"`
	ReloopCount int                    `json:"reloop_count"`
	LastReport  *types.QualityReport   `json:"last_report,omitempty"`
	AbortReason string                 `json:"abort_reason,omitempty"`
}

// GetRunStatus returns a snapshot of the run's phase, attempt history,
// latest quality report, and spend.
func (c *Controller) GetRunStatus(runID uuid.UUID) (*RunStatusView, error) {
	state, err := c.state(runID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	run := state.run
	view := &RunStatusView{
		RunID:       run.ID,
		Phase:       run.CurrentPhase,
		Status:      run.Status,
		Attempts:    append([]types.Attempt(nil), run.Attempts...),
		Decisions:   append([]types.ReloopDecision(nil), run.Decisions...),
		SpendUSD:    run.SpendUSD,
		ReloopCount: run.ReloopCount,
		LastReport:  run.LastReport,
		AbortReason: run.AbortReason,
	}
	return view, nil
}

func (c *Controller) state(runID uuid.UUID) (*runState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run %s", runID)
	}
	return state, nil
}

func (c *Controller) snapshot(runID uuid.UUID) (*types.PipelineRun, error) {
	state, err := c.state(runID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	clone := *state.run
	clone.Attempts = append([]types.Attempt(nil), state.run.Attempts...)
	clone.Decisions = append([]types.ReloopDecision(nil), state.run.Decisions...)
	return &clone, nil
}

func (c *Controller) result(state *runState) PhaseResult {
	state.mu.Lock()
	defer state.mu.Unlock()
	return PhaseResult{
		Phase:    state.run.CurrentPhase,
		Status:   state.run.Status,
		Terminal: state.run.Status.IsTerminal(),
	}
}

func (c *Controller) emit(runID uuid.UUID, phase types.Phase, message string) {
	if c.onProgress != nil {
		c.onProgress(ProgressEvent{RunID: runID.String(), Phase: phase, Message: message})
	}
}

// finish moves a run to a terminal state, settles the ledger, and archives.
// Caller must not hold state.mu.
func (c *Controller) finish(state *runState, status types.RunStatus, reason string) {
	state.mu.Lock()
	if state.run.Status.IsTerminal() {
		state.mu.Unlock()
		return
	}
	state.run.Status = status
	state.run.AbortReason = reason
	state.run.SpendUSD = c.tracker.Spent(state.run.ID)
	state.run.FinishedAt = time.Now()
	run := state.run
	state.mu.Unlock()

	c.tracker.Close(run.ID)
	c.emit(run.ID, run.CurrentPhase, fmt.Sprintf("run finished: %s", status))

	if c.archiver != nil {
		archiveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.archiver.ArchiveRun(archiveCtx, run); err != nil {
			c.emit(run.ID, run.CurrentPhase, fmt.Sprintf("warning: archival failed: %v", err))
		}
	}
}

func (c *Controller) abortCancelled(state *runState, phase types.Phase) {
	state.mu.Lock()
	state.run.Attempts = append(state.run.Attempts, types.Attempt{
		Phase:        phase,
		Index:        state.run.NextAttemptIndex(phase),
		Outcome:      types.OutcomeFailed,
		FailureClass: types.FailureCancelled,
		Error:        context.Canceled.Error(),
		StartedAt:    time.Now(),
	})
	state.mu.Unlock()
	c.finish(state, types.StatusAborted, string(types.FailureCancelled))
}

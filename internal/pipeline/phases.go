package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/reloop"
	"github.com/jonathan/reelsmith/internal/selector"
	"github.com/jonathan/reelsmith/internal/types"
)

// maxConcurrentClips caps in-flight clip generations per run so a long
// storyboard does not flood the provider's queue.
const maxConcurrentClips = 3

// invokeFunc executes one backend call for a chosen candidate and returns
// the produced artifact reference.
type invokeFunc func(ctx context.Context, candidateID string) (string, error)

func (c *Controller) executePhase(ctx context.Context, state *runState, phase types.Phase) {
	switch phase {
	case types.PhasePlanning:
		c.runPlanning(state)
	case types.PhaseRefinement:
		c.runRefinement(state)
	case types.PhaseVideoGeneration:
		c.runVideoGeneration(state)
	case types.PhaseAudioGeneration:
		c.runAudioGeneration(state)
	case types.PhaseSynchronization:
		c.runSynchronization(state)
	case types.PhaseExport:
		c.runExport(state)
	case types.PhaseQualityReview:
		c.runQualityReview(state)
	default:
		c.finish(state, types.StatusAborted, fmt.Sprintf("unknown phase %q", phase))
	}
}

func (c *Controller) runPlanning(state *runState) {
	req := state.run.Request
	cons := selector.Constraints{
		Phase:        types.PhasePlanning,
		Mode:         req.ContentMode,
		TotalSeconds: float64(req.DurationSeconds),
		Units:        1,
	}

	c.runSelectorPhase(state, types.PhasePlanning, cons, inputsHash(string(types.PhasePlanning), req.Prompt),
		func(ctx context.Context, id string) (string, error) {
			planner, ok := c.ports.Planners[id]
			if !ok {
				return "", unregistered(id)
			}
			storyboard, err := planner.Plan(ctx, req.Prompt, req.ContentMode, req.DurationSeconds)
			if err != nil {
				return "", err
			}
			if len(storyboard.Scenes) == 0 {
				return "", &capability.GenerationError{Backend: id, Cause: errors.New("empty storyboard")}
			}
			state.mu.Lock()
			state.run.Artifacts.Storyboard = storyboard
			state.mu.Unlock()
			return fmt.Sprintf("storyboard:%d-scenes", len(storyboard.Scenes)), nil
		})
}

func (c *Controller) runRefinement(state *runState) {
	req := state.run.Request
	storyboard := state.run.Artifacts.Storyboard
	if storyboard == nil {
		c.finish(state, types.StatusAborted, "refinement requires a storyboard")
		return
	}

	cons := selector.Constraints{
		Phase:        types.PhaseRefinement,
		Mode:         req.ContentMode,
		TotalSeconds: storyboard.TotalDuration(),
		Units:        len(storyboard.Scenes),
	}
	profile := c.targetModelProfile(state)

	c.runSelectorPhase(state, types.PhaseRefinement, cons, inputsHash(string(types.PhaseRefinement), req.Prompt, profile),
		func(ctx context.Context, id string) (string, error) {
			refiner, ok := c.ports.Refiners[id]
			if !ok {
				return "", unregistered(id)
			}
			prompts, err := refiner.Refine(ctx, storyboard, profile)
			if err != nil {
				return "", err
			}
			if len(prompts) == 0 {
				return "", &capability.GenerationError{Backend: id, Cause: errors.New("no refined prompts")}
			}
			state.mu.Lock()
			state.run.Artifacts.Prompts = prompts
			state.mu.Unlock()
			return fmt.Sprintf("prompts:%d", len(prompts)), nil
		})
}

func (c *Controller) runVideoGeneration(state *runState) {
	req := state.run.Request
	storyboard := state.run.Artifacts.Storyboard
	prompts := state.run.Artifacts.Prompts
	if storyboard == nil || len(prompts) == 0 {
		c.finish(state, types.StatusAborted, "video generation requires refined prompts")
		return
	}

	spec, _ := types.SpecForPlatform(req.Platform)
	durations := sceneDurations(storyboard)

	c.runSelectorPhase(state, types.PhaseVideoGeneration, c.videoConstraints(state), inputsHash(string(types.PhaseVideoGeneration), req.Prompt),
		func(ctx context.Context, id string) (string, error) {
			backend, ok := c.ports.Video[id]
			if !ok {
				return "", unregistered(id)
			}
			// Scenes render independently; generate them concurrently.
			// The first failure cancels the remaining generations.
			clips := make([]types.VideoArtifact, len(prompts))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxConcurrentClips)
			for i, p := range prompts {
				g.Go(func() error {
					clip, err := backend.Generate(gctx, p.Prompt, durations[p.SceneNumber], spec.Resolution)
					if err != nil {
						return err
					}
					clip.SceneNumber = p.SceneNumber
					clip.ModelID = id
					clips[i] = *clip
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return "", err
			}
			state.mu.Lock()
			state.run.Artifacts.Clips = clips
			state.mu.Unlock()
			return fmt.Sprintf("clips:%d", len(clips)), nil
		})
}

func (c *Controller) runAudioGeneration(state *runState) {
	req := state.run.Request
	storyboard := state.run.Artifacts.Storyboard
	if storyboard == nil {
		c.finish(state, types.StatusAborted, "audio generation requires a storyboard")
		return
	}

	audioSpec := capability.AudioSpec{
		Script:          sceneScript(storyboard),
		MoodHints:       storyboard.MoodHints,
		Mode:            req.ContentMode,
		DurationSeconds: storyboard.TotalDuration(),
	}
	cons := selector.Constraints{
		Phase:        types.PhaseAudioGeneration,
		Mode:         req.ContentMode,
		TotalSeconds: audioSpec.DurationSeconds,
		Units:        1,
	}

	c.runSelectorPhase(state, types.PhaseAudioGeneration, cons, inputsHash(string(types.PhaseAudioGeneration), audioSpec.Script, req.Prompt),
		func(ctx context.Context, id string) (string, error) {
			backend, ok := c.ports.Audio[id]
			if !ok {
				return "", unregistered(id)
			}
			audio, err := backend.Synthesize(ctx, audioSpec)
			if err != nil {
				return "", err
			}
			audio.ModelID = id
			state.mu.Lock()
			state.run.Artifacts.Audio = audio
			state.mu.Unlock()
			return audio.Ref, nil
		})
}

func (c *Controller) runSynchronization(state *runState) {
	clips := state.run.Artifacts.Clips
	audio := state.run.Artifacts.Audio
	if len(clips) == 0 || audio == nil {
		c.finish(state, types.StatusAborted, "synchronization requires clips and an audio track")
		return
	}

	start := time.Now()
	ref, err := c.invokeWithRetry(state.ctx, types.PhaseSynchronization, "",
		func(ctx context.Context, _ string) (string, error) {
			final, aerr := c.ports.Sync.Assemble(ctx, clips, audio)
			if aerr != nil {
				return "", aerr
			}
			state.mu.Lock()
			state.run.Artifacts.Final = final
			state.mu.Unlock()
			return final.Ref, nil
		})

	attempt := types.Attempt{
		Phase:       types.PhaseSynchronization,
		ArtifactRef: ref,
		Elapsed:     time.Since(start),
		Outcome:     types.OutcomeSuccess,
		StartedAt:   start,
	}
	if err != nil {
		attempt.Outcome = types.OutcomeFailed
		attempt.Error = err.Error()
		if c.cancelled(state, err) {
			attempt.FailureClass = types.FailureCancelled
			c.recordAttempt(state, attempt)
			c.finish(state, types.StatusAborted, string(types.FailureCancelled))
			return
		}
		attempt.FailureClass = failureClassFor(err)
		c.recordAttempt(state, attempt)
		c.escalate(state, types.PhaseSynchronization)
		return
	}
	c.recordAttempt(state, attempt)
	c.advancePhase(state)
}

// runExport finalizes the artifact bundle. Export is in-process and free;
// persistence of the terminal run happens through the archiver.
func (c *Controller) runExport(state *runState) {
	final := state.run.Artifacts.Final
	if final == nil {
		c.finish(state, types.StatusAborted, "export requires an assembled artifact")
		return
	}

	c.recordAttempt(state, types.Attempt{
		Phase:       types.PhaseExport,
		ArtifactRef: fmt.Sprintf("export:%s", final.Ref),
		Outcome:     types.OutcomeSuccess,
		StartedAt:   time.Now(),
	})
	c.advancePhase(state)
}

func (c *Controller) runQualityReview(state *runState) {
	req := state.run.Request
	final := state.run.Artifacts.Final
	if final == nil {
		c.finish(state, types.StatusAborted, "quality review requires an assembled artifact")
		return
	}

	rc := capability.ReviewContext{
		Prompt:      req.Prompt,
		ContentMode: req.ContentMode,
		Platform:    req.Platform,
	}

	start := time.Now()
	var review *capability.ReviewResponse
	_, err := c.invokeWithRetry(state.ctx, types.PhaseQualityReview, "",
		func(ctx context.Context, _ string) (string, error) {
			r, rerr := c.ports.Review.Review(ctx, final, rc)
			if rerr != nil {
				return "", rerr
			}
			review = r
			return "review", nil
		})
	if err != nil {
		attempt := types.Attempt{
			Phase:     types.PhaseQualityReview,
			Elapsed:   time.Since(start),
			Outcome:   types.OutcomeFailed,
			Error:     err.Error(),
			StartedAt: start,
		}
		if c.cancelled(state, err) {
			attempt.FailureClass = types.FailureCancelled
			c.recordAttempt(state, attempt)
			c.finish(state, types.StatusAborted, string(types.FailureCancelled))
			return
		}
		attempt.FailureClass = failureClassFor(err)
		c.recordAttempt(state, attempt)
		c.finish(state, types.StatusAborted, fmt.Sprintf("review failed: %v", err))
		return
	}

	state.mu.Lock()
	bundle := state.run.Artifacts
	state.mu.Unlock()

	report, err := c.aggregator.Assess(&bundle, review, req.Platform)
	if err != nil {
		c.finish(state, types.StatusAborted, fmt.Sprintf("assessment failed: %v", err))
		return
	}
	for _, w := range report.Warnings {
		c.emit(state.run.ID, types.PhaseQualityReview, fmt.Sprintf("warning: %s", w))
	}

	attempt := types.Attempt{
		Phase:     types.PhaseQualityReview,
		Elapsed:   time.Since(start),
		Outcome:   types.OutcomeSuccess,
		StartedAt: start,
	}
	if report.Verdict == types.VerdictFail {
		attempt.Outcome = types.OutcomeFailed
		attempt.FailureClass = types.FailureQuality
	}

	state.mu.Lock()
	state.run.LastReport = report
	state.mu.Unlock()
	c.recordAttempt(state, attempt)

	if report.Verdict == types.VerdictPass {
		c.finish(state, types.StatusCompleted, "")
		return
	}
	c.consultReloop(state)
}

// runSelectorPhase executes one selector-driven phase attempt: ranks the
// candidates, then tries each in order up to the fallback depth. Every
// candidate tried becomes one Attempt record; local transient retries stay
// inside a single attempt. Budget is reserved before each invocation and
// released on failure.
func (c *Controller) runSelectorPhase(state *runState, phase types.Phase, cons selector.Constraints, hash string, invoke invokeFunc) {
	state.mu.Lock()
	cons.Exclude = state.switchExclusions[phase]
	runID := state.run.ID
	state.mu.Unlock()

	plans, err := c.selector.Choose(phase, cons)
	if err != nil {
		c.recordAttempt(state, types.Attempt{
			Phase:        phase,
			InputsHash:   hash,
			Outcome:      types.OutcomeFailed,
			FailureClass: types.FailureNoCandidate,
			Error:        err.Error(),
			StartedAt:    time.Now(),
		})
		c.escalate(state, phase)
		return
	}

	limit := c.policy.FallbackDepth + 1
	if len(plans) < limit {
		limit = len(plans)
	}

	for i := 0; i < limit; i++ {
		plan := plans[i]

		// Pre-call budget check: a call that would exceed the ceiling is
		// never issued.
		reservation, rerr := c.tracker.Reserve(runID, plan.EstimatedCostUSD)
		if rerr != nil {
			c.recordAttempt(state, types.Attempt{
				Phase:        phase,
				CandidateID:  plan.CandidateID,
				InputsHash:   hash,
				Outcome:      types.OutcomeFailed,
				FailureClass: types.FailureBudgetExceeded,
				Error:        rerr.Error(),
				StartedAt:    time.Now(),
			})
			// Ranking weighs quality fit above cost, so a cheaper
			// candidate may still sit further down the chain.
			c.emit(runID, phase, fmt.Sprintf("candidate %s refused by budget, trying next", plan.CandidateID))
			continue
		}

		start := time.Now()
		ref, ierr := c.invokeWithRetry(state.ctx, phase, plan.CandidateID, invoke)
		elapsed := time.Since(start)

		if ierr == nil {
			reservation.Commit(plan.EstimatedCostUSD)
			c.selector.RecordOutcome(plan.CandidateID, phase, true)
			c.recordAttempt(state, types.Attempt{
				Phase:       phase,
				CandidateID: plan.CandidateID,
				InputsHash:  hash,
				ArtifactRef: ref,
				CostUSD:     plan.EstimatedCostUSD,
				Elapsed:     elapsed,
				Outcome:     types.OutcomeSuccess,
				StartedAt:   start,
			})
			c.advancePhase(state)
			return
		}

		reservation.Release()
		c.selector.RecordOutcome(plan.CandidateID, phase, false)

		attempt := types.Attempt{
			Phase:       phase,
			CandidateID: plan.CandidateID,
			InputsHash:  hash,
			Elapsed:     elapsed,
			Outcome:     types.OutcomeFailed,
			Error:       ierr.Error(),
			StartedAt:   start,
		}
		if c.cancelled(state, ierr) {
			attempt.FailureClass = types.FailureCancelled
			c.recordAttempt(state, attempt)
			c.finish(state, types.StatusAborted, string(types.FailureCancelled))
			return
		}
		attempt.FailureClass = failureClassFor(ierr)
		c.recordAttempt(state, attempt)
		c.emit(runID, phase, fmt.Sprintf("candidate %s failed, trying next", plan.CandidateID))
	}

	c.recordAttempt(state, types.Attempt{
		Phase:        phase,
		InputsHash:   hash,
		Outcome:      types.OutcomeFailed,
		FailureClass: types.FailureSelectorExhausted,
		Error:        fmt.Sprintf("no candidate in the %s chain produced an artifact", phase),
		StartedAt:    time.Now(),
	})
	c.escalate(state, phase)
}

// invokeWithRetry calls invoke with the phase timeout, retrying transient
// failures with exponential backoff and jitter. Cancellation is observable
// during backoff waits.
func (c *Controller) invokeWithRetry(ctx context.Context, phase types.Phase, candidateID string, invoke invokeFunc) (string, error) {
	timeout := c.policy.PhaseTimeouts[phase]

	var lastErr error
	for attempt := 0; attempt <= c.policy.LocalRetries; attempt++ {
		if attempt > 0 {
			if err := c.backoffWait(ctx, attempt-1); err != nil {
				return "", err
			}
		}

		callCtx := ctx
		cancel := func() {}
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		ref, err := invoke(callCtx, candidateID)
		cancel()

		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !capability.IsTransient(err) || ctx.Err() != nil {
			return "", err
		}
	}
	return "", lastErr
}

// backoffWait sleeps for the exponential backoff interval with jitter,
// returning early if the context is cancelled.
func (c *Controller) backoffWait(ctx context.Context, retry int) error {
	d := time.Duration(float64(c.policy.BackoffBase) * math.Pow(c.policy.BackoffFactor, float64(retry)))
	jitter := 1 + (rand.Float64()*2-1)*c.policy.JitterFraction
	d = time.Duration(float64(d) * jitter)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// escalate hands an exhausted fallback chain, a NoCandidate failure, or a
// refused reservation to the decision engine. Planning is the one exception:
// without a storyboard there is no artifact for the engine to reason about,
// and every remediation strategy re-enters planning anyway.
func (c *Controller) escalate(state *runState, phase types.Phase) {
	if phase == types.PhasePlanning {
		c.finish(state, types.StatusAborted, capability.ErrPlanningUnavailable.Error())
		return
	}
	state.mu.Lock()
	state.exhaustedPhase = phase
	state.mu.Unlock()
	c.consultReloop(state)
}

// consultReloop asks the decision engine what to do after a failed review
// or an exhausted generation phase, then applies the chosen strategy. The
// controller enforces the reloop ceiling itself before consulting.
func (c *Controller) consultReloop(state *runState) {
	state.mu.Lock()
	run := state.run
	report := run.LastReport
	reloopCount := run.ReloopCount
	exhausted := state.exhaustedPhase
	last := state.lastClassification
	state.mu.Unlock()

	if report == nil {
		// Escalation before any review: synthesize a failed report so the
		// decision remains a pure function of its inputs.
		report = &types.QualityReport{
			PassThreshold: c.thresholds.PassThreshold,
			Verdict:       types.VerdictFail,
		}
		if exhausted == types.PhaseSynchronization {
			// An assembly failure is a technical defect in the artifact,
			// not a model-selection problem.
			report.Scores = map[types.Dimension]float64{types.DimTechnical: 0}
		}
	}
	classification := reloop.Classify(report, c.thresholds.DimensionFloor, exhausted)

	if reloopCount >= c.policy.MaxReloopAttempts {
		c.recordDecision(state, types.ReloopDecision{
			Strategy:       types.StrategyAbort,
			Classification: classification,
			Justification:  fmt.Sprintf("%v (%d/%d)", capability.ErrMaxAttemptsReached, reloopCount, c.policy.MaxReloopAttempts),
			CompositeScore: report.Composite,
			DecidedAt:      time.Now(),
		})
		c.finish(state, types.StatusAborted, "max_attempts_reached")
		return
	}

	strategy := reloop.Decide(reloop.Input{
		Report:             report,
		DimensionFloor:     c.thresholds.DimensionFloor,
		ReloopCount:        reloopCount,
		MaxReloops:         c.policy.MaxReloopAttempts,
		SpendUSD:           c.tracker.Spent(run.ID),
		BudgetUSD:          run.Request.BudgetUSD,
		ExhaustedPhase:     exhausted,
		LastClassification: last,
	})

	c.recordDecision(state, types.ReloopDecision{
		Strategy:       strategy.Kind,
		TargetPhase:    strategy.TargetPhase,
		Classification: classification,
		Justification:  strategy.Justification,
		CompositeScore: report.Composite,
		DecidedAt:      time.Now(),
	})

	switch {
	case strategy.Kind == types.StrategyAbort:
		c.finish(state, types.StatusAborted, strategy.Justification)
	case strategy.Kind == types.StrategyAcceptWithMinorEdits:
		c.finish(state, types.StatusCompletedDegraded, "")
	case strategy.Reenters():
		state.mu.Lock()
		state.run.ReloopCount++
		state.run.CurrentPhase = strategy.TargetPhase
		state.lastClassification = classification
		if strategy.Kind == types.StrategySwitchModel {
			state.switchExclusions[strategy.TargetPhase] = state.run.TriedCandidates(strategy.TargetPhase)
		}
		state.exhaustedPhase = ""
		state.mu.Unlock()
		c.emit(run.ID, strategy.TargetPhase, fmt.Sprintf("reloop: %s, re-entering %s", strategy.Kind, strategy.TargetPhase))
	default:
		c.finish(state, types.StatusAborted, fmt.Sprintf("unhandled strategy %q", strategy.Kind))
	}
}

func (c *Controller) advancePhase(state *runState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	idx := types.PhaseIndex(state.run.CurrentPhase)
	if idx >= 0 && idx+1 < len(types.PhaseOrder) {
		state.run.CurrentPhase = types.PhaseOrder[idx+1]
	}
}

func (c *Controller) recordAttempt(state *runState, attempt types.Attempt) {
	state.mu.Lock()
	defer state.mu.Unlock()
	attempt.Index = state.run.NextAttemptIndex(attempt.Phase)
	state.run.Attempts = append(state.run.Attempts, attempt)
	state.run.SpendUSD = c.tracker.Spent(state.run.ID)
}

func (c *Controller) recordDecision(state *runState, decision types.ReloopDecision) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.run.Decisions = append(state.run.Decisions, decision)
}

func (c *Controller) cancelled(state *runState, err error) bool {
	return state.ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// targetModelProfile returns the video candidate the refiner should write
// prompts for, or empty if none ranks.
func (c *Controller) targetModelProfile(state *runState) string {
	plans, err := c.selector.Choose(types.PhaseVideoGeneration, c.videoConstraints(state))
	if err != nil || len(plans) == 0 {
		return ""
	}
	return plans[0].CandidateID
}

func (c *Controller) videoConstraints(state *runState) selector.Constraints {
	req := state.run.Request
	cons := selector.Constraints{
		Phase: types.PhaseVideoGeneration,
		Mode:  req.ContentMode,
	}
	if sb := state.run.Artifacts.Storyboard; sb != nil {
		cons.Units = len(sb.Scenes)
		cons.TotalSeconds = sb.TotalDuration()
		for _, scene := range sb.Scenes {
			if scene.Duration > cons.ClipSeconds {
				cons.ClipSeconds = scene.Duration
			}
		}
	} else {
		cons.Units = 1
		cons.TotalSeconds = float64(req.DurationSeconds)
	}
	state.mu.Lock()
	cons.Exclude = state.switchExclusions[types.PhaseVideoGeneration]
	state.mu.Unlock()
	return cons
}

func failureClassFor(err error) types.FailureClass {
	if capability.IsTransient(err) {
		return types.FailureTransient
	}
	return types.FailureGenerationFatal
}

func unregistered(id string) error {
	return &capability.GenerationError{Backend: id, Cause: errors.New("backend not registered")}
}

func sceneDurations(storyboard *types.Storyboard) map[int]float64 {
	out := make(map[int]float64, len(storyboard.Scenes))
	for _, scene := range storyboard.Scenes {
		out[scene.Number] = scene.Duration
	}
	return out
}

func sceneScript(storyboard *types.Storyboard) string {
	var lines []string
	for _, scene := range storyboard.Scenes {
		if scene.Script != "" {
			lines = append(lines, scene.Script)
		}
	}
	return strings.Join(lines, "\n")
}

func inputsHash(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h[:6])
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseIndex_Ordering(t *testing.T) {
	assert.Equal(t, 0, PhaseIndex(PhasePlanning))
	assert.Equal(t, 2, PhaseIndex(PhaseVideoGeneration))
	assert.Equal(t, 6, PhaseIndex(PhaseQualityReview))
	assert.Equal(t, -1, PhaseIndex(Phase("unknown")))
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCompletedDegraded.IsTerminal())
	assert.True(t, StatusAborted.IsTerminal())
	assert.True(t, StatusInvalidRequest.IsTerminal())
}

func TestAttemptsForPhase_FiltersAndPreservesOrder(t *testing.T) {
	run := &PipelineRun{
		Attempts: []Attempt{
			{Phase: PhasePlanning, Index: 0, CandidateID: "gemini-planner"},
			{Phase: PhaseVideoGeneration, Index: 0, CandidateID: "hailuo-02"},
			{Phase: PhaseVideoGeneration, Index: 1, CandidateID: "runway-gen3"},
			{Phase: PhaseAudioGeneration, Index: 0, CandidateID: "f5-tts"},
		},
	}

	video := run.AttemptsForPhase(PhaseVideoGeneration)
	assert.Len(t, video, 2)
	assert.Equal(t, "hailuo-02", video[0].CandidateID)
	assert.Equal(t, "runway-gen3", video[1].CandidateID)

	assert.Equal(t, 2, run.NextAttemptIndex(PhaseVideoGeneration))
	assert.Equal(t, 0, run.NextAttemptIndex(PhaseSynchronization))
}

func TestTriedCandidates_DeduplicatesPerPhase(t *testing.T) {
	run := &PipelineRun{
		Attempts: []Attempt{
			{Phase: PhaseVideoGeneration, CandidateID: "hailuo-02"},
			{Phase: PhaseVideoGeneration, CandidateID: "runway-gen3"},
			{Phase: PhaseVideoGeneration, CandidateID: "hailuo-02"},
			{Phase: PhaseAudioGeneration, CandidateID: "f5-tts"},
		},
	}

	tried := run.TriedCandidates(PhaseVideoGeneration)
	assert.Equal(t, []string{"hailuo-02", "runway-gen3"}, tried)
}

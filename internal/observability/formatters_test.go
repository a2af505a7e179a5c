package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/reelsmith/internal/types"
)

func TestPrintStoryboard(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintStoryboard(&types.Storyboard{
		Scenes: []types.Scene{
			{Number: 1, Description: "A fox runs through snow", Duration: 8},
			{Number: 2, Description: "Close-up of paw prints", Duration: 8},
		},
		MoodHints: []string{"wintry", "calm"},
	})
	output := buf.String()

	assert.Contains(t, output, "STORYBOARD")
	assert.Contains(t, output, "A fox runs through snow")
	assert.Contains(t, output, "wintry, calm")
	assert.Contains(t, output, "16.0s")
}

func TestPrintStoryboard_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStoryboard(nil)
	assert.Empty(t, buf.String())
}

func TestPrintQualityReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQualityReport(&types.QualityReport{
		Scores: map[types.Dimension]float64{
			types.DimTechnical:  10,
			types.DimContent:    8.5,
			types.DimBrand:      8,
			types.DimPlatform:   6.5,
			types.DimEngagement: 9,
		},
		Composite:     8.55,
		PassThreshold: 7.5,
		Verdict:       types.VerdictPass,
		Grade:         "B",
		Notes:         map[types.Dimension]string{types.DimPlatform: "Hook lands late."},
		Warnings:      []string{"audio drift near limit"},
	})
	output := buf.String()

	assert.Contains(t, output, "QUALITY REPORT")
	assert.Contains(t, output, "technical")
	assert.Contains(t, output, "8.55")
	assert.Contains(t, output, "grade B")
	assert.Contains(t, output, "pass")
	assert.Contains(t, output, "audio drift")
}

func TestPrintDecision(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDecision(&types.ReloopDecision{
		Strategy:       types.StrategyAdjustParameters,
		TargetPhase:    types.PhaseSynchronization,
		Classification: "technical-only-low",
		Justification:  "technical is the lone low dimension",
		CompositeScore: 7.1,
		DecidedAt:      time.Now(),
	})
	output := buf.String()

	assert.Contains(t, output, "RELOOP DECISION")
	assert.Contains(t, output, "adjust_parameters")
	assert.Contains(t, output, "synchronization")
	assert.Contains(t, output, "technical-only-low")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	run := &types.PipelineRun{
		ID:     uuid.New(),
		Status: types.StatusCompleted,
		Request: types.RunRequest{
			Prompt:          "a fox in winter",
			DurationSeconds: 24,
			ContentMode:     types.ModeNarration,
			Platform:        types.PlatformInstagram,
			BudgetUSD:       10,
		},
		SpendUSD:    2.56,
		ReloopCount: 1,
		Attempts: []types.Attempt{
			{Phase: types.PhasePlanning, Outcome: types.OutcomeSuccess},
			{Phase: types.PhaseVideoGeneration, Outcome: types.OutcomeFailed},
			{Phase: types.PhaseVideoGeneration, Outcome: types.OutcomeSuccess},
		},
		Artifacts: types.ArtifactBundle{
			Final: &types.FinalArtifact{Ref: "reel:abc", DurationActual: 24, Resolution: "1080x1920"},
		},
	}

	p.PrintRunSummary(run)
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "$2.56 of $10.00")
	assert.Contains(t, output, "video_generation")
	assert.Contains(t, output, "(1 failed)")
	assert.Contains(t, output, "reel:abc")
}

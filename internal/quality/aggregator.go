// Package quality produces a QualityReport from the assembled artifact
// bundle and the content reviewer's structured response. Technical checks
// are computed in-process and deterministically; content-facing dimensions
// are taken from the reviewer, clamped into range.
package quality

import (
	"fmt"
	"time"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/types"
)

// Thresholds configure the pass criteria for a review.
type Thresholds struct {
	// PassThreshold is the composite score required for a pass verdict.
	PassThreshold float64
	// TechnicalFloor is the minimum technical dimension score for a pass,
	// regardless of composite. Prevents a high content score from masking
	// a broken artifact.
	TechnicalFloor float64
	// DimensionFloor is the per-dimension sub-threshold used by the reloop
	// engine to classify failures.
	DimensionFloor float64
	// MaxSyncDelta is the largest tolerated audio/video duration gap.
	MaxSyncDelta time.Duration
}

// DefaultThresholds returns the standard review thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PassThreshold:  7.5,
		TechnicalFloor: 6.0,
		DimensionFloor: 6.0,
		MaxSyncDelta:   200 * time.Millisecond,
	}
}

// Aggregator combines technical checks and reviewer scores into one
// report. Stateless aside from its configuration: assessing the same
// bundle and review twice yields the same report.
type Aggregator struct {
	weights    types.Weights
	thresholds Thresholds
}

// NewAggregator creates an aggregator. The weights must already have been
// validated at startup (see config.Validate).
func NewAggregator(weights types.Weights, thresholds Thresholds) *Aggregator {
	return &Aggregator{weights: weights, thresholds: thresholds}
}

// Assess builds the QualityReport for an assembled bundle. The review
// response may carry out-of-range scores from a misbehaving reviewer;
// those are clamped into [0,10] with a MalformedReview warning rather
// than failing the run.
func (a *Aggregator) Assess(bundle *types.ArtifactBundle, review *capability.ReviewResponse, platform types.Platform) (*types.QualityReport, error) {
	if bundle == nil || bundle.Final == nil {
		return nil, fmt.Errorf("artifact bundle has no final artifact to assess")
	}
	if review == nil {
		return nil, fmt.Errorf("review response is required")
	}

	report := &types.QualityReport{
		Scores:        make(map[types.Dimension]float64, len(types.Dimensions)),
		Notes:         make(map[types.Dimension]string),
		PassThreshold: a.thresholds.PassThreshold,
	}

	report.Scores[types.DimTechnical] = a.technicalScore(bundle.Final, platform)

	reviewed := map[types.Dimension]float64{
		types.DimContent:    review.Content,
		types.DimBrand:      review.Brand,
		types.DimPlatform:   review.Platform,
		types.DimEngagement: review.Engagement,
	}
	for dim, score := range reviewed {
		clamped, wasMalformed := clampScore(score)
		if wasMalformed {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("malformed review: %s score %.2f outside [0,10], clamped to %.1f", dim, score, clamped))
		}
		report.Scores[dim] = clamped
	}

	for dim, note := range review.Notes {
		report.Notes[types.Dimension(dim)] = note
	}

	for _, dim := range types.Dimensions {
		report.Composite += a.weights[dim] * report.Scores[dim]
	}
	report.Grade = types.GradeFor(report.Composite)

	if report.Composite >= a.thresholds.PassThreshold &&
		report.Scores[types.DimTechnical] >= a.thresholds.TechnicalFloor {
		report.Verdict = types.VerdictPass
	} else {
		report.Verdict = types.VerdictFail
	}

	return report, nil
}

// technicalScore runs the deterministic in-process checks: sync offset,
// resolution compliance, and track presence. Each check is binary (0 or
// 10) and the dimension score is their average.
func (a *Aggregator) technicalScore(final *types.FinalArtifact, platform types.Platform) float64 {
	checks := []bool{
		a.syncWithinTolerance(final),
		a.resolutionMatches(final, platform),
		final.HasAllTracks,
	}

	var sum float64
	for _, passed := range checks {
		if passed {
			sum += 10
		}
	}
	return sum / float64(len(checks))
}

func (a *Aggregator) syncWithinTolerance(final *types.FinalArtifact) bool {
	delta := final.DurationActual - final.AudioDuration
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta*float64(time.Second)) <= a.thresholds.MaxSyncDelta
}

func (a *Aggregator) resolutionMatches(final *types.FinalArtifact, platform types.Platform) bool {
	spec, ok := types.SpecForPlatform(platform)
	if !ok {
		return false
	}
	return final.Resolution == spec.Resolution
}

// clampScore forces a score into [0,10], reporting whether it was out of
// range.
func clampScore(score float64) (float64, bool) {
	if score < 0 {
		return 0, true
	}
	if score > 10 {
		return 10, true
	}
	return score, false
}

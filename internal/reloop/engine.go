// Package reloop decides what to do after a failed quality review: which
// remediation strategy to apply and which phase to re-enter, or whether to
// accept a degraded result or abort. Decide is a pure function of its
// input, so decisions replay deterministically in tests.
package reloop

import (
	"fmt"

	"github.com/jonathan/reelsmith/internal/types"
)

// Failure classifications derived from the latest quality report.
const (
	ClassTechnicalOnly     = "technical-only-low"
	ClassContentBrand      = "content-brand-low"
	ClassSelectorExhausted = "selector-exhausted"
	ClassMultipleLow       = "multiple-dimensions-low"
	ClassGeneral           = "general-quality-low"
)

// acceptMargin is how far below the pass threshold a composite may sit
// and still qualify for AcceptWithMinorEdits when budget rules out a
// proper remediation.
const acceptMargin = 1.5

// nearPassMargin qualifies a report for AcceptWithMinorEdits on the final
// permitted attempt.
const nearPassMargin = 1.0

// Baseline remediation cost estimates in USD, by strategy. SwitchModel and
// RestructureContent redo generation work and dominate; the others are
// cheap LLM or parameter passes.
var strategyCosts = map[types.StrategyKind]float64{
	types.StrategyAdjustParameters:   0.10,
	types.StrategyRefinePrompts:      0.08,
	types.StrategySwitchModel:        1.20,
	types.StrategyRestructureContent: 2.00,
}

// Expected quality improvement per strategy, as a probability-like score.
var strategyImprovements = map[types.StrategyKind]float64{
	types.StrategyAdjustParameters:   0.05,
	types.StrategyRefinePrompts:      0.06,
	types.StrategySwitchModel:        0.08,
	types.StrategyRestructureContent: 0.12,
}

// Input carries everything Decide needs. The engine holds no state of its
// own; identical inputs always produce identical strategies.
type Input struct {
	Report         *types.QualityReport
	DimensionFloor float64
	// ReloopCount is the number of phase re-entries already performed.
	ReloopCount int
	MaxReloops  int
	SpendUSD    float64
	BudgetUSD   float64
	// ExhaustedPhase is set when a selector fallback chain was exhausted
	// during this cycle, if any.
	ExhaustedPhase types.Phase
	// LastClassification is the classification of the previous failed
	// review, if any. A second consecutive failure with the same
	// classification escalates to RestructureContent.
	LastClassification string
}

// Classify derives the failure classification from the report, applying
// the fixed precedence order: technical-only, then content/brand, then
// selector exhaustion, then multiple-dimension failure.
func Classify(report *types.QualityReport, floor float64, exhaustedPhase types.Phase) string {
	low := report.LowDimensions(floor)

	lowSet := make(map[types.Dimension]bool, len(low))
	for _, d := range low {
		lowSet[d] = true
	}

	switch {
	case len(low) == 1 && lowSet[types.DimTechnical]:
		return ClassTechnicalOnly
	case len(low) > 0 && !lowSet[types.DimTechnical] && onlyContentBrand(low):
		return ClassContentBrand
	case exhaustedPhase != "":
		return ClassSelectorExhausted
	case len(low) >= 2:
		return ClassMultipleLow
	default:
		return ClassGeneral
	}
}

func onlyContentBrand(low []types.Dimension) bool {
	for _, d := range low {
		if d != types.DimContent && d != types.DimBrand {
			return false
		}
	}
	return true
}

// Decide picks exactly one strategy for a failed review.
func Decide(in Input) types.ReloopStrategy {
	// The attempt ceiling wins over everything, including classification.
	if in.ReloopCount >= in.MaxReloops {
		return types.ReloopStrategy{
			Kind:          types.StrategyAbort,
			Justification: fmt.Sprintf("reloop ceiling reached (%d/%d)", in.ReloopCount, in.MaxReloops),
		}
	}

	classification := Classify(in.Report, in.DimensionFloor, in.ExhaustedPhase)

	// On the last permitted attempt, a near-pass is good enough.
	if in.ReloopCount >= in.MaxReloops-1 &&
		in.Report.Composite >= in.Report.PassThreshold-nearPassMargin {
		return types.ReloopStrategy{
			Kind:          types.StrategyAcceptWithMinorEdits,
			Justification: fmt.Sprintf("composite %.2f within %.1f of threshold on final attempt", in.Report.Composite, nearPassMargin),
		}
	}

	strategy := strategyFor(classification, in)

	// A repeated failure of the same classification means the targeted fix
	// is not working; restructure from the top instead.
	if in.LastClassification != "" && classification == in.LastClassification && strategy.Reenters() {
		strategy = types.ReloopStrategy{
			Kind:                types.StrategyRestructureContent,
			TargetPhase:         types.PhasePlanning,
			EstimatedCostUSD:    strategyCosts[types.StrategyRestructureContent],
			ImprovementEstimate: strategyImprovements[types.StrategyRestructureContent],
			Justification:       fmt.Sprintf("second consecutive %s failure", classification),
		}
	}

	// Cost-benefit gate: a remediation the budget cannot fund is replaced
	// by acceptance (when close enough to passing) or abort.
	remaining := in.BudgetUSD - in.SpendUSD
	if strategy.Reenters() && strategy.EstimatedCostUSD > remaining {
		if in.Report.Composite >= in.Report.PassThreshold-acceptMargin {
			return types.ReloopStrategy{
				Kind:          types.StrategyAcceptWithMinorEdits,
				Justification: fmt.Sprintf("remediation $%.2f exceeds remaining budget $%.2f; composite %.2f close enough to accept", strategy.EstimatedCostUSD, remaining, in.Report.Composite),
			}
		}
		return types.ReloopStrategy{
			Kind:          types.StrategyAbort,
			Justification: fmt.Sprintf("remediation $%.2f exceeds remaining budget $%.2f", strategy.EstimatedCostUSD, remaining),
		}
	}

	return strategy
}

// strategyFor maps a classification to its remediation.
func strategyFor(classification string, in Input) types.ReloopStrategy {
	switch classification {
	case ClassTechnicalOnly:
		return build(types.StrategyAdjustParameters, types.PhaseSynchronization, classification)
	case ClassContentBrand:
		return build(types.StrategyRefinePrompts, types.PhaseRefinement, classification)
	case ClassSelectorExhausted:
		return build(types.StrategySwitchModel, in.ExhaustedPhase, classification)
	case ClassMultipleLow:
		return build(types.StrategyRestructureContent, types.PhasePlanning, classification)
	default:
		// Composite below threshold without a sharper signal: refine the
		// prompts, the cheapest broad remediation.
		return build(types.StrategyRefinePrompts, types.PhaseRefinement, classification)
	}
}

func build(kind types.StrategyKind, target types.Phase, classification string) types.ReloopStrategy {
	return types.ReloopStrategy{
		Kind:                kind,
		TargetPhase:         target,
		EstimatedCostUSD:    strategyCosts[kind],
		ImprovementEstimate: strategyImprovements[kind],
		Justification:       classification,
	}
}

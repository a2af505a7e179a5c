package types

// StrategyKind names one of the fixed remediation strategies the decision
// engine can pick after a failed quality review.
type StrategyKind string

// Remediation strategies.
const (
	StrategyRefinePrompts        StrategyKind = "refine_prompts"
	StrategySwitchModel          StrategyKind = "switch_model"
	StrategyAdjustParameters     StrategyKind = "adjust_parameters"
	StrategyRestructureContent   StrategyKind = "restructure_content"
	StrategyAcceptWithMinorEdits StrategyKind = "accept_with_minor_edits"
	StrategyAbort                StrategyKind = "abort"
)

// ReloopStrategy is the decision engine's output: which strategy to apply,
// which phase to re-enter (zero for Abort/AcceptWithMinorEdits), the
// expected cost of the remediation, and a probability-like estimate of the
// quality improvement it should buy.
type ReloopStrategy struct {
	Kind                StrategyKind `json:"kind"`
	TargetPhase         Phase        `json:"target_phase,omitempty"`
	EstimatedCostUSD    float64      `json:"estimated_cost_usd"`
	ImprovementEstimate float64      `json:"improvement_estimate"` // 0-1
	Justification       string       `json:"justification"`
}

// Reenters reports whether the strategy rewinds the pipeline to an
// earlier phase.
func (s ReloopStrategy) Reenters() bool {
	switch s.Kind {
	case StrategyRefinePrompts, StrategySwitchModel, StrategyAdjustParameters, StrategyRestructureContent:
		return true
	}
	return false
}

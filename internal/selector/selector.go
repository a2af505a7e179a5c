// Package selector maps a phase's constraints to a ranked list of backend
// candidates. Ranking combines quality fit for the content mode, inverse
// unit cost, and the historical success rate for the phase, with
// deterministic tie-breaking (lower cost, then registration order).
package selector

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonathan/reelsmith/internal/capability"
	"github.com/jonathan/reelsmith/internal/types"
)

// Score component weights.
const (
	qualityWeight = 0.5
	costWeight    = 0.3
	successWeight = 0.2
)

// neutralSuccessRate is assumed for candidates with no recorded history,
// so a fresh selector still ranks deterministically.
const neutralSuccessRate = 0.5

// CostBasis describes how a candidate's unit cost is applied.
type CostBasis string

// Cost bases.
const (
	CostPerClip   CostBasis = "per_clip"
	CostPerSecond CostBasis = "per_second"
	CostPerCall   CostBasis = "per_call"
)

// Candidate describes one registered backend.
type Candidate struct {
	ID             string
	Phase          types.Phase
	Modes          []types.ContentMode
	MaxClipSeconds float64 // 0 means no limit
	UnitCostUSD    float64
	CostBasis      CostBasis
	QualityFit     map[types.ContentMode]float64 // 0-1
	// EstimatedLatency is the expected wall-clock duration of one call.
	EstimatedLatency time.Duration
}

func (c Candidate) supportsMode(mode types.ContentMode) bool {
	for _, m := range c.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Constraints are the hard and soft requirements for one phase execution.
type Constraints struct {
	Phase           types.Phase
	Mode            types.ContentMode
	ClipSeconds     float64 // longest single clip required
	TotalSeconds    float64 // total content duration
	Units           int     // number of clips / calls
	Exclude         []string
}

// CandidatePlan is one ranked choice with the estimates the controller
// needs for its pre-call budget check.
type CandidatePlan struct {
	CandidateID       string
	Score             float64
	EstimatedCostUSD  float64
	EstimatedDuration time.Duration
}

// Selector ranks candidates for phases. Safe for concurrent use across
// runs; the history table is internally synchronized.
type Selector struct {
	candidates []Candidate
	history    *historyTable
}

// New creates a selector with the given candidates. Registration order is
// the final ranking tie-break, so callers should register in preference
// order for otherwise-equal candidates.
func New(candidates []Candidate) *Selector {
	return &Selector{
		candidates: candidates,
		history:    newHistoryTable(),
	}
}

// NewWithDefaultCatalog creates a selector pre-loaded with the standard
// backend catalog.
func NewWithDefaultCatalog() *Selector {
	return New(DefaultCatalog())
}

// Choose returns candidates satisfying the hard constraints, ranked best
// first. It fails with capability.ErrNoCandidate when nothing qualifies;
// that is fatal for the current attempt and is never retried locally.
func (s *Selector) Choose(phase types.Phase, cons Constraints) ([]CandidatePlan, error) {
	excluded := make(map[string]bool, len(cons.Exclude))
	for _, id := range cons.Exclude {
		excluded[id] = true
	}

	type scored struct {
		plan  CandidatePlan
		order int
	}
	var plans []scored

	for i, c := range s.candidates {
		if c.Phase != phase || excluded[c.ID] {
			continue
		}
		if cons.Mode != "" && !c.supportsMode(cons.Mode) {
			continue
		}
		if c.MaxClipSeconds > 0 && cons.ClipSeconds > c.MaxClipSeconds {
			continue
		}

		fit := c.QualityFit[cons.Mode]
		costScore := 1.0 / (1.0 + c.UnitCostUSD)
		success := s.history.successRate(c.ID, phase)

		plans = append(plans, scored{
			plan: CandidatePlan{
				CandidateID:       c.ID,
				Score:             qualityWeight*fit + costWeight*costScore + successWeight*success,
				EstimatedCostUSD:  estimateCost(c, cons),
				EstimatedDuration: estimateDuration(c, cons),
			},
			order: i,
		})
	}

	if len(plans) == 0 {
		return nil, fmt.Errorf("phase %s: %w", phase, capability.ErrNoCandidate)
	}

	sort.SliceStable(plans, func(a, b int) bool {
		if plans[a].plan.Score != plans[b].plan.Score {
			return plans[a].plan.Score > plans[b].plan.Score
		}
		if plans[a].plan.EstimatedCostUSD != plans[b].plan.EstimatedCostUSD {
			return plans[a].plan.EstimatedCostUSD < plans[b].plan.EstimatedCostUSD
		}
		return plans[a].order < plans[b].order
	})

	out := make([]CandidatePlan, len(plans))
	for i, p := range plans {
		out[i] = p.plan
	}
	return out, nil
}

// RecordOutcome updates the historical success-rate table after an attempt.
func (s *Selector) RecordOutcome(candidateID string, phase types.Phase, success bool) {
	s.history.record(candidateID, phase, success)
}

// estimateCost projects the candidate's cost for the constrained workload.
func estimateCost(c Candidate, cons Constraints) float64 {
	switch c.CostBasis {
	case CostPerClip:
		units := cons.Units
		if units < 1 {
			units = 1
		}
		return c.UnitCostUSD * float64(units)
	case CostPerSecond:
		return c.UnitCostUSD * cons.TotalSeconds
	default:
		return c.UnitCostUSD
	}
}

// estimateDuration projects wall-clock time: one latency window per unit.
func estimateDuration(c Candidate, cons Constraints) time.Duration {
	units := cons.Units
	if units < 1 {
		units = 1
	}
	return time.Duration(units) * c.EstimatedLatency
}

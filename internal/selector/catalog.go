package selector

import (
	"time"

	"github.com/jonathan/reelsmith/internal/types"
)

// Well-known candidate IDs from the default catalog.
const (
	PlannerFlash  = "gemini-planner-flash"
	PlannerPro    = "gemini-planner-pro"
	RefinerFlash  = "gemini-refiner-flash"
	RefinerPro    = "gemini-refiner-pro"
	VideoHailuo   = "hailuo-02"
	VideoRunway   = "runway-gen3"
	VideoVeo      = "veo-2"
	AudioF5TTS    = "f5-tts"
	AudioMusicGen = "musicgen-medium"
)

// allModes is the full content-mode set, for backends that handle any mode.
var allModes = []types.ContentMode{types.ModeMusic, types.ModeNarration, types.ModeHybrid}

// DefaultCatalog returns the standard backend registrations. Order matters:
// within each phase, candidates are listed in preference order, which is
// the deterministic last tie-break during ranking.
func DefaultCatalog() []Candidate {
	return []Candidate{
		{
			ID:    PlannerFlash,
			Phase: types.PhasePlanning,
			Modes: allModes,
			UnitCostUSD: 0.01, CostBasis: CostPerCall,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.80, types.ModeNarration: 0.80, types.ModeHybrid: 0.80},
			EstimatedLatency: 10 * time.Second,
		},
		{
			ID:    PlannerPro,
			Phase: types.PhasePlanning,
			Modes: allModes,
			UnitCostUSD: 0.05, CostBasis: CostPerCall,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.92, types.ModeNarration: 0.92, types.ModeHybrid: 0.92},
			EstimatedLatency: 20 * time.Second,
		},
		{
			ID:    RefinerFlash,
			Phase: types.PhaseRefinement,
			Modes: allModes,
			UnitCostUSD: 0.02, CostBasis: CostPerCall,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.82, types.ModeNarration: 0.82, types.ModeHybrid: 0.82},
			EstimatedLatency: 10 * time.Second,
		},
		{
			ID:    RefinerPro,
			Phase: types.PhaseRefinement,
			Modes: allModes,
			UnitCostUSD: 0.06, CostBasis: CostPerCall,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.93, types.ModeNarration: 0.93, types.ModeHybrid: 0.93},
			EstimatedLatency: 20 * time.Second,
		},
		{
			ID:             VideoHailuo,
			Phase:          types.PhaseVideoGeneration,
			Modes:          allModes,
			MaxClipSeconds: 10,
			UnitCostUSD:    0.80, CostBasis: CostPerClip,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.80, types.ModeNarration: 0.75, types.ModeHybrid: 0.78},
			EstimatedLatency: 90 * time.Second,
		},
		{
			ID:             VideoRunway,
			Phase:          types.PhaseVideoGeneration,
			Modes:          allModes,
			MaxClipSeconds: 10,
			UnitCostUSD:    1.20, CostBasis: CostPerClip,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.85, types.ModeNarration: 0.83, types.ModeHybrid: 0.84},
			EstimatedLatency: 120 * time.Second,
		},
		{
			ID:             VideoVeo,
			Phase:          types.PhaseVideoGeneration,
			Modes:          allModes,
			MaxClipSeconds: 8,
			UnitCostUSD:    2.50, CostBasis: CostPerClip,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.95, types.ModeNarration: 0.94, types.ModeHybrid: 0.95},
			EstimatedLatency: 150 * time.Second,
		},
		{
			ID:    AudioF5TTS,
			Phase: types.PhaseAudioGeneration,
			Modes: []types.ContentMode{types.ModeNarration, types.ModeHybrid},
			UnitCostUSD: 0.002, CostBasis: CostPerSecond,
			QualityFit:       map[types.ContentMode]float64{types.ModeNarration: 0.88, types.ModeHybrid: 0.80},
			EstimatedLatency: 30 * time.Second,
		},
		{
			ID:    AudioMusicGen,
			Phase: types.PhaseAudioGeneration,
			Modes: []types.ContentMode{types.ModeMusic, types.ModeHybrid},
			UnitCostUSD: 0.004, CostBasis: CostPerSecond,
			QualityFit:       map[types.ContentMode]float64{types.ModeMusic: 0.85, types.ModeHybrid: 0.82},
			EstimatedLatency: 45 * time.Second,
		},
	}
}

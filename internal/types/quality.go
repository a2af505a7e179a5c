package types

import "fmt"

// Dimension identifies one axis of quality assessment.
type Dimension string

// Quality dimensions. Scores are on a 0-10 scale.
const (
	DimTechnical  Dimension = "technical"
	DimContent    Dimension = "content"
	DimBrand      Dimension = "brand"
	DimPlatform   Dimension = "platform"
	DimEngagement Dimension = "engagement"
)

// Dimensions lists all quality dimensions in weight order.
var Dimensions = []Dimension{DimTechnical, DimContent, DimBrand, DimPlatform, DimEngagement}

// Weights maps each dimension to its share of the composite score.
// The shares must sum to 1.0; this is checked once at startup.
type Weights map[Dimension]float64

// DefaultWeights returns the standard composite weighting.
func DefaultWeights() Weights {
	return Weights{
		DimTechnical:  0.30,
		DimContent:    0.25,
		DimBrand:      0.20,
		DimPlatform:   0.15,
		DimEngagement: 0.10,
	}
}

// Validate checks that every dimension is present and the weights sum to 1.0.
func (w Weights) Validate() error {
	var sum float64
	for _, d := range Dimensions {
		weight, ok := w[d]
		if !ok {
			return fmt.Errorf("missing weight for dimension %q", d)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight for dimension %q: %f", d, weight)
		}
		sum += weight
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("quality weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Verdict is the pass/fail outcome of a quality review.
type Verdict string

// Review verdicts.
const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// QualityReport is the output of one quality review: per-dimension scores,
// the weighted composite, and the verdict against the configured thresholds.
type QualityReport struct {
	Scores        map[Dimension]float64 `json:"scores"`
	Composite     float64               `json:"composite"`
	PassThreshold float64               `json:"pass_threshold"`
	Verdict       Verdict               `json:"verdict"`
	Grade         string                `json:"grade"`
	Notes         map[Dimension]string  `json:"notes,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// LowDimensions returns the dimensions scoring below the given sub-threshold.
func (r *QualityReport) LowDimensions(subThreshold float64) []Dimension {
	var low []Dimension
	for _, d := range Dimensions {
		if score, ok := r.Scores[d]; ok && score < subThreshold {
			low = append(low, d)
		}
	}
	return low
}

// GradeFor maps a composite score to a letter grade for reporting.
func GradeFor(composite float64) string {
	switch {
	case composite >= 9.0:
		return "A"
	case composite >= 8.0:
		return "B"
	case composite >= 7.0:
		return "C"
	case composite >= 6.0:
		return "D"
	default:
		return "F"
	}
}

package normalize

import (
	"strings"

	"github.com/spigell/opportunity-scout/internal/discovery"
	"github.com/spigell/opportunity-scout/internal/utils"
)

// Confidence is a coarse quality signal attached to a job.
type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceScores = map[Confidence]float64{
	ConfidenceHigh:   92,
	ConfidenceMedium: 78,
	ConfidenceLow:    64,
}

// ParseConfidence matches free text against high, medium/med and low.
func ParseConfidence(v any) Confidence {
	text := utils.NormalizeToken(v)
	switch {
	case text == "":
		return ConfidenceNone
	case strings.Contains(text, "high"):
		return ConfidenceHigh
	case strings.Contains(text, "med"):
		return ConfidenceMedium
	case strings.Contains(text, "low"):
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Score is the fallback match score for the confidence level.
func (c Confidence) Score() (float64, bool) {
	score, ok := confidenceScores[c]
	return score, ok
}

func matchScore(r discovery.Record, confidence Confidence) *float64 {
	if score, ok := utils.ToNumber(r.Get(scoreKeys...)); ok {
		return &score
	}
	if score, ok := confidence.Score(); ok {
		return &score
	}
	return nil
}

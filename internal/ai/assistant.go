// Package ai describes optional model-backed scoring of opportunities.
package ai

import (
	"context"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type FitAssessment struct {
	Fit    bool
	Score  float64
	Reason string
	Raw    string
}

// Matcher judges how well an opportunity suits a free-text candidate profile.
type Matcher interface {
	Evaluate(ctx context.Context, profile string, opp *opportunity.Opportunity) (*FitAssessment, error)
}

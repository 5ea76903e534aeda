package filtering

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/opportunity-scout/internal/ai"
	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type aiFitFilter struct {
	enabled bool
	reason  string
	config  *AIFitFilterConfig
	deps    *AIFitFilterDeps
}

type AIFitFilterDeps struct {
	Logger  *zap.Logger
	Matcher ai.Matcher
	// Profile is the free-text candidate description sent to the model.
	Profile string
	// SeenFile receives rejected opportunities when set.
	SeenFile string
}

type AIFitFilterConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
	Model           string
	MaxRetries      int
}

// NewAIFit creates the AI-based filtering step.
func NewAIFit(cfg *AIFitFilterConfig, deps *AIFitFilterDeps) Filter {
	if cfg == nil {
		cfg = &AIFitFilterConfig{}
	}
	return &aiFitFilter{
		enabled: cfg.Enabled,
		config:  cfg,
		deps:    deps,
	}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return f.enabled }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil {
		return errors.New("deps are not initialized: filter is not usable")
	}
	if f.deps.Matcher == nil {
		return errors.New("ai matcher is required when ai filter is enabled")
	}
	if strings.TrimSpace(f.deps.Profile) == "" {
		return errors.New("candidate profile is required when ai filter is enabled")
	}
	if f.deps.Logger == nil {
		f.deps.Logger = zap.NewNop()
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, v *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := v.Len()
	approved := make([]*opportunity.Opportunity, 0, initial)
	rejected := opportunity.New()

	for _, item := range v.Items {
		if err := ctx.Err(); err != nil {
			return v, Step{}, err
		}

		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Profile, item)
		if err != nil {
			f.deps.Logger.Warn("AI evaluation failed",
				zap.String("opportunity_id", item.ID),
				zap.Error(err),
			)
			item.AI = &opportunity.AIAssessment{Error: err.Error()}
			approved = append(approved, item)
			continue
		}

		item.AI = &opportunity.AIAssessment{
			Fit:    assessment.Fit,
			Score:  assessment.Score,
			Reason: assessment.Reason,
		}

		if !assessment.Fit {
			f.deps.Logger.Info("opportunity rejected by AI provider",
				zap.String("opportunity_id", item.ID),
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			rejected.Items = append(rejected.Items, item)
			continue
		}

		score := math.Round(assessment.Score * 100)
		item.MatchScore = &score
		if assessment.Reason != "" {
			item.MatchReason = assessment.Reason
		}
		approved = append(approved, item)
	}

	sort.SliceStable(approved, func(i, k int) bool {
		return approved[i].Score() > approved[k].Score()
	})
	v.Items = approved

	if err := f.appendToSeenFile(rejected); err != nil {
		f.deps.Logger.Warn("failed to append rejected opportunities to exclude file", zap.Error(err))
	}

	left := v.Len()
	return v, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *aiFitFilter) appendToSeenFile(rejected *opportunity.Opportunities) error {
	path := strings.TrimSpace(f.deps.SeenFile)
	if path == "" || rejected.Len() == 0 {
		return nil
	}

	seen, err := opportunity.GetSeenFromFile(path)
	if err != nil {
		return fmt.Errorf("load seen opportunities: %w", err)
	}

	seen.Append(rejected.ToSeen(time.Now()))

	if err := seen.ToFile(path); err != nil {
		return fmt.Errorf("write seen opportunities: %w", err)
	}

	f.deps.Logger.Info("rejected opportunities appended to exclude file",
		zap.Int("count", rejected.Len()),
		zap.String("exclude_file", path),
	)
	return nil
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["minimum_fit_score"] = fmt.Sprintf("%.2f", f.config.MinimumFitScore)
		if f.config.Model != "" {
			details["model"] = f.config.Model
		}
		if f.config.MaxRetries > 0 {
			details["max_retries"] = strconv.Itoa(f.config.MaxRetries)
		}
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

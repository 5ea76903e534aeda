package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type minimumScoreFilter struct {
	minimum float64
}

// NewMinimumScore creates a filter that drops opportunities scored below minimum.
// Unscored opportunities count as 0. A non-positive minimum keeps everything.
func NewMinimumScore(minimum float64) Filter {
	return &minimumScoreFilter{minimum: minimum}
}

func (f *minimumScoreFilter) Name() string { return "minimum_score" }

func (f *minimumScoreFilter) Disable(string) {}

func (f *minimumScoreFilter) IsEnabled() bool { return true }

func (f *minimumScoreFilter) Validate() error {
	if f.minimum > 100 {
		return fmt.Errorf("minimum score %.0f is above 100", f.minimum)
	}
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, v *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := v.Len()
	if f.minimum <= 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.ExcludeFunc(func(o *opportunity.Opportunity) bool {
		return o.Score() < f.minimum
	})

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *minimumScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"minimum": strconv.FormatFloat(f.minimum, 'f', -1, 64)},
	}
}

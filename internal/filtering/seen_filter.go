package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type seenFilter struct {
	path string
}

// NewSeen creates a filter that removes opportunities listed in the exclude file.
func NewSeen(path string) Filter {
	return &seenFilter{path: strings.TrimSpace(path)}
}

func (f *seenFilter) Name() string { return "seen" }

func (f *seenFilter) Disable(string) {}

func (f *seenFilter) IsEnabled() bool { return true }

func (f *seenFilter) Validate() error { return nil }

func (f *seenFilter) Apply(_ context.Context, v *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := v.Len()
	if f.path == "" {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	seen, err := opportunity.GetSeenFromFile(f.path)
	if err != nil {
		return v, Step{}, fmt.Errorf("getting seen opportunities from file: %w", err)
	}

	removed := v.Exclude(opportunity.IDField, seen.IDs())

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *seenFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

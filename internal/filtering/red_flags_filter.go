package filtering

import (
	"context"
	"strings"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type redFlagsFilter struct {
	terms []string
}

// NewRedFlags creates a filter that drops opportunities mentioning any of terms.
func NewRedFlags(terms []string) Filter {
	return &redFlagsFilter{terms: terms}
}

func (f *redFlagsFilter) Name() string { return "red_flags" }

func (f *redFlagsFilter) Disable(string) {}

func (f *redFlagsFilter) IsEnabled() bool { return true }

func (f *redFlagsFilter) Validate() error { return nil }

func (f *redFlagsFilter) Apply(_ context.Context, v *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := v.Len()
	if len(f.terms) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.ExcludeFunc(func(o *opportunity.Opportunity) bool {
		return ContainsRedFlag(o.Text(), f.terms)
	})

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *redFlagsFilter) Status() Status {
	details := map[string]string{}
	if len(f.terms) > 0 {
		details["terms"] = strings.Join(f.terms, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// ContainsRedFlag reports whether any non-empty term occurs in text, ignoring case.
func ContainsRedFlag(text string, terms []string) bool {
	text = strings.ToLower(text)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

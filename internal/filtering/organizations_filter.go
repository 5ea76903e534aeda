package filtering

import (
	"context"
	"strings"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type organizationsFilter struct {
	organizations []string
}

// NewOrganizations creates a filter that removes opportunities from the listed organizations.
func NewOrganizations(organizations []string) Filter {
	return &organizationsFilter{organizations: organizations}
}

func (f *organizationsFilter) Name() string { return "organizations" }

func (f *organizationsFilter) Disable(string) {}

func (f *organizationsFilter) IsEnabled() bool { return true }

func (f *organizationsFilter) Validate() error { return nil }

func (f *organizationsFilter) Apply(_ context.Context, v *opportunity.Opportunities) (*opportunity.Opportunities, Step, error) {
	initial := v.Len()
	if len(f.organizations) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Exclude(opportunity.OrganizationField, f.organizations)

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *organizationsFilter) Status() Status {
	details := map[string]string{}
	if len(f.organizations) > 0 {
		details["organizations"] = strings.Join(f.organizations, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

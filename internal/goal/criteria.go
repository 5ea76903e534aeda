// Package goal builds the target URL and natural-language instruction sent to
// the browser-automation service for one job source.
package goal

import (
	"strings"
)

// Criteria are the user's search filters. Blank fields and sentinel values
// such as "any" or "skip" fall back to per-field defaults.
type Criteria struct {
	RoleLevel        string `mapstructure:"role-level" json:"roleLevel,omitempty"`
	TitleKeywords    string `mapstructure:"title-keywords" json:"titleKeywords,omitempty"`
	Location         string `mapstructure:"location" json:"location,omitempty"`
	WorkMode         string `mapstructure:"work-mode" json:"workMode,omitempty"`
	Skills           string `mapstructure:"skills" json:"skills,omitempty"`
	Visa             string `mapstructure:"visa" json:"visa,omitempty"`
	SalaryBand       string `mapstructure:"salary-band" json:"salaryBand,omitempty"`
	CompanyType      string `mapstructure:"company-type" json:"companyType,omitempty"`
	PreferredSource  string `mapstructure:"preferred-source" json:"preferredSource,omitempty"`
	StrictSourceOnly bool   `mapstructure:"strict-source-only" json:"strictSourceOnly,omitempty"`
}

const (
	DefaultTitleKeywords = "Software Engineer"
	DefaultLocation      = "Remote"
)

type criterion struct {
	label    string
	value    func(Criteria) string
	fallback string
	skip     []string
}

// Rendered into the goal in this order.
var criteria = []criterion{
	{label: "Role level", value: func(c Criteria) string { return c.RoleLevel }, fallback: "Any level", skip: []string{"any", "skip"}},
	{label: "Title keywords", value: func(c Criteria) string { return c.TitleKeywords }, fallback: DefaultTitleKeywords, skip: []string{"any", "skip"}},
	{label: "Location", value: func(c Criteria) string { return c.Location }, fallback: DefaultLocation, skip: []string{"any", "skip", "global"}},
	{label: "Work mode", value: func(c Criteria) string { return c.WorkMode }, fallback: "Any (remote, hybrid or on-site)", skip: []string{"any", "skip"}},
	{label: "Skills", value: func(c Criteria) string { return c.Skills }, fallback: "Not specified", skip: []string{"skip"}},
	{label: "Visa sponsorship", value: func(c Criteria) string { return c.Visa }, fallback: "Not required", skip: []string{"any", "skip"}},
	{label: "Salary band", value: func(c Criteria) string { return c.SalaryBand }, fallback: "Not specified", skip: []string{"any", "skip"}},
	{label: "Company type", value: func(c Criteria) string { return c.CompanyType }, fallback: "Any", skip: []string{"any", "skip"}},
}

// Keywords returns the search keywords, prefixed with the role level when one is set.
func (c Criteria) Keywords() string {
	keywords := resolve(c.TitleKeywords, DefaultTitleKeywords, "any", "skip")
	if level := resolve(c.RoleLevel, "", "any", "skip"); level != "" &&
		!strings.Contains(strings.ToLower(keywords), strings.ToLower(level)) {
		keywords = level + " " + keywords
	}
	return keywords
}

// Place returns the resolved location.
func (c Criteria) Place() string {
	return resolve(c.Location, DefaultLocation, "any", "skip", "global")
}

// Preferred returns the preferred source, if a known one is set.
func (c Criteria) Preferred() (Source, bool) {
	src, err := ParseSource(c.PreferredSource)
	if err != nil {
		return "", false
	}
	return src, true
}

func (c Criteria) lines() []string {
	out := make([]string, 0, len(criteria))
	for _, field := range criteria {
		out = append(out, "- "+field.label+": "+resolve(field.value(c), field.fallback, field.skip...))
	}
	return out
}

func resolve(value, fallback string, skip ...string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return fallback
	}
	for _, s := range skip {
		if strings.EqualFold(value, s) {
			return fallback
		}
	}
	return value
}

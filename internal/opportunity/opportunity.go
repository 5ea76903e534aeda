// Package opportunity holds the records returned to callers of a search.
package opportunity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/spigell/opportunity-scout/internal/normalize"
)

const DefaultLocation = "Not specified"

type Type string

const (
	TypeJob         Type = "job"
	TypeScholarship Type = "scholarship"
	TypeVisa        Type = "visa"
)

// Opportunity is the flattened view of a normalized job.
type Opportunity struct {
	ID           string   `json:"id"`
	Type         Type     `json:"type"`
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Link         string   `json:"link,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
	MatchScore   *float64 `json:"matchScore,omitempty"`
	Source       string   `json:"source,omitempty"`

	Salary           string   `json:"salary,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
	EmploymentType   string   `json:"employmentType,omitempty"`
	WorkMode         string   `json:"workMode,omitempty"`
	PostedDate       string   `json:"postedDate,omitempty"`
	MatchReason      string   `json:"matchReason,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
	ApplicationSteps []string `json:"applicationSteps,omitempty"`
	FAQ              []string `json:"faq,omitempty"`
	ImportantNotes   string   `json:"importantNotes,omitempty"`
	VisaNote         string   `json:"visaNote,omitempty"`
	Confidence       string   `json:"confidence,omitempty"`
	SourceURL        string   `json:"sourceUrl,omitempty"`

	AI *AIAssessment `json:"ai,omitempty"`
}

// AIAssessment stores the outcome of an optional AI fit check.
type AIAssessment struct {
	Fit    bool    `json:"fit"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ID derives a stable identifier from the job identity, so repeated searches
// return the same id for the same listing.
func ID(job normalize.Job) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(job.Key())).String()
}

// FromJob converts a normalized job into an opportunity of type job.
func FromJob(job normalize.Job) *Opportunity {
	location := job.Location
	if location == "" {
		location = DefaultLocation
	}

	requirements := job.Requirements
	if requirements == nil {
		requirements = []string{}
	}

	return &Opportunity{
		ID:               ID(job),
		Type:             TypeJob,
		Title:            job.Title,
		Organization:     job.Company,
		Location:         location,
		Description:      describe(job),
		Requirements:     requirements,
		Link:             job.SourceURL,
		Deadline:         job.ApplicationDeadline,
		MatchScore:       job.MatchScore,
		Source:           job.Source,
		Salary:           job.Salary,
		Seniority:        job.Seniority,
		EmploymentType:   job.EmploymentType,
		WorkMode:         job.WorkMode,
		PostedDate:       job.PostedDate,
		MatchReason:      job.MatchReason,
		Responsibilities: job.Responsibilities,
		Benefits:         job.Benefits,
		ApplicationSteps: job.ApplicationSteps,
		FAQ:              job.FAQ,
		ImportantNotes:   job.ImportantNotes,
		VisaNote:         job.VisaNote,
		Confidence:       string(job.Confidence),
		SourceURL:        job.SourceURL,
	}
}

// Score returns the match score or 0 when it is unknown.
func (o *Opportunity) Score() float64 {
	if o.MatchScore == nil {
		return 0
	}
	return *o.MatchScore
}

// Text returns the fields free-text filters look at.
func (o *Opportunity) Text() string {
	return strings.Join([]string{
		o.Title,
		o.Organization,
		o.Description,
		strings.Join(o.Requirements, " "),
		o.ImportantNotes,
	}, "\n")
}

func describe(job normalize.Job) string {
	lines := make([]string, 0, 6)
	if job.Summary != "" {
		lines = append(lines, job.Summary)
	}

	for _, field := range []struct {
		label string
		value string
	}{
		{"Salary", job.Salary},
		{"Work mode", job.WorkMode},
		{"Seniority", job.Seniority},
		{"Employment type", job.EmploymentType},
		{"Why it matches", job.MatchReason},
		{"Visa", job.VisaNote},
	} {
		if field.value != "" {
			lines = append(lines, field.label+": "+field.value)
		}
	}

	return strings.Join(lines, "\n")
}

// Package normalize maps discovered records onto the canonical Job shape.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/opportunity-scout/internal/discovery"
	"github.com/spigell/opportunity-scout/internal/utils"
)

const (
	DefaultCompany = "Unknown"
	DefaultSalary  = "Not stated"
)

const (
	MaxRequirements     = 8
	MaxResponsibilities = 6
	MaxBenefits         = 6
	MaxApplicationSteps = 5
	MaxFAQ              = 5
)

var (
	titleKeys          = []string{"title", "role", "job_title", "position"}
	companyKeys        = []string{"company", "organization", "employer", "hiring_company", "company_name"}
	locationKeys       = []string{"location", "job_location", "city", "region", "country"}
	summaryKeys        = []string{"description", "summary", "snippet", "job_description", "overview"}
	seniorityKeys      = []string{"seniority", "level", "experience_level", "seniority_level"}
	employmentKeys     = []string{"employment_type", "job_type", "contract_type", "type"}
	workModeKeys       = []string{"work_mode", "workplace_type", "work_arrangement", "remote_policy", "remote"}
	postedKeys         = []string{"posted_date", "date_posted", "posted", "posted_at", "published_at"}
	deadlineKeys       = []string{"application_deadline", "deadline", "closing_date", "apply_by"}
	salaryKeys         = []string{"salary", "salary_range", "compensation", "pay", "salary_text"}
	matchReasonKeys    = []string{"match_reason", "why_match", "fit_reason", "reason"}
	requirementKeys    = []string{"requirements", "qualifications", "required_skills", "skills"}
	responsibilityKeys = []string{"responsibilities", "duties"}
	benefitKeys        = []string{"benefits", "perks"}
	stepKeys           = []string{"application_steps", "how_to_apply", "apply_steps"}
	faqKeys            = []string{"faq", "faqs"}
	notesKeys          = []string{"important_notes", "notes", "note"}
	visaKeys           = []string{"visa_note", "visa_sponsorship", "visa"}
	confidenceKeys     = []string{"confidence", "confidence_level", "match_confidence"}
	scoreKeys          = []string{"match_score", "score", "relevance_score", "fit_score"}
)

// Job is the canonical listing produced from a discovered record.
// Title and Company are never empty.
type Job struct {
	Title               string     `json:"title"`
	Company             string     `json:"company"`
	Location            string     `json:"location,omitempty"`
	SourceURL           string     `json:"sourceUrl,omitempty"`
	Summary             string     `json:"summary,omitempty"`
	Seniority           string     `json:"seniority,omitempty"`
	EmploymentType      string     `json:"employmentType,omitempty"`
	WorkMode            string     `json:"workMode,omitempty"`
	PostedDate          string     `json:"postedDate,omitempty"`
	ApplicationDeadline string     `json:"applicationDeadline,omitempty"`
	Salary              string     `json:"salary"`
	MatchReason         string     `json:"matchReason,omitempty"`
	Requirements        []string   `json:"requirements"`
	Responsibilities    []string   `json:"responsibilities"`
	Benefits            []string   `json:"benefits"`
	ApplicationSteps    []string   `json:"applicationSteps"`
	FAQ                 []string   `json:"faq"`
	ImportantNotes      string     `json:"importantNotes,omitempty"`
	VisaNote            string     `json:"visaNote,omitempty"`
	Confidence          Confidence `json:"confidence,omitempty"`
	MatchScore          *float64   `json:"matchScore,omitempty"`
	// Source is the job board the record came from. It is not part of Key.
	Source              string     `json:"source,omitempty"`
}

// FromRecord normalizes one record. It returns false when the record has no title.
func FromRecord(r discovery.Record) (Job, bool) {
	title := r.Text(titleKeys...)
	if title == "" {
		return Job{}, false
	}

	company := r.Text(companyKeys...)
	if company == "" {
		company = DefaultCompany
	}

	job := Job{
		Title:               title,
		Company:             company,
		Location:            r.Text(locationKeys...),
		SourceURL:           r.Text(discovery.LinkKeys...),
		Seniority:           r.Text(seniorityKeys...),
		EmploymentType:      r.Text(employmentKeys...),
		WorkMode:            workMode(r),
		PostedDate:          r.Text(postedKeys...),
		ApplicationDeadline: r.Text(deadlineKeys...),
		MatchReason:         r.Text(matchReasonKeys...),
		Requirements:        list(r.Get(requirementKeys...), MaxRequirements),
		Responsibilities:    list(r.Get(responsibilityKeys...), MaxResponsibilities),
		Benefits:            list(r.Get(benefitKeys...), MaxBenefits),
		ApplicationSteps:    list(r.Get(stepKeys...), MaxApplicationSteps),
		FAQ:                 utils.Limit(utils.DedupeStrings(faqList(r.Get(faqKeys...))), MaxFAQ),
		ImportantNotes:      joinedText(r.Get(notesKeys...)),
		VisaNote:            r.Text(visaKeys...),
		Confidence:          ParseConfidence(r.Get(confidenceKeys...)),
	}

	job.Summary = r.Text(summaryKeys...)
	if job.Summary == "" {
		job.Summary = synthesizeSummary(job.MatchReason, job.Requirements)
	}

	job.Salary = salary(r, job.Summary)
	job.MatchScore = matchScore(r, job.Confidence)

	return job, true
}

// Jobs normalizes records, skipping untitled ones, and removes repeated keys.
func Jobs(records []discovery.Record) []Job {
	jobs := make([]Job, 0, len(records))
	for _, r := range records {
		if job, ok := FromRecord(r); ok {
			jobs = append(jobs, job)
		}
	}
	return Dedupe(jobs)
}

// Key is the case-insensitive (title, company, sourceUrl) identity of the job.
func (j Job) Key() string {
	return strings.Join([]string{
		utils.NormalizeToken(j.Title),
		utils.NormalizeToken(j.Company),
		utils.NormalizeToken(j.SourceURL),
	}, "|")
}

// Score returns the match score or 0 when it is unknown.
func (j Job) Score() float64 {
	if j.MatchScore == nil {
		return 0
	}
	return *j.MatchScore
}

// Dedupe keeps one job per Key. On collision the higher score wins, then the
// more complete record, then the earlier one.
func Dedupe(jobs []Job) []Job {
	index := make(map[string]int, len(jobs))
	result := make([]Job, 0, len(jobs))

	for _, job := range jobs {
		key := job.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(result)
			result = append(result, job)
			continue
		}
		if job.preferredOver(result[i]) {
			result[i] = job
		}
	}

	return result
}

// Rank sorts jobs by descending score, unknown scores last as 0, and keeps at
// most limit of them. A non-positive limit keeps everything.
func Rank(jobs []Job, limit int) []Job {
	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].Score() > jobs[k].Score()
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

func (j Job) preferredOver(other Job) bool {
	if j.Score() != other.Score() {
		return j.Score() > other.Score()
	}
	return j.completeness() > other.completeness()
}

func (j Job) completeness() int {
	n := 0
	for _, s := range []string{
		j.Location, j.SourceURL, j.Summary, j.Seniority, j.EmploymentType,
		j.WorkMode, j.PostedDate, j.ApplicationDeadline, j.MatchReason,
		j.ImportantNotes, j.VisaNote, string(j.Confidence),
	} {
		if s != "" {
			n++
		}
	}
	if j.Company != DefaultCompany {
		n++
	}
	if j.Salary != DefaultSalary {
		n++
	}
	return n + len(j.Requirements) + len(j.Responsibilities) + len(j.Benefits) +
		len(j.ApplicationSteps) + len(j.FAQ)
}

func list(v any, limit int) []string {
	return utils.Limit(utils.DedupeStrings(utils.AsStringList(v)), limit)
}

// faqList accepts plain strings or {question, answer} objects.
func faqList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return utils.AsStringList(v)
	}

	entries := make([]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			entries = append(entries, item)
			continue
		}
		qa := discovery.Record(obj)
		question := qa.Text("question", "q")
		answer := qa.Text("answer", "a")
		switch {
		case question != "" && answer != "":
			entries = append(entries, fmt.Sprintf("%s: %s", question, answer))
		case question != "":
			entries = append(entries, question)
		}
	}

	return utils.AsStringList(entries)
}

func joinedText(v any) string {
	if text := utils.AsText(v); text != "" {
		return text
	}
	return strings.Join(utils.AsStringList(v), "; ")
}

func workMode(r discovery.Record) string {
	v := r.Get(workModeKeys...)
	if remote, ok := v.(bool); ok {
		if remote {
			return "Remote"
		}
		return "On-site"
	}
	return utils.AsText(v)
}

func synthesizeSummary(reason string, requirements []string) string {
	parts := make([]string, 0, 2)
	if reason != "" {
		parts = append(parts, strings.TrimSuffix(reason, ".")+".")
	}
	if len(requirements) > 0 {
		parts = append(parts, "Key requirements: "+strings.Join(utils.Limit(requirements, 2), "; ")+".")
	}
	return strings.Join(parts, " ")
}

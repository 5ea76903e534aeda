package normalize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spigell/opportunity-scout/internal/discovery"
)

func TestFromRecordMapsSpellings(t *testing.T) {
	t.Parallel()

	job, ok := FromRecord(discovery.Record{
		"job_title":        "Senior Go Engineer",
		"hiring_company":   "Acme",
		"job_location":     "Berlin",
		"apply_url":        "https://acme.example/apply",
		"snippet":          "Build payment services",
		"experience_level": "Senior",
		"job_type":         "Full-time",
		"remote":           true,
		"date_posted":      "2026-10-01",
		"deadline":         "2026-11-01",
		"compensation":     "€90k",
		"why_match":        "Strong Go background",
		"qualifications":   "Go; PostgreSQL; go",
		"duties":           []any{"Design APIs", "Review code"},
		"perks":            "Equity, Remote budget",
		"how_to_apply":     []any{"Send CV", "Interview"},
		"notes":            []any{"Relocation offered", "German is a plus"},
		"visa_sponsorship": "Blue card sponsorship",
		"confidence":       "High confidence",
	})
	if !ok {
		t.Fatal("expected record to normalize")
	}

	checks := map[string][2]string{
		"title":        {job.Title, "Senior Go Engineer"},
		"company":      {job.Company, "Acme"},
		"location":     {job.Location, "Berlin"},
		"source url":   {job.SourceURL, "https://acme.example/apply"},
		"summary":      {job.Summary, "Build payment services"},
		"seniority":    {job.Seniority, "Senior"},
		"employment":   {job.EmploymentType, "Full-time"},
		"work mode":    {job.WorkMode, "Remote"},
		"posted":       {job.PostedDate, "2026-10-01"},
		"deadline":     {job.ApplicationDeadline, "2026-11-01"},
		"salary":       {job.Salary, "€90k"},
		"match reason": {job.MatchReason, "Strong Go background"},
		"notes":        {job.ImportantNotes, "Relocation offered; German is a plus"},
		"visa":         {job.VisaNote, "Blue card sponsorship"},
		"confidence":   {string(job.Confidence), "high"},
		"requirements": {strings.Join(job.Requirements, ","), "Go,PostgreSQL"},
		"duties":       {strings.Join(job.Responsibilities, ","), "Design APIs,Review code"},
		"benefits":     {strings.Join(job.Benefits, ","), "Equity,Remote budget"},
		"steps":        {strings.Join(job.ApplicationSteps, ","), "Send CV,Interview"},
	}
	for name, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s: expected %q, got %q", name, pair[1], pair[0])
		}
	}

	if job.MatchScore == nil || *job.MatchScore != 92 {
		t.Fatalf("expected match score 92 from confidence, got %v", job.MatchScore)
	}
}

func TestFromRecordDefaults(t *testing.T) {
	t.Parallel()

	job, ok := FromRecord(discovery.Record{
		"title":        "Analyst",
		"match_reason": "Fits your data skills",
		"requirements": []any{"SQL", "Excel", "Python"},
		"description":  "",
	})
	if !ok {
		t.Fatal("expected record to normalize")
	}

	if job.Company != DefaultCompany {
		t.Fatalf("expected default company, got %q", job.Company)
	}
	if job.Salary != DefaultSalary {
		t.Fatalf("expected default salary, got %q", job.Salary)
	}
	if want := "Fits your data skills. Key requirements: SQL; Excel."; job.Summary != want {
		t.Fatalf("expected synthesized summary %q, got %q", want, job.Summary)
	}
	if job.MatchScore != nil {
		t.Fatalf("expected no match score, got %v", *job.MatchScore)
	}
	if job.Confidence != ConfidenceNone {
		t.Fatalf("expected no confidence, got %q", job.Confidence)
	}
}

func TestFromRecordRequiresTitle(t *testing.T) {
	t.Parallel()

	if _, ok := FromRecord(discovery.Record{"company": "Acme", "title": "  "}); ok {
		t.Fatal("expected untitled record to be rejected")
	}
}

func TestFromRecordSalaryFromSummary(t *testing.T) {
	t.Parallel()

	job, _ := FromRecord(discovery.Record{
		"title":       "Engineer",
		"description": "Competitive pay of $120,000 - $150,000 per year plus equity.",
	})
	if job.Salary != "$120,000 - $150,000 per year" {
		t.Fatalf("unexpected salary: %q", job.Salary)
	}

	job, _ = FromRecord(discovery.Record{
		"title":  "Engineer",
		"salary": map[string]any{"min": 50000.0, "max": 70000.0, "currency": "GBP"},
	})
	if job.Salary != "GBP 50000-70000" {
		t.Fatalf("unexpected structured salary: %q", job.Salary)
	}
}

func TestFromRecordFAQObjects(t *testing.T) {
	t.Parallel()

	job, _ := FromRecord(discovery.Record{
		"title": "Engineer",
		"faq": []any{
			map[string]any{"question": "Remote?", "answer": "Yes"},
			map[string]any{"question": "Visa?"},
			"Start date: ASAP",
			map[string]any{"answer": "orphan"},
		},
	})

	want := []string{"Remote?: Yes", "Visa?", "Start date: ASAP"}
	if strings.Join(job.FAQ, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected faq: %q", job.FAQ)
	}
}

func TestFromRecordCapsLists(t *testing.T) {
	t.Parallel()

	many := func(prefix string) []any {
		out := make([]any, 0, 20)
		for i := 0; i < 20; i++ {
			out = append(out, fmt.Sprintf("%s %d", prefix, i))
		}
		return out
	}

	job, _ := FromRecord(discovery.Record{
		"title":             "Engineer",
		"requirements":      many("req"),
		"responsibilities":  many("resp"),
		"benefits":          many("benefit"),
		"application_steps": many("step"),
		"faq":               many("faq"),
	})

	limits := []struct {
		name  string
		got   int
		limit int
	}{
		{"requirements", len(job.Requirements), MaxRequirements},
		{"responsibilities", len(job.Responsibilities), MaxResponsibilities},
		{"benefits", len(job.Benefits), MaxBenefits},
		{"application steps", len(job.ApplicationSteps), MaxApplicationSteps},
		{"faq", len(job.FAQ), MaxFAQ},
	}
	for _, l := range limits {
		if l.got != l.limit {
			t.Errorf("%s: expected %d items, got %d", l.name, l.limit, l.got)
		}
	}
}

func TestMatchScoreFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record discovery.Record
		want   *float64
	}{
		{name: "high", record: discovery.Record{"confidence": "high"}, want: ptr(92)},
		{name: "medium", record: discovery.Record{"confidence": "Medium"}, want: ptr(78)},
		{name: "med", record: discovery.Record{"confidence": "med"}, want: ptr(78)},
		{name: "low", record: discovery.Record{"confidence": "LOW"}, want: ptr(64)},
		{name: "unrecognized", record: discovery.Record{"confidence": "certain"}, want: nil},
		{name: "absent", record: discovery.Record{}, want: nil},
		{name: "explicit wins", record: discovery.Record{"confidence": "low", "match_score": "88"}, want: ptr(88)},
		{name: "camel case score", record: discovery.Record{"matchScore": 71.0}, want: ptr(71)},
		{name: "unparseable score falls back", record: discovery.Record{"score": "n/a", "confidence": "high"}, want: ptr(92)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.record["title"] = "Engineer"
			job, _ := FromRecord(tt.record)
			switch {
			case tt.want == nil && job.MatchScore != nil:
				t.Fatalf("expected no score, got %v", *job.MatchScore)
			case tt.want != nil && job.MatchScore == nil:
				t.Fatalf("expected score %v, got none", *tt.want)
			case tt.want != nil && *job.MatchScore != *tt.want:
				t.Fatalf("expected score %v, got %v", *tt.want, *job.MatchScore)
			}
		})
	}
}

func TestJobsDeduplicates(t *testing.T) {
	t.Parallel()

	jobs := Jobs([]discovery.Record{
		{"title": "Go Developer", "company": "Acme", "url": "https://a/1"},
		{"title": "GO DEVELOPER", "company": "acme", "url": "HTTPS://A/1"},
		{"title": "Go Developer", "company": "Acme", "url": "https://a/2"},
		{"company": "No title"},
	})

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestDedupePrefersHigherScoreThenCompleteness(t *testing.T) {
	t.Parallel()

	base := Job{Title: "Go Developer", Company: "Acme", SourceURL: "https://a/1", Salary: DefaultSalary}

	low := base
	low.MatchScore = ptr(60)
	high := base
	high.MatchScore = ptr(90)

	got := Dedupe([]Job{low, high})
	if len(got) != 1 || got[0].Score() != 90 {
		t.Fatalf("expected higher score to win, got %+v", got)
	}

	sparse := base
	rich := base
	rich.Location = "Berlin"
	rich.Requirements = []string{"Go"}

	got = Dedupe([]Job{sparse, rich})
	if len(got) != 1 || got[0].Location != "Berlin" {
		t.Fatalf("expected more complete record to win, got %+v", got)
	}

	first := base
	first.Summary = "first"
	second := base
	second.Summary = "second"

	got = Dedupe([]Job{first, second})
	if len(got) != 1 || got[0].Summary != "first" {
		t.Fatalf("expected first record to win a tie, got %+v", got)
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	jobs := []Job{
		{Title: "none"},
		{Title: "mid", MatchScore: ptr(70)},
		{Title: "top", MatchScore: ptr(95)},
		{Title: "low", MatchScore: ptr(10)},
	}

	ranked := Rank(jobs, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(ranked))
	}
	order := []string{ranked[0].Title, ranked[1].Title, ranked[2].Title}
	if strings.Join(order, ",") != "top,mid,low" {
		t.Fatalf("unexpected order: %v", order)
	}

	if got := Rank([]Job{{Title: "a"}, {Title: "b"}}, 0); len(got) != 2 {
		t.Fatalf("expected no truncation with zero limit, got %d", len(got))
	}
}

func TestExtractSalary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"Salary: USD 80k/yr, remote", "USD 80k/yr"},
		{"₦500,000 monthly", "₦500,000"},
		{"€45.000 to €55.000", "€45.000 to €55.000"},
		{"£30 per hour", "£30 per hour"},
		{"competitive", ""},
	}

	for _, tt := range tests {
		if got := ExtractSalary(tt.input); got != tt.want {
			t.Errorf("ExtractSalary(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	tests := map[any]Confidence{
		"High":     ConfidenceHigh,
		" medium ": ConfidenceMedium,
		"Med":      ConfidenceMedium,
		"low-ish":  ConfidenceLow,
		"unknown":  ConfidenceNone,
		"":         ConfidenceNone,
		0.9:        ConfidenceNone,
	}

	for input, want := range tests {
		if got := ParseConfidence(input); got != want {
			t.Errorf("ParseConfidence(%v): expected %q, got %q", input, want, got)
		}
	}
}

func ptr(f float64) *float64 { return &f }

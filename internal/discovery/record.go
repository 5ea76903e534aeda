// Package discovery finds job-like records inside automation payloads of unknown shape.
package discovery

import (
	"strings"

	"github.com/spigell/opportunity-scout/internal/utils"
)

var (
	// TitleKeys name the fields a record must carry to be considered a job.
	TitleKeys = []string{"title", "job_title", "position", "role"}
	// CompanyKeys name the hiring organization.
	CompanyKeys = []string{"company", "organization", "employer", "hiring_company", "company_name"}
	// LinkKeys name the listing or application link.
	LinkKeys = []string{"source_url", "url", "link", "job_url", "apply_url", "application_url"}
)

var signalKeys = []string{
	"company", "organization", "employer", "location", "requirements",
	"salary", "salary_range", "work_mode", "responsibilities", "benefits",
	"application_steps", "faq", "important_notes", "url", "link",
	"source_url", "job_url", "apply_url", "match_reason", "visa_note", "seniority",
}

// Title-only records qualify through the identity keys.
var identityKeys = []string{"id", "job_id", "external_id", "title", "job_title", "position", "role"}

// Record is a loosely typed job-like object. It aliases the decoded JSON object
// it was found in.
type Record map[string]any

// Get returns the first non-empty value stored under one of keys. Keys are
// compared ignoring case, "_", "-" and spaces, so "jobTitle" matches "job_title".
func (r Record) Get(keys ...string) any {
	for _, key := range keys {
		if v, ok := r[key]; ok && !isEmpty(v) {
			return v
		}

		want := canonicalKey(key)
		for k, v := range r {
			if canonicalKey(k) == want && !isEmpty(v) {
				return v
			}
		}
	}

	return nil
}

// Text returns the first non-empty value among keys as trimmed text.
func (r Record) Text(keys ...string) string {
	for _, key := range keys {
		if text := utils.AsText(r.Get(key)); text != "" {
			return text
		}
	}
	return ""
}

// Has reports whether any of keys holds a non-empty value.
func (r Record) Has(keys ...string) bool {
	return r.Get(keys...) != nil
}

// Key is the dedupe key of the record: normalized title, company and link.
func (r Record) Key() string {
	return strings.Join([]string{
		utils.NormalizeToken(r.Text(TitleKeys...)),
		utils.NormalizeToken(r.Text(CompanyKeys...)),
		utils.NormalizeToken(r.Text(LinkKeys...)),
	}, "|")
}

// LooksLikeJob reports whether the record has a title plus a signal or identity field.
func (r Record) LooksLikeJob() bool {
	if r.Text(TitleKeys...) == "" {
		return false
	}
	return r.Has(signalKeys...) || r.Has(identityKeys...)
}

func canonicalKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(key)))
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

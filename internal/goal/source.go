package goal

import (
	"fmt"
	"net/url"
	"strings"
)

// Source is one external job-listing origin.
type Source string

const (
	LinkedIn   Source = "linkedin"
	GoogleJobs Source = "google"
	Indeed     Source = "indeed"
)

// DefaultSources are queried when nothing is configured.
var DefaultSources = []Source{LinkedIn, GoogleJobs, Indeed}

var sourceLabels = map[Source]string{
	LinkedIn:   "LinkedIn Jobs",
	GoogleJobs: "Google Jobs",
	Indeed:     "Indeed",
}

var sourceHints = map[Source]string{
	LinkedIn:   "Open each listing card to read the full description. Dismiss sign-in prompts instead of logging in.",
	GoogleJobs: "Use the Google Jobs results panel. Expand each card and prefer the direct employer apply link.",
	Indeed:     "Close cookie and sign-in popups. Skip sponsored listings that repeat organic results.",
}

// ParseSource accepts a source name case-insensitively, including labels like "LinkedIn Jobs".
func ParseSource(name string) (Source, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch {
	case normalized == "":
		return "", fmt.Errorf("source name is empty")
	case strings.Contains(normalized, "linkedin"):
		return LinkedIn, nil
	case strings.Contains(normalized, "google"):
		return GoogleJobs, nil
	case strings.Contains(normalized, "indeed"):
		return Indeed, nil
	default:
		return "", fmt.Errorf("unsupported source: %s", name)
	}
}

// ParseSources parses names, dropping repeats. Empty input yields DefaultSources.
func ParseSources(names []string) ([]Source, error) {
	if len(names) == 0 {
		return append([]Source(nil), DefaultSources...), nil
	}

	seen := make(map[Source]struct{}, len(names))
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		src, err := ParseSource(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources, nil
}

// Label is the human-readable source name.
func (s Source) Label() string {
	if label, ok := sourceLabels[s]; ok {
		return label
	}
	return string(s)
}

// SearchURL is the listing search page for keywords and location.
func (s Source) SearchURL(keywords, location string) string {
	switch s {
	case LinkedIn:
		return fmt.Sprintf("https://www.linkedin.com/jobs/search/?keywords=%s&location=%s",
			url.QueryEscape(keywords), url.QueryEscape(location))
	case GoogleJobs:
		return fmt.Sprintf("https://www.google.com/search?q=%s&ibp=htl;jobs",
			url.QueryEscape(keywords+" jobs in "+location))
	case Indeed:
		return fmt.Sprintf("https://www.indeed.com/jobs?q=%s&l=%s",
			url.QueryEscape(keywords), url.QueryEscape(location))
	default:
		return ""
	}
}

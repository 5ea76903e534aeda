package goal

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed goal.md
var goalTemplate string

// DefaultLimit caps the listings requested from one source.
const DefaultLimit = 10

// Goal is the instruction for one automation run.
type Goal struct {
	Source Source
	URL    string
	Text   string
}

// Builder renders goals for a fixed result count.
type Builder struct {
	limit int
}

func NewBuilder(limit int) *Builder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Builder{limit: limit}
}

// Build returns the search URL and goal text for src.
func (b *Builder) Build(c Criteria, src Source) Goal {
	text := strings.ReplaceAll(goalTemplate, "{{SOURCE_LABEL}}", src.Label())
	text = strings.ReplaceAll(text, "{{SOURCE_DIRECTIVES}}", strings.Join(directives(c, src), "\n"))
	text = strings.ReplaceAll(text, "{{CRITERIA}}", strings.Join(c.lines(), "\n"))
	text = strings.ReplaceAll(text, "{{LIMIT}}", strconv.Itoa(b.limit))

	return Goal{
		Source: src,
		URL:    src.SearchURL(c.Keywords(), c.Place()),
		Text:   strings.TrimSpace(text),
	}
}

func directives(c Criteria, src Source) []string {
	out := make([]string, 0, 3)

	if c.StrictSourceOnly {
		out = append(out, "Only collect listings hosted on "+src.Label()+". Do not follow links to other job boards.")
	}

	if hint, ok := sourceHints[src]; ok {
		out = append(out, hint)
	}

	if preferred, ok := c.Preferred(); ok && preferred != src {
		out = append(out, "The candidate prefers "+preferred.Label()+"; when a listing is also posted there, say so in important_notes.")
	}

	return out
}

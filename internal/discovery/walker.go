package discovery

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// MaxDepth bounds recursion into nested payloads.
const MaxDepth = 8

// Wrapper keys walked before any other child, in this order.
var containerKeys = []string{
	"resultJson", "result_json", "result", "results", "items", "listings",
	"jobs", "opportunities", "data", "output", "payload", "response",
	"content", "message", "text",
}

type walker struct {
	visited map[uintptr]struct{}
	seen    map[string]struct{}
	records []Record
}

// Discover returns every distinct job-like record found anywhere in payload.
// Stringified JSON is parsed along the way. Malformed input yields no records.
func Discover(payload any) []Record {
	w := &walker{
		visited: make(map[uintptr]struct{}),
		seen:    make(map[string]struct{}),
	}
	w.walk(payload, 0)

	if w.records == nil {
		return []Record{}
	}
	return w.records
}

func (w *walker) walk(node any, depth int) {
	if depth > MaxDepth {
		return
	}

	switch val := node.(type) {
	case string:
		if parsed, ok := parseEmbeddedJSON(val); ok {
			w.walk(parsed, depth+1)
		}
	case []any:
		for _, item := range val {
			w.walk(item, depth+1)
		}
	case []map[string]any:
		for _, item := range val {
			w.walk(item, depth+1)
		}
	case map[string]any:
		w.walkObject(val, depth)
	case Record:
		w.walkObject(val, depth)
	}
}

func (w *walker) walkObject(obj map[string]any, depth int) {
	if obj == nil {
		return
	}

	ptr := reflect.ValueOf(obj).Pointer()
	if _, ok := w.visited[ptr]; ok {
		return
	}
	w.visited[ptr] = struct{}{}

	record := Record(obj)
	if record.LooksLikeJob() {
		key := record.Key()
		if _, dup := w.seen[key]; !dup {
			w.seen[key] = struct{}{}
			w.records = append(w.records, record)
		}
	}

	followed := make(map[string]struct{}, len(containerKeys))
	for _, key := range containerKeys {
		child, ok := obj[key]
		if !ok {
			continue
		}
		followed[key] = struct{}{}
		w.walk(child, depth+1)
	}

	rest := make([]string, 0, len(obj))
	for key := range obj {
		if _, ok := followed[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	for _, key := range rest {
		switch obj[key].(type) {
		case string, []any, []map[string]any, map[string]any, Record:
			w.walk(obj[key], depth+1)
		}
	}
}

// parseEmbeddedJSON decodes a string that carries JSON, optionally wrapped in
// a markdown code fence or surrounded by prose.
func parseEmbeddedJSON(s string) (any, bool) {
	if !strings.ContainsAny(s, "{[") {
		return nil, false
	}

	s = stripCodeFence(s)

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		return parsed, true
	}

	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end <= start {
		return nil, false
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

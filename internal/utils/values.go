package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MaxListItems bounds every list produced by AsStringList.
const MaxListItems = 12

const listSeparators = "\n;|•,"

// AsText converts strings, numbers and booleans to trimmed text.
// Anything else, nil included, becomes an empty string.
func AsText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// AsStringList turns a list or a delimited scalar into at most MaxListItems
// non-empty trimmed strings.
func AsStringList(v any) []string {
	var parts []string

	switch val := v.(type) {
	case nil:
		return []string{}
	case []any:
		parts = make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, AsText(item))
		}
	case []string:
		parts = val
	default:
		parts = strings.FieldsFunc(AsText(val), func(r rune) bool {
			return strings.ContainsRune(listSeparators, r)
		})
	}

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		result = append(result, part)
		if len(result) == MaxListItems {
			break
		}
	}

	return result
}

// DedupeStrings drops case-insensitive repeats, keeping the first spelling seen.
func DedupeStrings(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	result := make([]string, 0, len(list))

	for _, item := range list {
		key := NormalizeToken(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result
}

// Limit returns at most n leading items of list.
func Limit(list []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}

// NormalizeToken is a comparison key. Never use it for display.
func NormalizeToken(v any) string {
	return strings.ToLower(AsText(v))
}

// ToNumber parses finite numbers and numeric-looking strings like "85%" or "1,200".
func ToNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		return parseNumber(val.String())
	case string:
		return parseNumber(val)
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}

	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if stripped == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

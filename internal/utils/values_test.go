package utils

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestAsText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect string
	}{
		{name: "trims strings", input: "  Go Developer ", expect: "Go Developer"},
		{name: "integer float", input: float64(92), expect: "92"},
		{name: "fraction", input: 0.75, expect: "0.75"},
		{name: "int", input: 7, expect: "7"},
		{name: "json number", input: json.Number("12.5"), expect: "12.5"},
		{name: "bool", input: true, expect: "true"},
		{name: "nil", input: nil, expect: ""},
		{name: "map", input: map[string]any{"a": 1}, expect: ""},
		{name: "list", input: []any{"a"}, expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AsText(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestAsStringList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect []string
	}{
		{
			name:   "list drops empty and non scalar items",
			input:  []any{" Go ", "", 3, map[string]any{}, nil, "SQL"},
			expect: []string{"Go", "3", "SQL"},
		},
		{
			name:   "scalar split on every separator",
			input:  "Go\nSQL; Docker | Kubernetes • AWS, GCP",
			expect: []string{"Go", "SQL", "Docker", "Kubernetes", "AWS", "GCP"},
		},
		{
			name:   "number scalar",
			input:  float64(5),
			expect: []string{"5"},
		},
		{
			name:   "nil",
			input:  nil,
			expect: []string{},
		},
		{
			name:   "only separators",
			input:  " ;,| ",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AsStringList(tt.input); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestAsStringListCapsLength(t *testing.T) {
	t.Parallel()

	scalar := strings.Repeat("x,", 30)
	if got := len(AsStringList(scalar)); got != MaxListItems {
		t.Fatalf("expected %d items from scalar, got %d", MaxListItems, got)
	}

	list := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		list = append(list, "item")
	}
	if got := len(AsStringList(list)); got != MaxListItems {
		t.Fatalf("expected %d items from list, got %d", MaxListItems, got)
	}
}

func TestDedupeStrings(t *testing.T) {
	t.Parallel()

	got := DedupeStrings([]string{"Go", "go", "SQL", " GO", "sql", "Docker"})
	expect := []string{"Go", "SQL", "Docker"}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected %q, got %q", expect, got)
	}
}

func TestLimit(t *testing.T) {
	t.Parallel()

	list := []string{"a", "b", "c"}
	if got := Limit(list, 2); len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got := Limit(list, 5); len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got := Limit(list, -1); len(got) != 0 {
		t.Fatalf("expected no items, got %d", len(got))
	}
}

func TestToNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		expect float64
		ok     bool
	}{
		{name: "float", input: 87.5, expect: 87.5, ok: true},
		{name: "int", input: 90, expect: 90, ok: true},
		{name: "numeric string", input: " 78 ", expect: 78, ok: true},
		{name: "percent string", input: "85%", expect: 85, ok: true},
		{name: "thousands separator", input: "1,200", expect: 1200, ok: true},
		{name: "negative", input: "-3", expect: -3, ok: true},
		{name: "words", input: "high", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "nan", input: math.NaN(), ok: false},
		{name: "infinite string", input: "Inf", ok: false},
		{name: "range does not parse", input: "80-100", ok: false},
		{name: "bool", input: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ToNumber(tt.input)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (value %v)", tt.ok, ok, got)
			}
			if ok && got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

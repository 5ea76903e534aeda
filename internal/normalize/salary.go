package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/opportunity-scout/internal/discovery"
	"github.com/spigell/opportunity-scout/internal/utils"
)

const (
	currency = `(?:[$€£₦]|\b(?:USD|EUR|GBP|NGN))`
	amount   = `\d[\d,.]*(?:\s?[kKmM]\b)?`
	period   = `(?:\s?(?:/|per)\s?(?:year|yr|annum|month|mo|week|wk|day|hour|hr))?`
)

var salaryPattern = regexp.MustCompile(
	`(?i)` + currency + `\s?` + amount +
		`(?:\s?(?:-|–|to)\s?` + currency + `?\s?` + amount + `)?` + period,
)

// ExtractSalary finds the first currency amount, optional range and period in text.
func ExtractSalary(text string) string {
	return strings.TrimSpace(salaryPattern.FindString(text))
}

func salary(r discovery.Record, summary string) string {
	v := r.Get(salaryKeys...)
	if text := utils.AsText(v); text != "" {
		return text
	}
	if obj, ok := v.(map[string]any); ok {
		if text := salaryFromObject(discovery.Record(obj)); text != "" {
			return text
		}
	}
	if found := ExtractSalary(summary); found != "" {
		return found
	}
	return DefaultSalary
}

func salaryFromObject(r discovery.Record) string {
	low := r.Text("min", "from", "minimum")
	high := r.Text("max", "to", "maximum")
	unit := r.Text("currency")

	var span string
	switch {
	case low != "" && high != "":
		span = fmt.Sprintf("%s-%s", low, high)
	case low != "":
		span = low
	case high != "":
		span = high
	default:
		return ""
	}

	return strings.TrimSpace(strings.Join([]string{unit, span, r.Text("period", "interval")}, " "))
}

package opportunity

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	IDField           = "ID"
	OrganizationField = "Organization"
	LinkField         = "Link"
)

type Opportunities struct {
	Items []*Opportunity `json:"items"`
}

func New(items ...*Opportunity) *Opportunities {
	return &Opportunities{Items: items}
}

func (o *Opportunities) Len() int {
	return len(o.Items)
}

func (o *Opportunities) FindByID(id string) *Opportunity {
	for _, item := range o.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (o *Opportunities) IDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (o *Opportunity) GetStringField(name string) string {
	switch name {
	case IDField:
		return o.ID
	case OrganizationField:
		return o.Organization
	case LinkField:
		return o.Link

	default:
		return ""
	}
}

// Exclude removes every item whose field matches one of targets, ignoring case,
// and returns the removed ids. Order of the remaining items is kept.
func (o *Opportunities) Exclude(name string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if target = strings.ToLower(strings.TrimSpace(target)); target != "" {
			set[target] = struct{}{}
		}
	}

	return o.ExcludeFunc(func(item *Opportunity) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(item.GetStringField(name)))]
		return ok
	})
}

// ExcludeFunc removes every item for which drop returns true and returns the
// removed ids.
func (o *Opportunities) ExcludeFunc(drop func(*Opportunity) bool) []string {
	var excluded []string
	kept := o.Items[:0]
	for _, item := range o.Items {
		if drop(item) {
			excluded = append(excluded, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	o.Items = kept
	return excluded
}

// ReportByOrganization groups a short summary of each item by organization.
func (o *Opportunities) ReportByOrganization() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range o.Items {
		entry := map[string]string{
			"title":    item.Title,
			"link":     item.Link,
			"location": item.Location,
			"salary":   item.Salary,
			"source":   item.Source,
		}
		if item.MatchScore != nil {
			entry["match_score"] = fmt.Sprintf("%.0f", *item.MatchScore)
		}
		if item.AI != nil {
			if item.AI.Error != "" {
				entry["ai_error"] = item.AI.Error
			} else {
				entry["ai_score"] = fmt.Sprintf("%.2f", item.AI.Score)
				entry["ai_reason"] = item.AI.Reason
			}
		}
		report[item.Organization] = append(report[item.Organization], entry)
	}
	return report
}

func (o *Opportunities) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "opportunities_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return "", err
	}
	return file.Name(), nil
}

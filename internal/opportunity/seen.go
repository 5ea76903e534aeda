package opportunity

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Seen is the content of the exclude file: opportunities a user already
// reviewed and does not want to see again.
type Seen struct {
	Items []*SeenOpportunity
}

type SeenOpportunity struct {
	ID           string
	Link         string
	Organization string
	Title        string
	SeenAt       time.Time
}

func (o *Opportunities) ToSeen(now time.Time) *Seen {
	seen := &Seen{}
	for _, item := range o.Items {
		seen.Items = append(seen.Items, &SeenOpportunity{
			ID:           item.ID,
			Link:         item.Link,
			Organization: item.Organization,
			Title:        item.Title,
			SeenAt:       now.UTC(),
		})
	}
	return seen
}

// GetSeenFromFile reads the exclude file. A missing or empty file is an empty list.
func GetSeenFromFile(path string) (*Seen, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Seen{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Seen{}, nil
	}

	var seen Seen
	if err := json.NewDecoder(file).Decode(&seen); err != nil {
		return nil, err
	}
	return &seen, nil
}

// Append adds entries whose id is not yet present.
func (s *Seen) Append(other *Seen) {
	known := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		known[item.ID] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := known[item.ID]; ok {
			continue
		}
		known[item.ID] = struct{}{}
		s.Items = append(s.Items, item)
	}
}

func (s *Seen) IDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (s *Seen) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

type fileRecord struct {
	UserID      string                   `json:"userId"`
	Source      string                   `json:"source"`
	ImportedAt  time.Time                `json:"importedAt"`
	Opportunity *opportunity.Opportunity `json:"opportunity"`
}

type fileContent struct {
	Items []*fileRecord `json:"items"`
}

// FileImporter keeps imported opportunities in a single JSON file.
type FileImporter struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileImporter(path string) (*FileImporter, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store file path is required")
	}
	return &FileImporter{path: path, now: time.Now}, nil
}

func (f *FileImporter) Import(_ context.Context, b Batch) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, err := f.read()
	if err != nil {
		return Stats{}, err
	}

	known := make(map[string]struct{}, len(content.Items))
	for _, item := range content.Items {
		known[item.UserID+"|"+item.Opportunity.ID] = struct{}{}
	}

	var stats Stats
	for _, opp := range b.Opportunities.Items {
		key := b.UserID + "|" + opp.ID
		if _, ok := known[key]; ok {
			stats.Duplicates++
			continue
		}
		known[key] = struct{}{}
		content.Items = append(content.Items, &fileRecord{
			UserID:      b.UserID,
			Source:      b.Source,
			ImportedAt:  f.now().UTC(),
			Opportunity: opp,
		})
		stats.Inserted++
	}

	if stats.Inserted == 0 {
		return stats, nil
	}
	return stats, f.write(content)
}

func (f *FileImporter) read() (*fileContent, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(strings.TrimSpace(string(data))) == 0) {
		return &fileContent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var content fileContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode store file %s: %w", f.path, err)
	}
	return &content, nil
}

func (f *FileImporter) write(content *fileContent) error {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

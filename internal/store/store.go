// Package store persists search results for a user.
package store

import (
	"context"

	"github.com/spigell/opportunity-scout/internal/opportunity"
)

const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Batch is one search result headed for storage.
type Batch struct {
	Source        string
	UserID        string
	Opportunities *opportunity.Opportunities
}

type Stats struct {
	Inserted   int
	Duplicates int
}

// Importer stores opportunities, skipping ones the user already has.
type Importer interface {
	Import(ctx context.Context, b Batch) (Stats, error)
}

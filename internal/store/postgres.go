package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// insertOpportunity expects a table
//
//	opportunities(id text, user_id text, source text, type text, title text,
//	    organization text, location text, link text, deadline text,
//	    match_score double precision, metadata jsonb, imported_at timestamptz)
const insertOpportunity = `INSERT INTO opportunities
	(id, user_id, source, type, title, organization, location, link, deadline, match_score, metadata, imported_at)
SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text, $9::text,
	$10::double precision, $11::jsonb, now()
WHERE NOT EXISTS (
	SELECT 1 FROM opportunities WHERE user_id = $2::text AND id = $1::text
)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresImporter inserts opportunities into Postgres. *pgxpool.Pool satisfies execer.
type PostgresImporter struct {
	db     execer
	logger *zap.Logger
}

func NewPostgresImporter(db execer, logger *zap.Logger) (*PostgresImporter, error) {
	if db == nil {
		return nil, errors.New("postgres connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresImporter{db: db, logger: logger}, nil
}

func (p *PostgresImporter) Import(ctx context.Context, b Batch) (Stats, error) {
	var stats Stats
	for _, opp := range b.Opportunities.Items {
		metadata, err := json.Marshal(opp)
		if err != nil {
			return stats, fmt.Errorf("marshal opportunity %s: %w", opp.ID, err)
		}

		tag, err := p.db.Exec(ctx, insertOpportunity,
			opp.ID, b.UserID, b.Source, string(opp.Type), opp.Title, opp.Organization,
			opp.Location, opp.Link, opp.Deadline, opp.MatchScore, string(metadata),
		)
		if err != nil {
			return stats, fmt.Errorf("insert opportunity %s: %w", opp.ID, err)
		}

		if tag.RowsAffected() == 0 {
			stats.Duplicates++
		} else {
			stats.Inserted++
		}
	}

	p.logger.Info("opportunities imported",
		zap.String("user_id", b.UserID),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}

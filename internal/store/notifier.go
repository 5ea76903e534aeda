package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultChannel    = "EVENT_OPPORTUNITIES_IMPORTED"
	eventTypeImported = "OPPORTUNITIES_IMPORTED"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Notifier publishes an event after the wrapped importer stored something new.
// Publish failures are logged and do not fail the import.
type Notifier struct {
	next    Importer
	rdb     publisher
	channel string
	logger  *zap.Logger
}

func NewNotifier(next Importer, rdb publisher, channel string, logger *zap.Logger) (*Notifier, error) {
	if next == nil || rdb == nil {
		return nil, errors.New("importer and redis client are required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{next: next, rdb: rdb, channel: channel, logger: logger}, nil
}

func (n *Notifier) Import(ctx context.Context, b Batch) (Stats, error) {
	stats, err := n.next.Import(ctx, b)
	if err != nil || stats.Inserted == 0 {
		return stats, err
	}

	event, _ := json.Marshal(map[string]any{
		"type":     eventTypeImported,
		"userId":   b.UserID,
		"source":   b.Source,
		"inserted": stats.Inserted,
	})
	if err := n.rdb.Publish(ctx, n.channel, event).Err(); err != nil {
		n.logger.Warn("publish import event failed", zap.String("channel", n.channel), zap.Error(err))
	}

	return stats, nil
}

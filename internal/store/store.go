package store

import (
	"context"
	"time"
)

// Record is one persisted message. The log is append-only: records are
// never rewritten, and the on-disk format is stable across restarts.
type Record struct {
	ID        int64
	Room      string
	Sender    string
	Body      string
	FileName  string
	CreatedAt time.Time
}

// Store is the durable message log.
type Store interface {
	// Append writes one record and fills in its ID.
	Append(ctx context.Context, rec *Record) error
	// Recent returns up to limit records in chronological order. An empty
	// room matches all rooms.
	Recent(ctx context.Context, room string, limit int) ([]Record, error)
	Close() error
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rozmowa/relay-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	body       TEXT NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, id);
`

// Log implements store.Store on an append-only SQLite table.
type Log struct {
	db *sql.DB
}

// New opens (and if needed creates) the message log at dbPath.
// Use ":memory:" for tests.
func New(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Append inserts one record and fills in its ID.
func (l *Log) Append(ctx context.Context, rec *store.Record) error {
	query := `
		INSERT INTO messages (room, sender, body, file_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := l.db.ExecContext(ctx, query, rec.Room, rec.Sender, rec.Body, rec.FileName, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// Recent returns up to limit records in chronological order. An empty
// room matches all rooms.
func (l *Log) Recent(ctx context.Context, room string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, room, sender, body, file_name, created_at
		FROM messages
		WHERE (? = '' OR room = ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, room, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.ID, &rec.Room, &rec.Sender, &rec.Body, &rec.FileName, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

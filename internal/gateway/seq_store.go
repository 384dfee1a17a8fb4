package gateway

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSequenceStore hands out per-day receipt sequence numbers backed
// by a local database, so sequences survive process restarts and reset
// only with the day key.
type SQLiteSequenceStore struct {
	db *sql.DB
}

const seqSchema = `
CREATE TABLE IF NOT EXISTS receipt_seq (
	day TEXT PRIMARY KEY,
	seq INTEGER NOT NULL
);`

func NewSQLiteSequenceStore(path string) (*SQLiteSequenceStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sequence store: %w", err)
	}
	if _, err := db.Exec(seqSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence store: %w", err)
	}
	return &SQLiteSequenceStore{db: db}, nil
}

// Next reserves and returns the next sequence for the given day key.
func (s *SQLiteSequenceStore) Next(ctx context.Context, day string) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO receipt_seq (day, seq) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET seq = seq + 1
		RETURNING seq`, day).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", day, err)
	}
	return seq, nil
}

func (s *SQLiteSequenceStore) Close() error {
	return s.db.Close()
}

package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadenzadl/cadenza/src/features/downloading"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore is a SQLite implementation of the HistoryStore interface.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore creates a new SqliteStore.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS download_history (
			id TEXT PRIMARY KEY,
			artist TEXT NOT NULL,
			album TEXT NOT NULL,
			status TEXT NOT NULL,
			completed_tracks INTEGER NOT NULL,
			total_tracks INTEGER NOT NULL,
			error TEXT,
			finished_at TEXT NOT NULL
		);
	`)
	return err
}

// Record stores the terminal outcome of one processed item.
func (s *SqliteStore) Record(ctx context.Context, entry downloading.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO download_history
			(id, artist, album, status, completed_tracks, total_tracks, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Artist, entry.Album, string(entry.Status),
		entry.CompletedTracks, entry.TotalTracks, entry.Error,
		entry.FinishedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// List returns the most recent entries, newest first.
func (s *SqliteStore) List(ctx context.Context, limit int) ([]downloading.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, artist, album, status, completed_tracks, total_tracks, error, finished_at
		FROM download_history
		ORDER BY finished_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []downloading.HistoryEntry
	for rows.Next() {
		var entry downloading.HistoryEntry
		var status, finishedAt string
		if err := rows.Scan(&entry.ID, &entry.Artist, &entry.Album, &status,
			&entry.CompletedTracks, &entry.TotalTracks, &entry.Error, &finishedAt); err != nil {
			return nil, err
		}
		entry.Status = downloading.Status(status)
		entry.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

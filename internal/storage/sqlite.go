package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default Store, following the same upsert-then-read
// shape as the teacher's internal/storage/sqlite.SQLiteStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a snapshot database at path. Use
// ":memory:" for an ephemeral, process-local store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// SaveSnapshot upserts the encoded state under id.
func (s *SQLiteStore) SaveSnapshot(id string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (id, data, updated_at)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, id, data)
	if err != nil {
		return fmt.Errorf("storage: save snapshot %q: %w", id, err)
	}
	return nil
}

// LoadSnapshot returns the last saved state for id, or ErrNotFound.
func (s *SQLiteStore) LoadSnapshot(id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM snapshots WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load snapshot %q: %w", id, err)
	}
	return data, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

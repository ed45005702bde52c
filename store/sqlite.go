package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single kv table. It is a drop-in
// alternative to FileStore for deployments that prefer one database
// file over a directory of JSON documents.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			key       TEXT PRIMARY KEY,
			data      BLOB NOT NULL,
			updatedAt REAL NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(key string) ([]byte, bool, error) {
	row := s.db.QueryRow(`SELECT data FROM documents WHERE key = ?`, key)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scan document %q: %w", key, err)
	}
	return data, true, nil
}

func (s *SQLiteStore) Save(key string, data []byte) error {
	now := float64(time.Now().UnixNano()) / 1e9
	_, err := s.db.Exec(`
		INSERT INTO documents (key, data, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updatedAt = excluded.updatedAt
	`, key, data, now)
	if err != nil {
		return fmt.Errorf("save document %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete document %q: %w", key, err)
	}
	return nil
}

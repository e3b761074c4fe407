// Package sqlite provides a snapshot.Store backed by a local SQLite file,
// giving snapshots durability across process restarts without an external
// service.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/crewsim/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	token      TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	created_at TEXT NOT NULL
);`

// Store persists snapshots in a single SQLite table keyed by token.
type Store struct {
	db *sql.DB
}

var _ snapshot.Store = (*Store)(nil)

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save stores (or overwrites) the snapshot bytes for the token.
func (s *Store) Save(token string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (token, data, created_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		token, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", token, err)
	}
	return nil
}

// Load returns the snapshot bytes for the token or snapshot.ErrNotFound.
func (s *Store) Load(token string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE token = ?`, token).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", token, err)
	}
	return data, nil
}

// List returns all stored tokens in lexical order.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT token FROM snapshots ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Delete removes the snapshot or returns snapshot.ErrNotFound.
func (s *Store) Delete(token string) error {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", token, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return snapshot.ErrNotFound
	}
	return nil
}

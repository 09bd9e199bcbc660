// Package store implements the Store (C4): a SQLite-backed adjacency-list
// graph with content-hash-gated idempotent upserts and schema migrations.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cmmlang/cx/internal/cmm"
)

// Store owns the single SQLite connection backing the CMM graph.
type Store struct {
	db   *sql.DB
	path string
}

// Port is the capability set the orchestrator depends on. It exists so a
// future in-memory implementation can substitute for tests without the
// orchestrator depending on a concrete type.
type Port interface {
	UpsertFile(path string, content []byte, model *cmm.FileModel) error
	GetFile(path string) (*cmm.FileModel, error)
	GetHierarchicalIntent() ([]*cmm.Entity, error)
	SaveVerifiedRelation(fromID, toID string, relType cmm.RelType) error
	SaveTypeHint(entityID, signature string) error
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema is current.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	var version string
	err := s.db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'version'`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec(`INSERT INTO schema_meta(key, value) VALUES ('version', ?)`, currentSchemaVersion)
		return err
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	default:
		if version != currentSchemaVersion {
			return Migrate(s, version, currentSchemaVersion)
		}
		return nil
	}
}

// Path returns the database file path this Store was opened with.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying connection for callers that need raw SQL
// access (migrations, tests).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

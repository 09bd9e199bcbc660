package store

import (
	"fmt"
	"strings"
)

// ErrUnknownMigration is returned when no migration path is registered for
// a (from, to) schema version pair.
var ErrUnknownMigration = fmt.Errorf("no migration path registered")

// migration describes one step in the schema's version history. apply runs
// against an already-open Store whose schema_meta row still reads the old
// version and must leave the schema at the new version; Migrate records the
// new version in schema_meta after apply returns.
type migration struct {
	from, to string
	apply    func(s *Store) error
}

// migrations is the catalogue of known schema transitions, in order.
// v0.2 and v0.3 describe schema shapes emitted by earlier scan runs before
// schema_meta existed as a table (version was tracked only in a PRAGMA
// user_version); v0.4 introduces schema_meta and the seq ordering column.
var migrations = []migration{
	{from: "v0.2", to: "v0.3", apply: migrateV2toV3},
	{from: "v0.3", to: "v0.4", apply: migrateV3toV4},
}

// Migrate walks the migration catalogue from "from" to "to", applying each
// intermediate step in order. It refuses silently-lossy jumps: a (from, to)
// pair with no registered path returns ErrUnknownMigration rather than
// guessing.
func Migrate(s *Store, from, to string) error {
	if from == to {
		return nil
	}

	path := findPath(from, to)
	if path == nil {
		return fmt.Errorf("migrating schema %s -> %s: %w", from, to, ErrUnknownMigration)
	}

	for _, step := range path {
		if err := step.apply(s); err != nil {
			return fmt.Errorf("migrating schema %s -> %s: %w", step.from, step.to, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_meta SET value = ? WHERE key = 'version'`, step.to); err != nil {
			return fmt.Errorf("recording schema version %s: %w", step.to, err)
		}
	}

	return nil
}

// findPath returns the ordered chain of migrations from "from" to "to", or
// nil if no such chain exists in the catalogue.
func findPath(from, to string) []migration {
	var path []migration
	current := from
	for current != to {
		step, ok := nextStep(current)
		if !ok {
			return nil
		}
		path = append(path, step)
		current = step.to
	}
	return path
}

func nextStep(from string) (migration, bool) {
	for _, m := range migrations {
		if m.from == from {
			return m, true
		}
	}
	return migration{}, false
}

// migrateV2toV3 adds the symbol_hash column that v0.3 introduced for the
// symbol mapper; additive DDL, safe to run on every open.
func migrateV2toV3(s *Store) error {
	if _, err := s.db.Exec(`ALTER TABLE entities ADD COLUMN symbol_hash TEXT`); err != nil && !isDuplicateColumn(err) {
		return err
	}
	return nil
}

// migrateV3toV4 introduces schema_meta, the seq ordering column, and the
// relations uniqueness constraint. Because SQLite can't add a UNIQUE
// constraint to an existing table with ALTER TABLE, this rebuilds the
// relations table from its current contents rather than altering in place.
func migrateV3toV4(s *Store) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`ALTER TABLE entities ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`); err != nil && !isDuplicateColumn(err) {
		return err
	}

	if _, err := tx.Exec(`
		CREATE TABLE relations_v4 (
			from_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
			to_id TEXT REFERENCES entities(id) ON DELETE SET NULL,
			to_name TEXT NOT NULL,
			rel_type TEXT NOT NULL,
			is_verified INTEGER NOT NULL DEFAULT 0,
			UNIQUE(from_id, to_name, rel_type)
		)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO relations_v4(from_id, to_id, to_name, rel_type, is_verified)
		SELECT from_id, to_id, to_name, rel_type, is_verified FROM relations`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE relations`); err != nil {
		return err
	}
	if _, err := tx.Exec(`ALTER TABLE relations_v4 RENAME TO relations`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_id)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id)`); err != nil {
		return err
	}

	return tx.Commit()
}

// isDuplicateColumn reports whether err is SQLite's "duplicate column name"
// error, which modernc.org/sqlite surfaces as a plain error string rather
// than a typed sentinel.
func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

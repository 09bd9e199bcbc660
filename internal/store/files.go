package store

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cmmlang/cx/internal/cmm"
)

// maxNestingDepth bounds recursive entity insertion. Trees deeper than this
// are logged and truncated rather than rejected.
const maxNestingDepth = 100

func hashContent(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// UpsertFile implements the Store's content-hash-gated idempotent upsert.
func (s *Store) UpsertFile(path string, content []byte, model *cmm.FileModel) error {
	hash := hashContent(content)
	now := time.Now().UTC().Format(time.RFC3339)

	var existingHash string
	err := s.db.QueryRow(`SELECT file_hash FROM files WHERE file_path = ?`, path).Scan(&existingHash)
	switch {
	case err == sql.ErrNoRows:
		return s.insertFile(path, hash, now, model)
	case err != nil:
		return fmt.Errorf("upsert_file %s: %w", path, err)
	case existingHash == hash:
		return nil // idempotent no-op
	default:
		return s.reinsertFile(path, hash, now, model)
	}
}

func (s *Store) insertFile(path, hash, now string, model *cmm.FileModel) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert_file %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO files(file_path, file_hash, schema_version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		path, hash, cmm.SchemaVersion, now, now,
	); err != nil {
		return fmt.Errorf("upsert_file %s: inserting file row: %w", path, err)
	}

	if err := insertEntities(tx, path, model.Entities, "", now); err != nil {
		return fmt.Errorf("upsert_file %s: %w", path, err)
	}

	return tx.Commit()
}

func (s *Store) reinsertFile(path, hash, now string, model *cmm.FileModel) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("upsert_file %s: %w", path, err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT entity_id FROM metadata WHERE file_path = ?`, path)
	if err != nil {
		return fmt.Errorf("upsert_file %s: finding owned entities: %w", path, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("upsert_file %s: %w", path, err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM entities WHERE id = ?`, id); err != nil {
			return fmt.Errorf("upsert_file %s: deleting stale entity %s: %w", path, id, err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE files SET file_hash = ?, schema_version = ?, updated_at = ? WHERE file_path = ?`,
		hash, cmm.SchemaVersion, now, path,
	); err != nil {
		return fmt.Errorf("upsert_file %s: updating file row: %w", path, err)
	}

	if err := insertEntities(tx, path, model.Entities, "", now); err != nil {
		return fmt.Errorf("upsert_file %s: %w", path, err)
	}

	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertEntities recursively inserts entities and their metadata and
// relations, depth-limited to maxNestingDepth. seq is assigned in
// depth-first traversal order so GetFile/GetHierarchicalIntent can
// reconstruct each parent's children in extractor order.
func insertEntities(tx execer, path string, entities []*cmm.Entity, parentID string, now string) error {
	seq := 0
	return insertEntitiesDepth(tx, path, entities, parentID, now, 0, &seq)
}

func insertEntitiesDepth(tx execer, path string, entities []*cmm.Entity, parentID string, now string, depth int, seq *int) error {
	if depth >= maxNestingDepth {
		if len(entities) > 0 {
			// Deeper trees are logged and truncated, not errored.
			log.Printf("store: truncating entity tree for %s at depth %d", path, depth)
		}
		return nil
	}

	seen := map[string]bool{}

	for _, ent := range entities {
		id := uuid.NewString()
		ent.ID = id

		var parent sql.NullString
		if parentID != "" {
			parent = sql.NullString{String: parentID, Valid: true}
		}

		if _, err := tx.Exec(
			`INSERT INTO entities(id, name, kind, visibility, parent_id, line_start, line_end, symbol_hash, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ent.Name, string(ent.Kind), string(ent.Visibility), parent, ent.LineStart, ent.LineEnd,
			nullable(ent.SymbolHash), *seq,
		); err != nil {
			return fmt.Errorf("inserting entity %s: %w", ent.Name, err)
		}
		*seq++

		if _, err := tx.Exec(
			`INSERT INTO metadata(entity_id, file_path, raw_docstring, signature, role, method_kind, type_hint, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, path, nullable(ent.Meta.RawDocstring), nullable(ent.Meta.Signature), string(ent.Meta.Role),
			nullableMethodKind(ent.Meta.MethodKind), nullable(ent.Meta.TypeHint), now, now,
		); err != nil {
			return fmt.Errorf("inserting metadata for %s: %w", ent.Name, err)
		}

		for _, rel := range ent.Relations {
			key := rel.ToName + "|" + string(rel.RelType)
			if seen[id+key] {
				continue // duplicate relation emission within this entity: drop silently
			}
			seen[id+key] = true
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO relations(from_id, to_id, to_name, rel_type, is_verified) VALUES (?, NULL, ?, ?, 0)`,
				id, rel.ToName, string(rel.RelType),
			); err != nil {
				return fmt.Errorf("inserting relation %s->%s: %w", ent.Name, rel.ToName, err)
			}
		}

		if err := insertEntitiesDepth(tx, path, ent.Children, id, now, depth+1, seq); err != nil {
			return err
		}
	}

	return nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableMethodKind(k cmm.MethodKind) sql.NullString {
	return nullable(string(k))
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/cmmlang/cx/internal/cmm"
)

// SaveVerifiedRelation marks a previously-candidate relation as resolved:
// it looks up the target entity's name, finds the matching relation row
// (verified or not) by the exact (from_id, to_name, rel_type) triple, and
// fills in to_id and is_verified. If no candidate row matches (the resolver
// found a target the extractor never recorded a call site for), it
// inserts a fresh verified relation instead of silently dropping the
// resolution. If the target entity does not exist, it returns nil without
// writing anything.
func (s *Store) SaveVerifiedRelation(fromID, toID string, relType cmm.RelType) error {
	var toName string
	if err := s.db.QueryRow(`SELECT name FROM entities WHERE id = ?`, toID).Scan(&toName); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("save_verified_relation %s->%s: %w", fromID, toID, err)
	}

	res, err := s.db.Exec(
		`UPDATE relations SET to_id = ?, is_verified = 1 WHERE from_id = ? AND rel_type = ? AND to_name = ?`,
		toID, fromID, string(relType), toName,
	)
	if err != nil {
		return fmt.Errorf("save_verified_relation %s->%s: %w", fromID, toID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save_verified_relation %s->%s: %w", fromID, toID, err)
	}
	if n > 0 {
		return nil
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO relations(from_id, to_id, to_name, rel_type, is_verified) VALUES (?, ?, ?, ?, 1)`,
		fromID, toID, toName, string(relType),
	); err != nil {
		return fmt.Errorf("save_verified_relation %s->%s: %w", fromID, toID, err)
	}
	return nil
}

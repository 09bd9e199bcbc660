package store

import (
	"database/sql"
	"fmt"

	"github.com/cmmlang/cx/internal/cmm"
)

type entityRow struct {
	id, name, kind, visibility string
	parentID                   sql.NullString
	lineStart, lineEnd         int
	symbolHash                 sql.NullString
}

type metaRow struct {
	rawDocstring, signature, typeHint sql.NullString
	role                              string
	methodKind                        sql.NullString
}

// GetFile reconstructs the entity tree owned by a single file, ordered by
// insertion sequence within each parent.
func (s *Store) GetFile(path string) (*cmm.FileModel, error) {
	rows, err := s.db.Query(`
		SELECT e.id, e.name, e.kind, e.visibility, e.parent_id, e.line_start, e.line_end, e.symbol_hash
		FROM entities e
		JOIN metadata m ON m.entity_id = e.id
		WHERE m.file_path = ?
		ORDER BY e.seq ASC`, path)
	if err != nil {
		return nil, fmt.Errorf("get_file %s: %w", path, err)
	}
	defer rows.Close()

	byID := map[string]*cmm.Entity{}
	var order []string
	parentOf := map[string]string{}

	for rows.Next() {
		var r entityRow
		if err := rows.Scan(&r.id, &r.name, &r.kind, &r.visibility, &r.parentID, &r.lineStart, &r.lineEnd, &r.symbolHash); err != nil {
			return nil, fmt.Errorf("get_file %s: %w", path, err)
		}
		ent := &cmm.Entity{
			ID:         r.id,
			Name:       r.name,
			Kind:       cmm.Kind(r.kind),
			Visibility: cmm.Visibility(r.visibility),
			LineStart:  r.lineStart,
			LineEnd:    r.lineEnd,
			SymbolHash: r.symbolHash.String,
		}
		byID[r.id] = ent
		order = append(order, r.id)
		if r.parentID.Valid {
			parentOf[r.id] = r.parentID.String
			ent.ParentID = r.parentID.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_file %s: %w", path, err)
	}

	if err := s.attachMetadata(byID); err != nil {
		return nil, fmt.Errorf("get_file %s: %w", path, err)
	}
	if err := s.attachRelations(byID); err != nil {
		return nil, fmt.Errorf("get_file %s: %w", path, err)
	}

	var roots []*cmm.Entity
	for _, id := range order {
		ent := byID[id]
		if parent, ok := parentOf[id]; ok {
			if p, found := byID[parent]; found {
				p.Children = append(p.Children, ent)
				continue
			}
		}
		roots = append(roots, ent)
	}

	return &cmm.FileModel{SchemaVersion: cmm.SchemaVersion, Entities: roots}, nil
}

// GetHierarchicalIntent returns the full entity forest across every file,
// rooted at entities with no parent. Only verified relations are attached.
func (s *Store) GetHierarchicalIntent() ([]*cmm.Entity, error) {
	rows, err := s.db.Query(`
		SELECT id, name, kind, visibility, parent_id, line_start, line_end, symbol_hash
		FROM entities
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("get_hierarchical_intent: %w", err)
	}
	defer rows.Close()

	byID := map[string]*cmm.Entity{}
	var order []string
	parentOf := map[string]string{}

	for rows.Next() {
		var r entityRow
		if err := rows.Scan(&r.id, &r.name, &r.kind, &r.visibility, &r.parentID, &r.lineStart, &r.lineEnd, &r.symbolHash); err != nil {
			return nil, fmt.Errorf("get_hierarchical_intent: %w", err)
		}
		ent := &cmm.Entity{
			ID:         r.id,
			Name:       r.name,
			Kind:       cmm.Kind(r.kind),
			Visibility: cmm.Visibility(r.visibility),
			LineStart:  r.lineStart,
			LineEnd:    r.lineEnd,
			SymbolHash: r.symbolHash.String,
		}
		byID[r.id] = ent
		order = append(order, r.id)
		if r.parentID.Valid {
			parentOf[r.id] = r.parentID.String
			ent.ParentID = r.parentID.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_hierarchical_intent: %w", err)
	}

	if err := s.attachMetadata(byID); err != nil {
		return nil, fmt.Errorf("get_hierarchical_intent: %w", err)
	}
	if err := s.attachRelations(byID); err != nil {
		return nil, fmt.Errorf("get_hierarchical_intent: %w", err)
	}
	for _, ent := range byID {
		var verified []cmm.Relation
		for _, rel := range ent.Relations {
			if rel.IsVerified {
				verified = append(verified, rel)
			}
		}
		ent.Relations = verified
	}

	var roots []*cmm.Entity
	for _, id := range order {
		ent := byID[id]
		if parent, ok := parentOf[id]; ok {
			if p, found := byID[parent]; found {
				p.Children = append(p.Children, ent)
				continue
			}
		}
		roots = append(roots, ent)
	}
	return roots, nil
}

func (s *Store) attachMetadata(byID map[string]*cmm.Entity) error {
	rows, err := s.db.Query(`SELECT entity_id, file_path, raw_docstring, signature, role, method_kind, type_hint FROM metadata`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, filePath string
		var m metaRow
		if err := rows.Scan(&id, &filePath, &m.rawDocstring, &m.signature, &m.role, &m.methodKind, &m.typeHint); err != nil {
			return err
		}
		ent, ok := byID[id]
		if !ok {
			continue
		}
		ent.Meta = cmm.Metadata{
			FilePath:     filePath,
			RawDocstring: m.rawDocstring.String,
			Signature:    m.signature.String,
			Role:         cmm.Role(m.role),
			MethodKind:   cmm.MethodKind(m.methodKind.String),
			TypeHint:     m.typeHint.String,
		}
	}
	return rows.Err()
}

func (s *Store) attachRelations(byID map[string]*cmm.Entity) error {
	rows, err := s.db.Query(`SELECT from_id, to_id, to_name, rel_type, is_verified FROM relations`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fromID string
		var toID sql.NullString
		var toName, relType string
		var verified bool
		if err := rows.Scan(&fromID, &toID, &toName, &relType, &verified); err != nil {
			return err
		}
		ent, ok := byID[fromID]
		if !ok {
			continue
		}
		ent.Relations = append(ent.Relations, cmm.Relation{
			ToID:       toID.String,
			ToName:     toName,
			RelType:    cmm.RelType(relType),
			IsVerified: verified,
		})
	}
	return rows.Err()
}

// SaveTypeHint records the LSP-resolved type signature for an entity,
// produced during the Pass 2 semantic resolution walk.
func (s *Store) SaveTypeHint(entityID, signature string) error {
	res, err := s.db.Exec(`UPDATE metadata SET type_hint = ? WHERE entity_id = ?`, signature, entityID)
	if err != nil {
		return fmt.Errorf("save_type_hint %s: %w", entityID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save_type_hint %s: %w", entityID, err)
	}
	if n == 0 {
		return fmt.Errorf("save_type_hint %s: no such entity", entityID)
	}
	return nil
}

// Package symbols implements the Symbol mapper (C6): it correlates LSP
// locations to CMM entity IDs and generates the symbol_hash used for
// deduplication across scans.
package symbols

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/cmmlang/cx/internal/cmm"
	"github.com/cmmlang/cx/internal/store"
)

type entityLoc struct {
	id                 string
	lineStart, lineEnd int
}

// Mapper caches per-file entity spans and generated hashes so repeated
// lookups during a single scan avoid redundant database queries.
type Mapper struct {
	db store.Port

	mu        sync.Mutex
	fileCache map[string][]entityLoc
	hashCache map[string]string
}

// New builds a Mapper over anything satisfying store.Port.
func New(db store.Port) *Mapper {
	return &Mapper{
		db:        db,
		fileCache: map[string][]entityLoc{},
		hashCache: map[string]string{},
	}
}

// URIToPath strips the "file://" scheme from an LSP URI. It does not
// percent-decode, matching the convention used when URIs are constructed
// from plain file paths in this codebase.
func URIToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// GenerateSymbolHash returns the SHA-256 hex digest of "fileURI#qualifiedName",
// caching by that same key.
func (m *Mapper) GenerateSymbolHash(fileURI, qualifiedName string) string {
	key := fileURI + "#" + qualifiedName

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hashCache[key]; ok {
		return h
	}
	sum := sha256.Sum256([]byte(key))
	h := hex.EncodeToString(sum[:])
	m.hashCache[key] = h
	return h
}

// FindEnclosingEntity returns the id of the smallest entity in filePath
// whose [line_start, line_end] span contains line, or "" if none does.
// Ties (equal span) resolve to whichever entity comes first in the file's
// stored depth-first insertion order.
func (m *Mapper) FindEnclosingEntity(filePath string, line int) (string, error) {
	entities, err := m.loadFileEntities(filePath)
	if err != nil {
		return "", err
	}

	best := ""
	bestSpan := -1
	for _, e := range entities {
		if e.lineStart <= line && line <= e.lineEnd {
			span := e.lineEnd - e.lineStart
			if bestSpan == -1 || span < bestSpan {
				best = e.id
				bestSpan = span
			}
		}
	}
	return best, nil
}

// FindByLocation resolves an LSP-returned location to an entity id using
// the same smallest-enclosing-span rule as FindEnclosingEntity.
func (m *Mapper) FindByLocation(fileURI string, line int) (string, error) {
	path := URIToPath(fileURI)
	return m.FindEnclosingEntity(path, line)
}

// ClearFileCache drops the cached entity spans for a file, forcing the next
// lookup to reload from the store. Callers should invoke it after a file is
// re-scanned within the same process.
func (m *Mapper) ClearFileCache(filePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fileCache, filePath)
}

func (m *Mapper) loadFileEntities(filePath string) ([]entityLoc, error) {
	m.mu.Lock()
	if cached, ok := m.fileCache[filePath]; ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	model, err := m.db.GetFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading entities for %s: %w", filePath, err)
	}

	var flat []entityLoc
	for _, root := range model.Entities {
		flattenEntity(root, &flat)
	}

	m.mu.Lock()
	m.fileCache[filePath] = flat
	m.mu.Unlock()

	return flat, nil
}

func flattenEntity(ent *cmm.Entity, out *[]entityLoc) {
	*out = append(*out, entityLoc{id: ent.ID, lineStart: ent.LineStart, lineEnd: ent.LineEnd})
	for _, child := range ent.Children {
		flattenEntity(child, out)
	}
}

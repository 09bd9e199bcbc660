package store

// schemaSQL is the DDL for a fresh database at the current schema version.
// Foreign keys are enabled per-connection in Open, not here, since
// PRAGMA foreign_keys is a per-connection setting in SQLite.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	file_path TEXT PRIMARY KEY,
	file_hash TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	visibility TEXT NOT NULL,
	parent_id TEXT REFERENCES entities(id) ON DELETE CASCADE,
	line_start INTEGER NOT NULL,
	line_end INTEGER NOT NULL,
	symbol_hash TEXT,
	seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_parent ON entities(parent_id);

CREATE TABLE IF NOT EXISTS metadata (
	entity_id TEXT PRIMARY KEY REFERENCES entities(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	raw_docstring TEXT,
	signature TEXT,
	role TEXT NOT NULL,
	method_kind TEXT,
	type_hint TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metadata_file_path ON metadata(file_path);

CREATE TABLE IF NOT EXISTS relations (
	from_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	to_id TEXT REFERENCES entities(id) ON DELETE SET NULL,
	to_name TEXT NOT NULL,
	rel_type TEXT NOT NULL,
	is_verified INTEGER NOT NULL DEFAULT 0,
	UNIQUE(from_id, to_name, rel_type)
);

CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_id);
CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_id);
`

const currentSchemaVersion = "v0.4"

// CurrentSchemaVersion returns the schema version this build of the store
// reads and writes.
func CurrentSchemaVersion() string {
	return currentSchemaVersion
}

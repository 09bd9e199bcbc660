// Package cmm defines the Canonical Metadata Model: the in-memory shape of
// extracted entities, their metadata, and the relations between them.
package cmm

import "time"

// SchemaVersion tags the shape of a FileModel as produced by the current
// extractor. The store stamps it on each file row; whether a migration is
// needed is decided from the store's own schema_meta version, not from it.
const SchemaVersion = "v0.4"

// Kind is the declaration kind of an entity.
type Kind string

const (
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
)

// Visibility follows Python naming convention, not language access
// modifiers.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Role is the abstract role of a method or class, derived from naming
// convention by the normalizer.
type Role string

const (
	RoleConstructor Role = "Constructor"
	RoleDisplay     Role = "Display"
	RoleEquality    Role = "Equality"
	RoleComparison  Role = "Comparison"
	RoleCollection  Role = "Collection"
	RoleContext     Role = "Context"
	RoleCallable    Role = "Callable"
	RoleDestructor  Role = "Destructor"
	RoleMethod      Role = "Method"
	RoleClass       Role = "Class"
)

// MethodKind distinguishes instance, class, and static methods. There is no
// fourth kind: a @property-decorated method normalizes to instance.
type MethodKind string

const (
	MethodInstance MethodKind = "instance"
	MethodClass    MethodKind = "class"
	MethodStatic   MethodKind = "static"
)

// RelType is the kind of a directed relation between two entities.
type RelType string

const (
	RelCalls      RelType = "calls"
	RelInherits   RelType = "inherits"
	RelDependsOn  RelType = "depends_on" // reserved; never emitted by the extractor
)

// Entity is a named declaration in source, per the data model's Entity
// table. ID is assigned by the store on insert, not by the extractor.
type Entity struct {
	ID         string
	Name       string
	Kind       Kind
	Visibility Visibility
	ParentID   string // parent's ID as read back from the store; empty in extractor output, where nesting is carried by Children
	LineStart  int
	LineEnd    int
	SymbolHash string

	// Metadata, carried alongside the entity until the store splits it into
	// its own row.
	Meta Metadata

	// Children is this entity's extractor-order list of nested entities
	// (methods under a class). Not persisted directly; the store derives
	// ParentID linkage from this tree when inserting.
	Children []*Entity

	// Relations originate from this entity.
	Relations []Relation
}

// Metadata is the per-entity annotation row.
type Metadata struct {
	FilePath     string
	RawDocstring string
	Signature    string
	Role         Role
	MethodKind   MethodKind
	TypeHint     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Relation is a directed, typed edge from a known entity to a name that may
// or may not yet be resolved to an entity ID.
type Relation struct {
	ToID       string // empty until resolved
	ToName     string
	RelType    RelType
	IsVerified bool
}

// FileRecord is the store's per-file bookkeeping row.
type FileRecord struct {
	FilePath      string
	FileHash      string
	SchemaVersion string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FileModel is everything the extractor produces for one file.
type FileModel struct {
	SchemaVersion string
	Entities      []*Entity // top-level entities; methods nest under their class in Children
}

// CallSite is a single call-target occurrence suitable for an LSP
// textDocument/definition request.
type CallSite struct {
	Name      string
	Line      int
	Character int
	FileURI   string
	FilePath  string
}

package symbols

import (
	"path/filepath"
	"testing"

	"github.com/cmmlang/cx/internal/cmm"
	"github.com/cmmlang/cx/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cx.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFindEnclosingEntityPicksSmallestSpan(t *testing.T) {
	s := openTestStore(t)
	model := &cmm.FileModel{
		SchemaVersion: cmm.SchemaVersion,
		Entities: []*cmm.Entity{
			{
				Name: "Widget", Kind: cmm.KindClass, Visibility: cmm.VisibilityPublic,
				LineStart: 0, LineEnd: 20, Meta: cmm.Metadata{Role: cmm.RoleClass},
				Children: []*cmm.Entity{
					{
						Name: "method", Kind: cmm.KindFunction, Visibility: cmm.VisibilityPublic,
						LineStart: 5, LineEnd: 10, Meta: cmm.Metadata{Role: cmm.RoleMethod},
					},
				},
			},
		},
	}
	if err := s.UpsertFile("widget.py", []byte("v1"), model); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	m := New(s)
	id, err := m.FindEnclosingEntity("widget.py", 7)
	if err != nil {
		t.Fatalf("find_enclosing_entity: %v", err)
	}
	if id == "" {
		t.Fatal("expected a match")
	}

	file, _ := s.GetFile("widget.py")
	methodID := file.Entities[0].Children[0].ID
	if id != methodID {
		t.Errorf("resolved %s, want method id %s (smallest span)", id, methodID)
	}

	classID := file.Entities[0].ID
	outer, err := m.FindEnclosingEntity("widget.py", 15)
	if err != nil {
		t.Fatalf("find_enclosing_entity: %v", err)
	}
	if outer != classID {
		t.Errorf("resolved %s, want class id %s", outer, classID)
	}

	none, err := m.FindEnclosingEntity("widget.py", 100)
	if err != nil {
		t.Fatalf("find_enclosing_entity: %v", err)
	}
	if none != "" {
		t.Errorf("expected no match outside any span, got %s", none)
	}
}

func TestURIToPathStripsSchemeOnly(t *testing.T) {
	if got := URIToPath("file:///a/b.py"); got != "/a/b.py" {
		t.Errorf("URIToPath = %q, want /a/b.py", got)
	}
	if got := URIToPath("/already/a/path.py"); got != "/already/a/path.py" {
		t.Errorf("URIToPath should pass through non-file URIs unchanged, got %q", got)
	}
}

func TestGenerateSymbolHashIsStableAndCached(t *testing.T) {
	s := openTestStore(t)
	m := New(s)
	h1 := m.GenerateSymbolHash("file:///a.py", "Widget.method")
	h2 := m.GenerateSymbolHash("file:///a.py", "Widget.method")
	if h1 != h2 {
		t.Errorf("hash not stable: %s != %s", h1, h2)
	}
	h3 := m.GenerateSymbolHash("file:///a.py", "Widget.other")
	if h1 == h3 {
		t.Error("expected different qualified names to hash differently")
	}
	if len(h1) != 64 {
		t.Errorf("expected a 64-char hex sha256 digest, got %d chars", len(h1))
	}
}

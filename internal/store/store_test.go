package store

import (
	"path/filepath"
	"testing"

	"github.com/cmmlang/cx/internal/cmm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cx.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleModel() *cmm.FileModel {
	return &cmm.FileModel{
		SchemaVersion: cmm.SchemaVersion,
		Entities: []*cmm.Entity{
			{
				Name:       "Widget",
				Kind:       cmm.KindClass,
				Visibility: cmm.VisibilityPublic,
				LineStart:  1,
				LineEnd:    10,
				Meta:       cmm.Metadata{Role: cmm.RoleClass, Signature: "class Widget:"},
				Children: []*cmm.Entity{
					{
						Name:       "make",
						Kind:       cmm.KindFunction,
						Visibility: cmm.VisibilityPublic,
						LineStart:  2,
						LineEnd:    4,
						Meta:       cmm.Metadata{Role: cmm.RoleMethod, MethodKind: cmm.MethodStatic, Signature: "def make():"},
						Relations: []cmm.Relation{
							{ToName: "helper", RelType: cmm.RelCalls},
						},
					},
				},
			},
		},
	}
}

func TestUpsertFileAndGetFile(t *testing.T) {
	s := openTestStore(t)
	path := "widget.py"

	if err := s.UpsertFile(path, []byte("class Widget: pass"), sampleModel()); err != nil {
		t.Fatalf("upsert_file: %v", err)
	}

	model, err := s.GetFile(path)
	if err != nil {
		t.Fatalf("get_file: %v", err)
	}
	if len(model.Entities) != 1 || model.Entities[0].Name != "Widget" {
		t.Fatalf("entities = %+v", model.Entities)
	}
	widget := model.Entities[0]
	if widget.ID == "" {
		t.Error("expected an assigned UUID id")
	}
	if len(widget.Children) != 1 || widget.Children[0].Name != "make" {
		t.Fatalf("children = %+v", widget.Children)
	}
	make_ := widget.Children[0]
	if make_.Meta.MethodKind != cmm.MethodStatic {
		t.Errorf("method kind = %q, want static", make_.Meta.MethodKind)
	}
	if len(make_.Relations) != 1 || make_.Relations[0].ToName != "helper" {
		t.Fatalf("relations = %+v", make_.Relations)
	}
}

func TestUpsertFileIsIdempotentOnUnchangedContent(t *testing.T) {
	s := openTestStore(t)
	path := "widget.py"
	content := []byte("class Widget: pass")

	if err := s.UpsertFile(path, content, sampleModel()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	before, err := s.GetFile(path)
	if err != nil {
		t.Fatalf("get_file: %v", err)
	}
	firstID := before.Entities[0].ID

	if err := s.UpsertFile(path, content, sampleModel()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	after, err := s.GetFile(path)
	if err != nil {
		t.Fatalf("get_file: %v", err)
	}
	if after.Entities[0].ID != firstID {
		t.Errorf("unchanged content reinserted entities: id changed from %s to %s", firstID, after.Entities[0].ID)
	}
}

func TestUpsertFileReinsertsOnChangedContent(t *testing.T) {
	s := openTestStore(t)
	path := "widget.py"

	if err := s.UpsertFile(path, []byte("v1"), sampleModel()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	before, _ := s.GetFile(path)
	firstID := before.Entities[0].ID

	model2 := sampleModel()
	model2.Entities[0].Name = "Gadget"
	if err := s.UpsertFile(path, []byte("v2"), model2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	after, err := s.GetFile(path)
	if err != nil {
		t.Fatalf("get_file: %v", err)
	}
	if len(after.Entities) != 1 || after.Entities[0].Name != "Gadget" {
		t.Fatalf("entities after reinsert = %+v", after.Entities)
	}
	if after.Entities[0].ID == firstID {
		t.Error("expected a fresh id after content change")
	}
}

func TestSaveVerifiedRelation(t *testing.T) {
	s := openTestStore(t)
	path := "widget.py"
	if err := s.UpsertFile(path, []byte("v1"), sampleModel()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	file, _ := s.GetFile(path)
	caller := file.Entities[0].Children[0]

	// Insert a synthetic target entity to resolve "helper" to.
	target := sampleModel()
	target.Entities = []*cmm.Entity{{
		Name: "helper", Kind: cmm.KindFunction, Visibility: cmm.VisibilityPublic,
		Meta: cmm.Metadata{Role: cmm.RoleMethod},
	}}
	if err := s.UpsertFile("helper.py", []byte("v1"), target); err != nil {
		t.Fatalf("upsert target: %v", err)
	}
	targetFile, _ := s.GetFile("helper.py")
	helperID := targetFile.Entities[0].ID

	if err := s.SaveVerifiedRelation(caller.ID, helperID, cmm.RelCalls); err != nil {
		t.Fatalf("save_verified_relation: %v", err)
	}

	all, err := s.GetHierarchicalIntent()
	if err != nil {
		t.Fatalf("get_hierarchical_intent: %v", err)
	}
	var found bool
	for _, root := range all {
		for _, child := range root.Children {
			if child.ID != caller.ID {
				continue
			}
			for _, rel := range child.Relations {
				if rel.ToName == "helper" && rel.IsVerified && rel.ToID == helperID {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected verified relation to helper")
	}
}

func TestMigrateUnknownPathFails(t *testing.T) {
	s := openTestStore(t)
	if err := Migrate(s, "v0.1", "v0.4"); err == nil {
		t.Error("expected ErrUnknownMigration for v0.1 -> v0.4")
	}
}

func TestMigrateV2ToV4Chain(t *testing.T) {
	s := openTestStore(t)
	if err := Migrate(s, "v0.2", "v0.4"); err != nil {
		t.Fatalf("migrate v0.2 -> v0.4: %v", err)
	}
}

package editor

import (
	"errors"
	"slices"
	"testing"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

func starter(t *testing.T) []entity.FileNode {
	t.Helper()
	folder := jsonldb.NewID()
	return []entity.FileNode{
		{ID: folder, Name: "src", Kind: entity.KindFolder},
		{ID: jsonldb.NewID(), Name: "main.js", Content: "// main", Kind: entity.KindFile, ParentID: folder},
		{ID: jsonldb.NewID(), Name: "README.md", Content: "# hi", Kind: entity.KindFile},
	}
}

func newStoreWithProject(t *testing.T) (*Store, *entity.Project) {
	t.Helper()
	s := NewStore()
	p, err := s.NewProject("Demo", jsonldb.NewID(), starter(t))
	if err != nil {
		t.Fatal(err)
	}
	return s, p
}

func TestStoreNewProject(t *testing.T) {
	s, p := newStoreWithProject(t)
	if p.Name != "Demo" {
		t.Fatalf("name = %q", p.Name)
	}
	if s.Dirty() {
		t.Fatal("fresh project should start clean")
	}
	// The first file node becomes the selection, skipping folders.
	want := p.Files[1].ID
	if got := s.Active(); got != want {
		t.Fatalf("active = %s, want %s", got, want)
	}
	if _, err := s.NewProject("", 0, nil); !errors.Is(err, entity.ErrEmptyName) {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreMutationsRequireProject(t *testing.T) {
	s := NewStore()
	if _, err := s.CreateFile("a.js", "", 0); !errors.Is(err, ErrNoProject) {
		t.Fatalf("CreateFile err = %v", err)
	}
	if err := s.Delete(jsonldb.NewID()); !errors.Is(err, ErrNoProject) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestStoreCreateFile(t *testing.T) {
	s, p := newStoreWithProject(t)
	folderID := p.Files[0].ID

	id, err := s.CreateFile("util.js", "export {}", folderID)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Dirty() {
		t.Fatal("mutation must set dirty")
	}
	snap, _ := s.Snapshot()
	i := slices.IndexFunc(snap.Files, func(n entity.FileNode) bool { return n.ID == id })
	if i < 0 {
		t.Fatal("created node missing from collection")
	}
	if n := snap.Files[i]; n.ParentID != folderID || n.Content != "export {}" {
		t.Fatalf("node = %+v", n)
	}
	if !snap.Modified.After(p.Modified) && !snap.Modified.Equal(p.Modified) {
		t.Fatal("Modified went backwards")
	}

	// A file cannot be a parent.
	fileID := p.Files[1].ID
	if _, err := s.CreateFile("x.js", "", fileID); !errors.Is(err, entity.ErrInvalidParent) {
		t.Fatalf("err = %v", err)
	}
	// A dangling parent is rejected and nothing is appended.
	before := len(snap.Files)
	if _, err := s.CreateFile("y.js", "", jsonldb.NewID()); !errors.Is(err, entity.ErrInvalidParent) {
		t.Fatalf("err = %v", err)
	}
	snap, _ = s.Snapshot()
	if len(snap.Files) != before {
		t.Fatal("failed mutation altered the collection")
	}
}

func TestStoreUpdateContent(t *testing.T) {
	s, p := newStoreWithProject(t)
	fileID, folderID := p.Files[1].ID, p.Files[0].ID

	if err := s.UpdateContent(fileID, "updated"); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if got := snap.Files[1].Content; got != "updated" {
		t.Fatalf("content = %q", got)
	}
	if err := s.UpdateContent(folderID, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("folders have no content, err = %v", err)
	}
	if err := s.UpdateContent(jsonldb.NewID(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreRename(t *testing.T) {
	s, p := newStoreWithProject(t)
	id := p.Files[2].ID
	if err := s.Rename(id, "  notes.md  "); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if got := snap.Files[2].Name; got != "notes.md" {
		t.Fatalf("name = %q", got)
	}
	if err := s.Rename(id, "   "); !errors.Is(err, entity.ErrEmptyName) {
		t.Fatalf("err = %v", err)
	}
	if err := s.Rename(jsonldb.NewID(), "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreMove(t *testing.T) {
	s, p := newStoreWithProject(t)
	folderID, fileID, rootFileID := p.Files[0].ID, p.Files[1].ID, p.Files[2].ID

	if err := s.Move(rootFileID, folderID); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if got := snap.Files[2].ParentID; got != folderID {
		t.Fatalf("parent = %s", got)
	}
	// Back to root level.
	if err := s.Move(rootFileID, 0); err != nil {
		t.Fatal(err)
	}
	// A folder cannot move under itself.
	if err := s.Move(folderID, folderID); !errors.Is(err, entity.ErrInvalidParent) {
		t.Fatalf("err = %v", err)
	}
	// Nor under one of its descendants.
	subID, err := s.CreateFolder("sub", folderID)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Move(folderID, subID); !errors.Is(err, entity.ErrInvalidParent) {
		t.Fatalf("err = %v", err)
	}
	// Files are not valid parents.
	if err := s.Move(rootFileID, fileID); !errors.Is(err, entity.ErrInvalidParent) {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreDeleteCascades(t *testing.T) {
	s, p := newStoreWithProject(t)
	folderID := p.Files[0].ID
	subID, err := s.CreateFolder("sub", folderID)
	if err != nil {
		t.Fatal(err)
	}
	deepID, err := s.CreateFile("deep.js", "", subID)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetActive(deepID); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(folderID); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	for _, n := range snap.Files {
		if n.ID == folderID || n.ID == subID || n.ID == deepID || n.ParentID == folderID {
			t.Fatalf("descendant survived: %+v", n)
		}
	}
	if got := s.Active(); got != 0 {
		t.Fatalf("selection should clear with its node, got %s", got)
	}
	if err := s.Delete(folderID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStoreSetActive(t *testing.T) {
	s, p := newStoreWithProject(t)
	_, seqBefore := s.Snapshot()
	if err := s.SetActive(p.Files[2].ID); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("selection must not dirty the project")
	}
	if _, seq := s.Snapshot(); seq != seqBefore {
		t.Fatal("selection must not advance the mutation sequence")
	}
	if err := s.SetActive(jsonldb.NewID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := s.SetActive(0); err != nil {
		t.Fatal(err)
	}
	if got := s.Active(); got != 0 {
		t.Fatalf("active = %s", got)
	}
}

func TestStoreUpdateSettings(t *testing.T) {
	s, _ := newStoreWithProject(t)
	dark := entity.ThemeDark
	off := false
	if err := s.UpdateSettings(SettingsPatch{Theme: &dark}); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if snap.Settings.Theme != entity.ThemeDark || !snap.Settings.Autosave {
		t.Fatalf("settings = %+v", snap.Settings)
	}
	if err := s.UpdateSettings(SettingsPatch{Autosave: &off}); err != nil {
		t.Fatal(err)
	}
	if s.AutosaveEnabled() {
		t.Fatal("autosave should be off")
	}
	bad := entity.Theme("neon")
	if err := s.UpdateSettings(SettingsPatch{Theme: &bad}); err == nil {
		t.Fatal("expected invalid theme error")
	}
}

func TestStoreOpenRefusesDirty(t *testing.T) {
	s, _ := newStoreWithProject(t)
	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	other := &entity.Project{
		ID:       jsonldb.NewID(),
		Name:     "Other",
		OwnerID:  jsonldb.NewID(),
		Settings: entity.DefaultSettings(),
	}
	if err := s.Open(other); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("err = %v", err)
	}
	// A clean flush completion unblocks opening.
	snap, seq := s.Snapshot()
	s.MarkSaved(snap.ID, seq, snap.Version)
	if err := s.Open(other); err != nil {
		t.Fatal(err)
	}
	if got := s.ProjectID(); got != other.ID {
		t.Fatalf("project = %s", got)
	}
}

func TestStoreMarkSaved(t *testing.T) {
	s, _ := newStoreWithProject(t)
	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	snap, seq := s.Snapshot()

	// An edit made while the flush was in flight keeps the store dirty.
	if err := s.UpdateContent(snap.Files[1].ID, "edited mid-flush"); err != nil {
		t.Fatal(err)
	}
	s.MarkSaved(snap.ID, seq, 7)
	if !s.Dirty() {
		t.Fatal("dirty cleared despite newer mutation")
	}
	// The persisted version is still adopted for the next precondition.
	cur, seq2 := s.Snapshot()
	if cur.Version != 7 {
		t.Fatalf("version = %d", cur.Version)
	}
	s.MarkSaved(snap.ID, seq2, 8)
	if s.Dirty() {
		t.Fatal("dirty should clear on current-seq completion")
	}

	// Completion for a project no longer loaded is discarded.
	s.Close()
	s.MarkSaved(snap.ID, seq2, 9)
	if s.Project() != nil {
		t.Fatal("store should stay empty")
	}
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	s, _ := newStoreWithProject(t)
	snap, _ := s.Snapshot()
	snap.Files[1].Content = "tampered"
	snap.Name = "tampered"
	cur, _ := s.Snapshot()
	if cur.Files[1].Content == "tampered" || cur.Name == "tampered" {
		t.Fatal("snapshot shares memory with the store")
	}
}

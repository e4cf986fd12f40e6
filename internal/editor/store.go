// Package editor implements the client-side engine behind the IDE: the file
// tree store holding the project being edited, dirty-state tracking, the
// autosave scheduler, and the persistence gateway that flushes snapshots to a
// local durable cache and an authoritative remote store.
package editor

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

var (
	// ErrNoProject is returned by mutations when no project is loaded.
	ErrNoProject = errors.New("no project loaded")
	// ErrNotFound is returned when a node id does not resolve.
	ErrNotFound = errors.New("node not found")
	// ErrUnsavedChanges is returned when opening over a dirty project.
	ErrUnsavedChanges = errors.New("current project has unsaved changes")
)

// Store is the single source of truth for the project currently being edited.
// Each mutation validates first and applies atomically: a failed operation
// leaves the tree, the selection and the dirty state exactly as they were.
//
// Mutations arrive from one logical caller (the UI), but the autosave
// scheduler reads snapshots from its own goroutine, so the store is
// mutex-guarded.
type Store struct {
	mu      sync.Mutex
	project *entity.Project
	active  jsonldb.ID
	dirty   bool
	// seq increments on every successful mutation. A flush records the seq
	// of its snapshot; completion clears dirty only when the seq is still
	// current, so edits made mid-flush keep the store dirty.
	seq uint64
}

// NewStore creates an empty store with no project loaded.
func NewStore() *Store {
	return &Store{}
}

// NewProject loads a fresh project built from the given starter files. The
// first file node becomes the active selection. The new project starts clean;
// it reaches the persistence layer on the first explicit save or autosave
// tick after a mutation.
func (s *Store) NewProject(name string, ownerID jsonldb.ID, files []entity.FileNode) (*entity.Project, error) {
	if err := entity.ValidateName(name); err != nil {
		return nil, err
	}
	files = entity.NormalizeTree(files)
	if err := entity.ValidateTree(files); err != nil {
		return nil, err
	}
	now := time.Now()
	p := &entity.Project{
		ID:       jsonldb.NewID(),
		Name:     strings.TrimSpace(name),
		OwnerID:  ownerID,
		Version:  0, // not yet persisted remotely
		Settings: entity.DefaultSettings(),
		Files:    files,
		Created:  now,
		Modified: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != nil && s.dirty {
		return nil, ErrUnsavedChanges
	}
	s.project = p
	s.active = firstFileID(p.Files)
	s.dirty = false
	s.seq++
	return p.Clone(), nil
}

// Open replaces the loaded project wholesale with the given snapshot. It
// refuses to clobber unsaved edits of the currently open project.
func (s *Store) Open(p *entity.Project) error {
	clone := p.Clone()
	clone.Files = entity.NormalizeTree(clone.Files)
	if err := clone.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != nil && s.dirty {
		return ErrUnsavedChanges
	}
	s.project = clone
	s.active = firstFileID(clone.Files)
	s.dirty = false
	s.seq++
	return nil
}

// Close unloads the current project. The caller must stop the autosave
// scheduler first; a flush completing after Close is discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = nil
	s.active = 0
	s.dirty = false
	s.seq++
}

// CreateFile appends a new file node. parentID, when non-zero, must resolve
// to an existing folder.
func (s *Store) CreateFile(name, content string, parentID jsonldb.ID) (jsonldb.ID, error) {
	return s.createNode(name, content, entity.KindFile, parentID)
}

// CreateFolder appends a new folder node.
func (s *Store) CreateFolder(name string, parentID jsonldb.ID) (jsonldb.ID, error) {
	return s.createNode(name, "", entity.KindFolder, parentID)
}

func (s *Store) createNode(name, content string, kind entity.NodeKind, parentID jsonldb.ID) (jsonldb.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return 0, ErrNoProject
	}
	n := entity.FileNode{
		ID:       jsonldb.NewID(),
		Name:     strings.TrimSpace(name),
		Content:  content,
		Kind:     kind,
		ParentID: parentID,
	}
	if err := entity.ValidateNode(n, s.project.Files); err != nil {
		return 0, err
	}
	s.project.Files = append(s.project.Files, n)
	s.markMutated()
	return n.ID, nil
}

// UpdateContent replaces the text content of a file node.
func (s *Store) UpdateContent(id jsonldb.ID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	i := s.indexOf(id)
	if i < 0 || s.project.Files[i].Kind != entity.KindFile {
		return ErrNotFound
	}
	s.project.Files[i].Content = content
	s.markMutated()
	return nil
}

// Rename changes a node's display name. It never alters the node's parent or
// its descendants.
func (s *Store) Rename(id jsonldb.ID, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	if err := entity.ValidateName(newName); err != nil {
		return err
	}
	s.project.Files[i].Name = strings.TrimSpace(newName)
	s.markMutated()
	return nil
}

// Move re-parents a node. The target must be an existing folder (or zero for
// root level) and may not be the node itself or one of its descendants.
func (s *Store) Move(id, newParentID jsonldb.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	if !newParentID.IsZero() {
		j := s.indexOf(newParentID)
		if j < 0 || s.project.Files[j].Kind != entity.KindFolder {
			return entity.ErrInvalidParent
		}
		if newParentID == id || slices.Contains(entity.Descendants(s.project.Files, id), newParentID) {
			return entity.ErrInvalidParent
		}
	}
	s.project.Files[i].ParentID = newParentID
	s.markMutated()
	return nil
}

// Delete removes a node. Deleting a folder cascades to all transitive
// descendants as one logical mutation. If the deleted node or any descendant
// was the active selection, the selection is cleared.
func (s *Store) Delete(id jsonldb.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	if s.indexOf(id) < 0 {
		return ErrNotFound
	}
	doomed := map[jsonldb.ID]bool{id: true}
	for _, d := range entity.Descendants(s.project.Files, id) {
		doomed[d] = true
	}
	s.project.Files = slices.DeleteFunc(s.project.Files, func(n entity.FileNode) bool {
		return doomed[n.ID]
	})
	if doomed[s.active] {
		s.active = 0
	}
	s.markMutated()
	return nil
}

// SetActive changes the selection. Zero clears it. Selection is pure UI
// state: it never marks the project dirty.
func (s *Store) SetActive(id jsonldb.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	if !id.IsZero() && s.indexOf(id) < 0 {
		return ErrNotFound
	}
	s.active = id
	return nil
}

// Active returns the currently selected node id, zero when none.
func (s *Store) Active() jsonldb.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SettingsPatch merges into the project settings field-by-field; nil fields
// are left untouched.
type SettingsPatch struct {
	Theme    *entity.Theme
	Autosave *bool
}

// UpdateSettings applies a partial settings update.
func (s *Store) UpdateSettings(patch SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return ErrNoProject
	}
	if patch.Theme != nil {
		if !patch.Theme.Valid() {
			return errors.New("unknown theme")
		}
		s.project.Settings.Theme = *patch.Theme
	}
	if patch.Autosave != nil {
		s.project.Settings.Autosave = *patch.Autosave
	}
	s.markMutated()
	return nil
}

// Snapshot returns a deep copy of the loaded project, with the mutation
// sequence it corresponds to. Returns nil when no project is loaded.
func (s *Store) Snapshot() (*entity.Project, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil, s.seq
	}
	return s.project.Clone(), s.seq
}

// Project returns a deep copy of the loaded project, or nil.
func (s *Store) Project() *entity.Project {
	p, _ := s.Snapshot()
	return p
}

// ProjectID returns the loaded project's id, zero when none.
func (s *Store) ProjectID() jsonldb.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return 0
	}
	return s.project.ID
}

// Dirty reports whether the in-memory state differs from the last
// successfully persisted snapshot.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// AutosaveEnabled reports the loaded project's autosave setting.
func (s *Store) AutosaveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project != nil && s.project.Settings.Autosave
}

// MarkSaved records the completion of a flush for the snapshot identified by
// projectID and seq. Dirty clears only when the same project is still loaded
// and no mutation happened since the snapshot was taken; the persisted
// version is adopted whenever the project identity still matches, so the next
// flush carries the right precondition.
func (s *Store) MarkSaved(projectID jsonldb.ID, seq uint64, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil || s.project.ID != projectID {
		return // project unloaded or replaced mid-flush; result discarded
	}
	if version > s.project.Version {
		s.project.Version = version
	}
	if s.seq == seq {
		s.dirty = false
	}
}

// markMutated records a successful mutation. Caller must hold the lock.
func (s *Store) markMutated() {
	s.dirty = true
	s.seq++
	if now := time.Now(); now.After(s.project.Modified) {
		s.project.Modified = now
	}
}

// indexOf returns the position of id in the flat collection, or -1.
// Caller must hold the lock.
func (s *Store) indexOf(id jsonldb.ID) int {
	return slices.IndexFunc(s.project.Files, func(n entity.FileNode) bool { return n.ID == id })
}

func firstFileID(files []entity.FileNode) jsonldb.ID {
	for _, n := range files {
		if n.Kind == entity.KindFile {
			return n.ID
		}
	}
	return 0
}

// Package entity defines the domain models for projects and their file trees.
//
// A project owns a flat collection of file nodes linked only via ParentID.
// The flat collection is the single authoritative representation of the tree;
// nested children views are derived on demand (see tree.go) and are never
// persisted or accepted as mutation input.
package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cipherstudio/studio/internal/jsonldb"
)

const (
	// MaxNameLen bounds project and node names.
	MaxNameLen = 100
	// MaxDescriptionLen bounds project descriptions.
	MaxDescriptionLen = 500
	// MaxTagLen bounds a single tag.
	MaxTagLen = 20
)

var (
	errProjectIDRequired = errors.New("project id is required")
	errOwnerRequired     = errors.New("project owner is required")

	// ErrEmptyName is returned when a name is empty after trimming.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrNameTooLong is returned when a name exceeds MaxNameLen.
	ErrNameTooLong = fmt.Errorf("name cannot exceed %d characters", MaxNameLen)
)

// NodeKind discriminates files from folders.
type NodeKind string

const (
	// KindFile is a leaf node carrying text content.
	KindFile NodeKind = "file"
	// KindFolder is an interior node; its content is always empty.
	KindFolder NodeKind = "folder"
)

// Valid returns true for a known node kind.
func (k NodeKind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// Theme is the editor color scheme.
type Theme string

const (
	// ThemeLight is the default theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark theme.
	ThemeDark Theme = "dark"
)

// Valid returns true for a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// FileNode is one file or folder in a project tree.
//
// ParentID references the owning folder; zero means root level. The ID is
// assigned at creation and never reused. Kind is immutable after creation.
type FileNode struct {
	ID       jsonldb.ID `json:"id"`
	Name     string     `json:"name"`
	Content  string     `json:"content"`
	Kind     NodeKind   `json:"kind"`
	ParentID jsonldb.ID `json:"parentId,omitempty"`
}

// ProjectSettings holds per-project editor preferences.
type ProjectSettings struct {
	Theme    Theme `json:"theme"`
	Autosave bool  `json:"autosave"`
}

// DefaultSettings returns the settings applied to new projects.
func DefaultSettings() ProjectSettings {
	return ProjectSettings{Theme: ThemeLight, Autosave: true}
}

// Project is the aggregate root: metadata, settings and the flat node
// collection. Version supports optimistic concurrency on remote writes:
// an update whose precondition version is stale is rejected.
type Project struct {
	ID          jsonldb.ID      `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	OwnerID     jsonldb.ID      `json:"ownerId"`
	IsPublic    bool            `json:"isPublic"`
	Version     int64           `json:"version"`
	Settings    ProjectSettings `json:"settings"`
	Files       []FileNode      `json:"files"`
	Created     time.Time       `json:"created"`
	Modified    time.Time       `json:"modified"`
}

// Clone returns a deep copy.
func (p *Project) Clone() *Project {
	c := *p
	if p.Tags != nil {
		c.Tags = make([]string, len(p.Tags))
		copy(c.Tags, p.Tags)
	}
	if p.Files != nil {
		c.Files = make([]FileNode, len(p.Files))
		copy(c.Files, p.Files)
	}
	return &c
}

// GetID returns the project's ID.
func (p *Project) GetID() jsonldb.ID {
	return p.ID
}

// Validate checks metadata bounds and the full tree invariants.
func (p *Project) Validate() error {
	if p.ID.IsZero() {
		return errProjectIDRequired
	}
	if p.OwnerID.IsZero() {
		return errOwnerRequired
	}
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if len(p.Description) > MaxDescriptionLen {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLen)
	}
	for _, tag := range p.Tags {
		if tag == "" || len(tag) > MaxTagLen {
			return fmt.Errorf("tag %q must be 1-%d characters", tag, MaxTagLen)
		}
	}
	if !p.Settings.Theme.Valid() {
		return fmt.Errorf("unknown theme %q", p.Settings.Theme)
	}
	return ValidateTree(p.Files)
}

// ValidateName checks a trimmed display name against the shared bounds.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

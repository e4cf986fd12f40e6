package storage

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

var (
	// ErrProjectNotFound is returned when a project id does not resolve.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAccessDenied is returned when visibility or ownership rules reject
	// the requester.
	ErrAccessDenied = errors.New("access denied")
	// ErrVersionConflict is returned when a write precondition version is
	// stale (another writer persisted in between).
	ErrVersionConflict = errors.New("project version conflict")
)

// ProjectService is the authoritative store for project documents. All reads
// and writes are mediated by ownership and visibility rules: private projects
// are readable only by their owner, writes are owner-only.
type ProjectService struct {
	table   *jsonldb.Table[*entity.Project]
	byOwner *jsonldb.Index[jsonldb.ID, *entity.Project]
}

// NewProjectService creates a project service backed by the given JSONL file.
func NewProjectService(tablePath string) (*ProjectService, error) {
	table, err := jsonldb.NewTable[*entity.Project](tablePath)
	if err != nil {
		return nil, err
	}
	byOwner := jsonldb.NewIndex(table, func(p *entity.Project) jsonldb.ID { return p.OwnerID })
	return &ProjectService{table: table, byOwner: byOwner}, nil
}

// CreateParams are the caller-supplied fields for a new project.
type CreateParams struct {
	// ID, when non-zero, is a client-minted id. Editors create projects
	// locally first and keep the same id on first sync.
	ID          jsonldb.ID
	Name        string
	Description string
	Files       []entity.FileNode
	Settings    *entity.ProjectSettings
	IsPublic    bool
	Tags        []string
}

// Create validates and stores a new project owned by ownerID. An empty file
// list is seeded from the starter template.
func (s *ProjectService) Create(ownerID jsonldb.ID, params CreateParams) (*entity.Project, error) {
	if ownerID.IsZero() {
		return nil, errors.New("owner is required")
	}
	settings := entity.DefaultSettings()
	if params.Settings != nil {
		settings = *params.Settings
	}
	files := params.Files
	if len(files) == 0 {
		var err error
		if files, err = StarterFiles(); err != nil {
			return nil, err
		}
	}
	id := params.ID
	if id.IsZero() {
		id = jsonldb.NewID()
	}
	now := time.Now()
	p := &entity.Project{
		ID:          id,
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		Tags:        normalizeTags(params.Tags),
		OwnerID:     ownerID,
		IsPublic:    params.IsPublic,
		Version:     1,
		Settings:    settings,
		Files:       entity.NormalizeTree(files),
		Created:     now,
		Modified:    now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.table.Append(p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Get retrieves a project by ID without access checks; callers combine it
// with AuthorizeRead/AuthorizeWrite.
func (s *ProjectService) Get(id jsonldb.ID) (*entity.Project, error) {
	if id.IsZero() {
		return nil, ErrProjectNotFound
	}
	p := s.table.Get(id)
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

// AuthorizeRead grants access when the project is public or the requester is
// the owner. A zero requester is anonymous.
func (s *ProjectService) AuthorizeRead(requester jsonldb.ID, p *entity.Project) error {
	if p.IsPublic || (!requester.IsZero() && requester == p.OwnerID) {
		return nil
	}
	return ErrAccessDenied
}

// AuthorizeWrite grants access only to the owner.
func (s *ProjectService) AuthorizeWrite(requester jsonldb.ID, p *entity.Project) error {
	if !requester.IsZero() && requester == p.OwnerID {
		return nil
	}
	return ErrAccessDenied
}

// UpdateParams is a partial-field patch: nil pointers leave the field
// untouched. Settings merge field-by-field, never dropping unspecified
// fields. Version, when non-zero, is the precondition: a stale value is
// rejected with ErrVersionConflict instead of silently overwriting.
type UpdateParams struct {
	Name        *string
	Description *string
	Files       []entity.FileNode
	Settings    *SettingsPatch
	IsPublic    *bool
	Tags        []string
	Version     int64
}

// SettingsPatch merges into existing settings field-by-field.
type SettingsPatch struct {
	Theme    *entity.Theme
	Autosave *bool
}

// Update applies a partial update for the owner, bumping Version and
// refreshing Modified monotonically.
func (s *ProjectService) Update(requester, id jsonldb.ID, params UpdateParams) (*entity.Project, error) {
	updated, err := s.table.Modify(id, func(p *entity.Project) error {
		if err := s.AuthorizeWrite(requester, p); err != nil {
			return err
		}
		if params.Version != 0 && params.Version != p.Version {
			return fmt.Errorf("%w: have %d, precondition %d", ErrVersionConflict, p.Version, params.Version)
		}
		if params.Name != nil {
			p.Name = strings.TrimSpace(*params.Name)
		}
		if params.Description != nil {
			p.Description = strings.TrimSpace(*params.Description)
		}
		if params.Files != nil {
			p.Files = entity.NormalizeTree(params.Files)
		}
		if params.Settings != nil {
			if params.Settings.Theme != nil {
				p.Settings.Theme = *params.Settings.Theme
			}
			if params.Settings.Autosave != nil {
				p.Settings.Autosave = *params.Settings.Autosave
			}
		}
		if params.IsPublic != nil {
			p.IsPublic = *params.IsPublic
		}
		if params.Tags != nil {
			p.Tags = normalizeTags(params.Tags)
		}
		p.Version++
		if now := time.Now(); now.After(p.Modified) {
			p.Modified = now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, jsonldb.ErrRowNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a project and with it every file node it owns.
func (s *ProjectService) Delete(requester, id jsonldb.ID) error {
	p := s.table.Get(id)
	if p == nil {
		return ErrProjectNotFound
	}
	if err := s.AuthorizeWrite(requester, p); err != nil {
		return err
	}
	return s.table.Delete(id)
}

// DeleteAllOwnedBy reclaims every project owned by ownerID. Used when an
// account is deleted so no orphaned documents survive.
func (s *ProjectService) DeleteAllOwnedBy(ownerID jsonldb.ID) error {
	var ids []jsonldb.ID
	for p := range s.byOwner.Iter(ownerID) {
		ids = append(ids, p.ID)
	}
	for _, id := range ids {
		if err := s.table.Delete(id); err != nil && !errors.Is(err, jsonldb.ErrRowNotFound) {
			return err
		}
	}
	return nil
}

// Duplicate copies a readable project into a fresh private one. The copy is
// owned by the requester when authenticated, else by the original owner.
func (s *ProjectService) Duplicate(requester, id jsonldb.ID) (*entity.Project, error) {
	orig, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeRead(requester, orig); err != nil {
		return nil, err
	}
	owner := orig.OwnerID
	if !requester.IsZero() {
		owner = requester
	}
	now := time.Now()
	dup := orig.Clone()
	dup.ID = jsonldb.NewID()
	dup.Name = suffixCopy(orig.Name)
	dup.OwnerID = owner
	dup.IsPublic = false
	dup.Version = 1
	dup.Created = now
	dup.Modified = now
	if err := s.table.Append(dup); err != nil {
		return nil, err
	}
	return dup.Clone(), nil
}

// suffixCopy appends " (Copy)" while respecting the name length bound.
// Truncation backs off whole runes so the result stays valid UTF-8.
func suffixCopy(name string) string {
	const suffix = " (Copy)"
	for len(name)+len(suffix) > entity.MaxNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name + suffix
}

// Filter selects and pages the project listing.
type Filter struct {
	// Search is a case-insensitive substring match on name or description.
	Search string
	// Tags keeps projects whose tag set intersects these.
	Tags []string
	// IsPublic, when set, filters on visibility explicitly.
	IsPublic *bool
	Page     int
	Limit    int
}

// Pagination describes one page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// List returns the projects visible to the requester (own or public; public
// only when anonymous), filtered and sorted by Modified descending.
func (s *ProjectService) List(requester jsonldb.ID, f Filter) ([]*entity.Project, Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	var matched []*entity.Project
	for p := range s.table.All() {
		if !p.IsPublic && (requester.IsZero() || p.OwnerID != requester) {
			continue
		}
		if f.IsPublic != nil && p.IsPublic != *f.IsPublic {
			continue
		}
		if f.Search != "" && !matchesSearch(p, f.Search) {
			continue
		}
		if len(f.Tags) > 0 && !intersects(p.Tags, f.Tags) {
			continue
		}
		matched = append(matched, p)
	}

	slices.SortStableFunc(matched, func(a, b *entity.Project) int {
		return b.Modified.Compare(a.Modified)
	})

	total := len(matched)
	pages := (total + f.Limit - 1) / f.Limit
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := min(start+f.Limit, total)

	return matched[start:end], Pagination{Page: f.Page, Limit: f.Limit, Total: total, Pages: pages}, nil
}

func matchesSearch(p *entity.Project, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

func intersects(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

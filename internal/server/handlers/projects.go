// Handles project CRUD, duplication and listing.

package handlers

import (
	"context"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
	"github.com/cipherstudio/studio/internal/server/dto"
	"github.com/cipherstudio/studio/internal/storage"
)

// ProjectHandler handles project requests.
type ProjectHandler struct {
	projects *storage.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects *storage.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// requesterID is zero for anonymous requests.
func requesterID(user *storage.User) jsonldb.ID {
	if user == nil {
		return 0
	}
	return user.ID
}

// List returns the projects visible to the requester, filtered, sorted by
// last modification and paginated. Anonymous callers see public projects
// only.
func (h *ProjectHandler) List(ctx context.Context, user *storage.User, req *dto.ListProjectsRequest) (*dto.ListProjectsResponse, error) {
	f := storage.Filter{
		Search:   req.Search,
		Tags:     req.TagList(),
		IsPublic: req.PublicFilter(),
		Page:     req.Page,
		Limit:    req.Limit,
	}
	projects, page, err := h.projects.List(requesterID(user), f)
	if err != nil {
		return nil, projectError(err, "Failed to list projects")
	}
	summaries := make([]dto.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, dto.ProjectToSummary(p))
	}
	return &dto.ListProjectsResponse{Projects: summaries, Pagination: page}, nil
}

// Create stores a new project owned by the requester.
func (h *ProjectHandler) Create(ctx context.Context, user *storage.User, req *dto.CreateProjectRequest) (*entity.Project, error) {
	p, err := h.projects.Create(user.ID, storage.CreateParams{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Files:       req.Files,
		Settings:    req.Settings,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, projectError(err, "Failed to create project")
	}
	return p, nil
}

// Get returns a project the requester is allowed to read.
func (h *ProjectHandler) Get(ctx context.Context, user *storage.User, req *dto.GetProjectRequest) (*entity.Project, error) {
	p, err := h.projects.Get(req.ID)
	if err != nil {
		return nil, projectError(err, "Failed to load project")
	}
	if err := h.projects.AuthorizeRead(requesterID(user), p); err != nil {
		return nil, projectError(err, "Failed to load project")
	}
	return p, nil
}

// Update applies a partial update for the owner, enforcing the version
// precondition.
func (h *ProjectHandler) Update(ctx context.Context, user *storage.User, req *dto.UpdateProjectRequest) (*entity.Project, error) {
	params := storage.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Files:       req.Files,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		Version:     req.Version,
	}
	if req.Settings != nil {
		params.Settings = &storage.SettingsPatch{
			Theme:    req.Settings.Theme,
			Autosave: req.Settings.Autosave,
		}
	}
	p, err := h.projects.Update(user.ID, req.ID, params)
	if err != nil {
		return nil, projectError(err, "Failed to update project")
	}
	return p, nil
}

// Delete removes a project owned by the requester.
func (h *ProjectHandler) Delete(ctx context.Context, user *storage.User, req *dto.GetProjectRequest) (*dto.OKResponse, error) {
	if err := h.projects.Delete(user.ID, req.ID); err != nil {
		return nil, projectError(err, "Failed to delete project")
	}
	return &dto.OKResponse{OK: true}, nil
}

// Duplicate copies a readable project into a fresh private one. An
// authenticated requester becomes the owner; an anonymous copy keeps the
// original owner.
func (h *ProjectHandler) Duplicate(ctx context.Context, user *storage.User, req *dto.GetProjectRequest) (*entity.Project, error) {
	p, err := h.projects.Duplicate(requesterID(user), req.ID)
	if err != nil {
		return nil, projectError(err, "Failed to duplicate project")
	}
	return p, nil
}

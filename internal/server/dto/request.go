// Package dto defines the request and response payloads of the HTTP API and
// their validation.
package dto

import (
	"fmt"
	"strings"

	"github.com/cipherstudio/studio/internal/apierrors"
	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

// Validatable is implemented by request types that can validate their fields.
// The Wrap functions use this interface as a type constraint so every request
// type provides validation.
type Validatable interface {
	Validate() error
}

// EmptyRequest is used by endpoints that take no input.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

// LoginRequest carries credentials for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return apierrors.MissingField("email or password")
	}
	return nil
}

// RegisterRequest carries the fields for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (r *RegisterRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.Name == "" {
		return apierrors.MissingField("email, password, or name")
	}
	if !strings.Contains(r.Email, "@") {
		return apierrors.BadRequest("Invalid email address")
	}
	if len(r.Password) < 8 {
		return apierrors.BadRequest("Password must be at least 8 characters")
	}
	return nil
}

// UpdateProfileRequest carries the fields for PUT /api/auth/profile.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

func (r *UpdateProfileRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apierrors.MissingField("name")
	}
	return nil
}

// ChangePasswordRequest carries the fields for PUT /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || r.NewPassword == "" {
		return apierrors.MissingField("currentPassword or newPassword")
	}
	if len(r.NewPassword) < 8 {
		return apierrors.BadRequest("Password must be at least 8 characters")
	}
	return nil
}

// DeleteAccountRequest carries the confirmation for DELETE /api/auth/account.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func (r *DeleteAccountRequest) Validate() error {
	if r.Password == "" {
		return apierrors.MissingField("password")
	}
	return nil
}

// CreateProjectRequest carries the fields for POST /api/projects. ID is
// optional: editors that created the project locally first keep their id.
// Version is accepted for symmetry with updates and ignored.
type CreateProjectRequest struct {
	ID          jsonldb.ID              `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Files       []entity.FileNode       `json:"files"`
	Settings    *entity.ProjectSettings `json:"settings"`
	IsPublic    bool                    `json:"isPublic"`
	Tags        []string                `json:"tags"`
	Version     int64                   `json:"version"`
}

func (r *CreateProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apierrors.MissingField("name")
	}
	return checkProjectFields(r.Name, r.Description, r.Tags, themeOf(r.Settings))
}

// GetProjectRequest identifies a project by path id.
type GetProjectRequest struct {
	ID jsonldb.ID `path:"id"`
}

func (r *GetProjectRequest) Validate() error {
	if r.ID.IsZero() {
		return apierrors.BadRequest("Invalid project ID")
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields stay untouched.
type SettingsPatch struct {
	Theme    *entity.Theme `json:"theme"`
	Autosave *bool         `json:"autosave"`
}

// UpdateProjectRequest carries the fields for PUT /api/projects/{id}. Nil
// fields are left untouched; Version is the optimistic-concurrency
// precondition (0 skips the check).
type UpdateProjectRequest struct {
	ID          jsonldb.ID        `json:"id" path:"id"`
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Files       []entity.FileNode `json:"files"`
	Settings    *SettingsPatch    `json:"settings"`
	IsPublic    *bool             `json:"isPublic"`
	Tags        []string          `json:"tags"`
	Version     int64             `json:"version"`
}

func (r *UpdateProjectRequest) Validate() error {
	if r.ID.IsZero() {
		return apierrors.BadRequest("Invalid project ID")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return apierrors.BadRequest("Name cannot be empty")
	}
	name, desc := "", ""
	if r.Name != nil {
		name = *r.Name
	}
	if r.Description != nil {
		desc = *r.Description
	}
	var theme *entity.Theme
	if r.Settings != nil {
		theme = r.Settings.Theme
	}
	return checkProjectFields(name, desc, r.Tags, theme)
}

// checkProjectFields applies the shared field bounds, catching violations at
// the API boundary so they report as bad requests.
func checkProjectFields(name, description string, tags []string, theme *entity.Theme) error {
	if len(strings.TrimSpace(name)) > entity.MaxNameLen {
		return apierrors.BadRequest(fmt.Sprintf("Name cannot exceed %d characters", entity.MaxNameLen))
	}
	if len(description) > entity.MaxDescriptionLen {
		return apierrors.BadRequest(fmt.Sprintf("Description cannot exceed %d characters", entity.MaxDescriptionLen))
	}
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" && len(t) > entity.MaxTagLen {
			return apierrors.BadRequest(fmt.Sprintf("Tags cannot exceed %d characters", entity.MaxTagLen))
		}
	}
	if theme != nil && !theme.Valid() {
		return apierrors.BadRequest("Theme must be light or dark")
	}
	return nil
}

func themeOf(s *entity.ProjectSettings) *entity.Theme {
	if s == nil {
		return nil
	}
	return &s.Theme
}

// ListProjectsRequest carries the query parameters for GET /api/projects.
// Tags is comma-separated; IsPublic is "true", "false" or empty for both.
type ListProjectsRequest struct {
	Search   string `query:"search"`
	Tags     string `query:"tags"`
	IsPublic string `query:"isPublic"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

func (r *ListProjectsRequest) Validate() error {
	switch r.IsPublic {
	case "", "true", "false":
	default:
		return apierrors.BadRequest("isPublic must be true or false")
	}
	if r.Page < 0 || r.Limit < 0 {
		return apierrors.BadRequest("Page and limit must be non-negative")
	}
	return nil
}

// PublicFilter converts the IsPublic parameter, nil when unset.
func (r *ListProjectsRequest) PublicFilter() *bool {
	switch r.IsPublic {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// TagList parses the comma-separated Tags parameter.
func (r *ListProjectsRequest) TagList() []string {
	if r.Tags == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(r.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

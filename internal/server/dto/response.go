// Defines response payloads for the HTTP API.

package dto

import (
	"time"

	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
	"github.com/cipherstudio/studio/internal/storage"
)

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID      jsonldb.ID `json:"id"`
	Email   string     `json:"email"`
	Name    string     `json:"name"`
	Created time.Time  `json:"created"`
}

// UserToResponse converts a stored user to its public view.
func UserToResponse(u *storage.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Created: u.Created}
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// OKResponse acknowledges an operation with no other payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ProjectSummary is a listing entry without file contents.
type ProjectSummary struct {
	ID          jsonldb.ID             `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	OwnerID     jsonldb.ID             `json:"ownerId"`
	IsPublic    bool                   `json:"isPublic"`
	Version     int64                  `json:"version"`
	Settings    entity.ProjectSettings `json:"settings"`
	FileCount   int                    `json:"fileCount"`
	Created     time.Time              `json:"created"`
	Modified    time.Time              `json:"modified"`
}

// ProjectToSummary strips a project down to its listing entry.
func ProjectToSummary(p *entity.Project) ProjectSummary {
	return ProjectSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		OwnerID:     p.OwnerID,
		IsPublic:    p.IsPublic,
		Version:     p.Version,
		Settings:    p.Settings,
		FileCount:   len(p.Files),
		Created:     p.Created,
		Modified:    p.Modified,
	}
}

// ListProjectsResponse is one page of project summaries.
type ListProjectsResponse struct {
	Projects   []ProjectSummary   `json:"projects"`
	Pagination storage.Pagination `json:"pagination"`
}

// Handles user authentication, registration and account management.

package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cipherstudio/studio/internal/apierrors"
	"github.com/cipherstudio/studio/internal/server/dto"
	"github.com/cipherstudio/studio/internal/storage"
)

const tokenExpiration = 24 * time.Hour

// AuthHandler handles authentication requests.
type AuthHandler struct {
	users     *storage.UserService
	projects  *storage.ProjectService
	jwtSecret []byte
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *storage.UserService, projects *storage.ProjectService, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{users: users, projects: projects, jwtSecret: jwtSecret}
}

// Login verifies credentials and returns a JWT token.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		return nil, apierrors.Unauthorized("Invalid credentials")
	}
	token, err := h.GenerateToken(user)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to generate token", err)
	}
	return &dto.AuthResponse{Token: token, User: dto.UserToResponse(user)}, nil
}

// Register creates a new account and returns a JWT token.
func (h *AuthHandler) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	user, err := h.users.Create(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, apierrors.Conflict("User already exists")
		}
		return nil, apierrors.InternalWithError("Failed to create user", err)
	}
	token, err := h.GenerateToken(user)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to generate token", err)
	}
	return &dto.AuthResponse{Token: token, User: dto.UserToResponse(user)}, nil
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(ctx context.Context, user *storage.User, req *dto.EmptyRequest) (*dto.UserResponse, error) {
	resp := dto.UserToResponse(user)
	return &resp, nil
}

// UpdateProfile changes the authenticated user's display name.
func (h *AuthHandler) UpdateProfile(ctx context.Context, user *storage.User, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	updated, err := h.users.UpdateProfile(user.ID, req.Name)
	if err != nil {
		return nil, apierrors.InternalWithError("Failed to update profile", err)
	}
	resp := dto.UserToResponse(updated)
	return &resp, nil
}

// ChangePassword rotates the authenticated user's password after verifying
// the current one.
func (h *AuthHandler) ChangePassword(ctx context.Context, user *storage.User, req *dto.ChangePasswordRequest) (*dto.OKResponse, error) {
	if err := h.users.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			return nil, apierrors.Unauthorized("Current password is incorrect")
		}
		return nil, apierrors.InternalWithError("Failed to change password", err)
	}
	return &dto.OKResponse{OK: true}, nil
}

// DeleteAccount removes the authenticated user and every project they own.
func (h *AuthHandler) DeleteAccount(ctx context.Context, user *storage.User, req *dto.DeleteAccountRequest) (*dto.OKResponse, error) {
	if err := h.users.Delete(user.ID, req.Password); err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			return nil, apierrors.Unauthorized("Password is incorrect")
		}
		return nil, apierrors.InternalWithError("Failed to delete account", err)
	}
	if err := h.projects.DeleteAllOwnedBy(user.ID); err != nil {
		return nil, apierrors.InternalWithError("Failed to delete projects", err)
	}
	return &dto.OKResponse{OK: true}, nil
}

// GenerateToken signs a JWT for the user.
func (h *AuthHandler) GenerateToken(user *storage.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": now.Unix(),
		"exp": now.Add(tokenExpiration).Unix(),
	})
	return token.SignedString(h.jwtSecret)
}

// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/cipherstudio/studio/internal/server/handlers"
	"github.com/cipherstudio/studio/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router for the studio API.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config, version string) http.Handler {
	mux := &http.ServeMux{}
	hh := handlers.NewHealthHandler(version)
	authh := handlers.NewAuthHandler(svc.User, svc.Project, cfg.JWTSecret)
	ph := handlers.NewProjectHandler(svc.Project)

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limiters))

	// Auth and account endpoints
	mux.Handle("POST /api/auth/register", Wrap(authh.Register, cfg, limiters))
	mux.Handle("POST /api/auth/login", Wrap(authh.Login, cfg, limiters))
	mux.Handle("GET /api/auth/me", WrapAuth(authh.Me, svc, cfg, limiters))
	mux.Handle("PUT /api/auth/profile", WrapAuth(authh.UpdateProfile, svc, cfg, limiters))
	mux.Handle("PUT /api/auth/password", WrapAuth(authh.ChangePassword, svc, cfg, limiters))
	mux.Handle("DELETE /api/auth/account", WrapAuth(authh.DeleteAccount, svc, cfg, limiters))

	// Project endpoints. Reads allow anonymous callers, writes require auth.
	mux.Handle("GET /api/projects", WrapOptionalAuth(ph.List, svc, cfg, limiters))
	mux.Handle("POST /api/projects", WrapAuth(ph.Create, svc, cfg, limiters))
	mux.Handle("GET /api/projects/{id}", WrapOptionalAuth(ph.Get, svc, cfg, limiters))
	mux.Handle("PUT /api/projects/{id}", WrapAuth(ph.Update, svc, cfg, limiters))
	mux.Handle("DELETE /api/projects/{id}", WrapAuth(ph.Delete, svc, cfg, limiters))
	mux.Handle("POST /api/projects/{id}/duplicate", WrapOptionalAuth(ph.Duplicate, svc, cfg, limiters))

	return mux
}

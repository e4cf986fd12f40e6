// Package handlers implements the business logic of the HTTP API endpoints.
package handlers

import (
	"github.com/cipherstudio/studio/internal/storage"
)

// Services bundles the storage services handlers depend on.
type Services struct {
	User    *storage.UserService
	Project *storage.ProjectService
}

// Config holds server-level settings handlers and wrappers need.
type Config struct {
	JWTSecret           []byte
	MaxRequestBodyBytes int64
}

// NewConfig derives the handler config from the persisted server config.
func NewConfig(sc *storage.ServerConfig) *Config {
	return &Config{
		JWTSecret:           sc.JWTSecret,
		MaxRequestBodyBytes: sc.MaxRequestBodyBytes,
	}
}

// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses the client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses the authenticated user ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for different tiers.
type Config struct {
	Auth       Tier
	Write      Tier
	ReadAuth   Tier // authenticated read
	ReadUnauth Tier // unauthenticated read
}

// NewConfig creates limiters from per-minute budgets. Authentication attempts
// are always keyed by IP; writes by user. Reads get generous fixed budgets. A
// zero budget disables the corresponding tier.
func NewConfig(authPerMin, writePerMin int) *Config {
	c := &Config{}
	if authPerMin > 0 {
		c.Auth = Tier{
			Name:    "auth",
			Limiter: NewLimiter(authPerMin, time.Minute, authPerMin),
			Scope:   ScopeIP,
		}
	}
	if writePerMin > 0 {
		c.Write = Tier{
			Name:    "write",
			Limiter: NewLimiter(writePerMin, time.Minute, max(writePerMin/6, 1)),
			Scope:   ScopeUser,
		}
	}
	c.ReadAuth = Tier{
		Name:    "read",
		Limiter: NewLimiter(30000, time.Minute, 5000),
		Scope:   ScopeUser,
	}
	c.ReadUnauth = Tier{
		Name:    "read",
		Limiter: NewLimiter(6000, time.Minute, 1000),
		Scope:   ScopeIP,
	}
	return c
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}
	if isAuthEndpoint(method, path) {
		if c.Auth.Limiter == nil {
			return nil
		}
		return &c.Auth
	}
	if method == "GET" {
		return &c.ReadUnauth
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		if c.Write.Limiter == nil {
			return nil
		}
		return &c.Write
	case "GET":
		return &c.ReadAuth
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []*Tier{&c.Auth, &c.Write, &c.ReadAuth, &c.ReadUnauth} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}

// isAuthEndpoint checks if the path is an authentication endpoint.
func isAuthEndpoint(method, path string) bool {
	return method == "POST" && (path == "/api/auth/login" || path == "/api/auth/register")
}

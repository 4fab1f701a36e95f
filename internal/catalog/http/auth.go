package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionTTL = 12 * time.Hour

// AdminAuth issues and validates bearer tokens for the admin API.
// Sessions live in memory and expire after sessionTTL.
type AdminAuth struct {
	username string
	password string

	mu       sync.RWMutex
	sessions map[string]time.Time
}

func NewAdminAuth(username, password string) *AdminAuth {
	return &AdminAuth{
		username: username,
		password: password,
		sessions: make(map[string]time.Time),
	}
}

// Login checks the credentials and returns a fresh token, or "" when
// they do not match.
func (a *AdminAuth) Login(username, password string) string {
	if a.username == "" || a.password == "" || username != a.username || password != a.password {
		return ""
	}

	token := uuid.NewString()
	a.mu.Lock()
	a.sessions[token] = time.Now().Add(sessionTTL)
	a.mu.Unlock()
	return token
}

func (a *AdminAuth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

func (a *AdminAuth) valid(token string) bool {
	a.mu.RLock()
	expiry, ok := a.sessions[token]
	a.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		a.Logout(token)
		return false
	}
	return true
}

// Middleware rejects requests without a valid admin bearer token.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || !a.valid(token) {
			respondError(w, http.StatusUnauthorized, "unauthorized", "valid admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

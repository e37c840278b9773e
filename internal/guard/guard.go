// Package guard decides whether a protected view may be shown. Access needs
// both the in-memory session and the persisted store to agree; any
// disagreement is treated as signed out.
package guard

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/outreach/internal/session"
)

// LoginPath is where denied requests are sent
const LoginPath = "/admin/login"

// ErrNotAuthenticated is returned by Check when access is denied
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNotReady is returned by Check while the session is still loading
var ErrNotReady = errors.New("session not initialized")

// Decision is the outcome of evaluating a request
type Decision int

const (
	Loading Decision = iota
	Denied
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Denied:
		return "denied"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Persisted reports whether durable storage holds a complete session
type Persisted interface {
	IsAuthenticated() bool
}

// Evaluate decides access from a state snapshot and the persisted store.
// A session with a request in flight is still loading. It has no side
// effects.
func Evaluate(state session.State, persisted Persisted) Decision {
	if !state.IsInitialized || state.Loading {
		return Loading
	}
	if !state.IsAuthenticated || persisted == nil || !persisted.IsAuthenticated() {
		return Denied
	}
	return Allowed
}

// Source supplies the current session snapshot
type Source interface {
	State() session.State
}

// Guard protects views behind the session
type Guard struct {
	source    Source
	persisted Persisted
	logger    *slog.Logger
}

// New creates a guard over a session source and the persisted store
func New(source Source, persisted Persisted, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{source: source, persisted: persisted, logger: logger}
}

// Decide evaluates the current session
func (g *Guard) Decide() Decision {
	return Evaluate(g.source.State(), g.persisted)
}

// Check returns nil when access is allowed
func (g *Guard) Check() error {
	switch g.Decide() {
	case Allowed:
		return nil
	case Loading:
		return ErrNotReady
	default:
		return ErrNotAuthenticated
	}
}

// Require wraps next so that only allowed requests reach it. While the
// session loads the client is asked to retry; denied requests are
// redirected to the login view with the original path in "from".
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch d := g.Decide(); d {
		case Allowed:
			next.ServeHTTP(w, r)
		case Loading:
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"loading":true}`))
		default:
			g.logger.Info("access denied", "path", r.URL.Path, "method", r.Method)
			http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusSeeOther)
		}
	})
}

// LoginRedirect returns the login path remembering from as the return target
func LoginRedirect(from string) string {
	if from == "" || from == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// ReturnTarget returns the path to continue to after login. Only local
// paths are honored.
func ReturnTarget(from, fallback string) string {
	if from == "" || from[0] != '/' || (len(from) > 1 && (from[1] == '/' || from[1] == '\\')) {
		return fallback
	}
	if from == LoginPath {
		return fallback
	}
	return from
}

// Package console serves the admin views over HTTP. Protected views sit
// behind the route guard; the session is the one shared with the CLI.
package console

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/outreach/internal/api"
	"github.com/felixgeelhaar/outreach/internal/config"
	"github.com/felixgeelhaar/outreach/internal/guard"
	"github.com/felixgeelhaar/outreach/internal/session"
)

// Version is reported by the status endpoint
var Version = "dev"

// DashboardPath is the default view after login
const DashboardPath = "/admin/dashboard"

// Server is the console HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	container *session.Container
	store     *session.Store
	client    *api.Client
	guard     *guard.Guard
	limiter   ratelimit.RateLimiter
	started   time.Time
}

// ServerConfig holds the wired components the console serves
type ServerConfig struct {
	Config    *config.LocalConfig
	Container *session.Container
	Store     *session.Store
	Client    *api.Client
}

// NewServer creates a console server. The container should already be
// initialized; until it is, protected views answer 503.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:       cfg.Config,
		router:    http.NewServeMux(),
		container: cfg.Container,
		store:     cfg.Store,
		client:    cfg.Client,
		guard:     guard.New(cfg.Container, cfg.Store, slog.Default()),
		started:   time.Now(),
	}

	if rate := cfg.Config.Console.LoginRatePerMinute; rate > 0 {
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate,
			Interval: time.Minute,
		})
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Config.Console.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/session", s.handleSession)

	// Public views
	s.router.HandleFunc("GET /admin/login", s.handleLoginView)
	s.router.HandleFunc("POST /admin/login", s.handleLogin)
	s.router.HandleFunc("GET /admin/register", s.handleRegisterView)
	s.router.HandleFunc("POST /admin/register", s.handleRegister)
	s.router.HandleFunc("POST /admin/logout", s.handleLogout)

	// Protected views
	protect := func(pattern string, h http.HandlerFunc) {
		s.router.Handle(pattern, s.guard.Require(h))
	}
	protect("GET /admin/dashboard", s.handleDashboard)
	protect("GET /admin/profile", s.handleGetProfile)
	protect("PUT /admin/profile", s.handleUpdateProfile)
	protect("PUT /admin/change-password", s.handleChangePassword)
	protect("GET /admin/admins", s.handleListAdmins)
	protect("GET /admin/videos", s.handleListVideos)
	protect("DELETE /admin/videos/{id}", s.handleDeleteVideo)
	protect("GET /admin/donations", s.handleListDonations)
	protect("GET /admin/donations/stats", s.handleDonationStats)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return recoverPanics(withRequestID(accessLog(s.router)))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting outreach console",
		"addr", s.server.Addr,
		"api", s.client.BaseURL(),
		"storage", s.cfg.Storage.Backend,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down console...")

	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			slog.Warn("failed to close rate limiter", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err
	}
	s.jsonResponse(w, status, response)
}

// backendError maps a failed backend call onto a console response
func (s *Server) backendError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch code := api.StatusOf(err); code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict:
		status = code
	}
	if api.IsKind(err, api.KindTimeout) {
		status = http.StatusGatewayTimeout
	}
	s.jsonError(w, status, err.Error(), nil)
}

// decode reads a JSON body into v
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// view strips the token from a state snapshot before it leaves the process
func view(st session.State) session.State {
	st.Token = ""
	return st
}

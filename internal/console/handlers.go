package console

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/outreach/internal/api"
	"github.com/felixgeelhaar/outreach/internal/domain"
	"github.com/felixgeelhaar/outreach/internal/form"
	"github.com/felixgeelhaar/outreach/internal/guard"
	"github.com/felixgeelhaar/outreach/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSession reports both session sources and the guard's view of them
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st := s.container.State()
	stored, _ := s.store.StoredToken()

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"version":   Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"state":     view(st),
		"token":     session.InspectToken(st.Token, time.Now()),
		"persisted": s.store.IsAuthenticated(),
		"in_sync":   st.Token == stored,
		"decision":  s.guard.Decide().String(),
	})
}

// Public views

func (s *Server) handleLoginView(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if s.guard.Decide() == guard.Allowed {
		http.Redirect(w, r, guard.ReturnTarget(from, DashboardPath), http.StatusSeeOther)
		return
	}
	st := s.container.State()
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"view":    "login",
		"from":    from,
		"loading": st.Loading,
		"error":   st.Error,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow(r.Context(), clientKey(r)) {
		w.Header().Set("Retry-After", "60")
		s.jsonError(w, http.StatusTooManyRequests, "too many login attempts", nil)
		return
	}

	var f form.Credentials
	if !s.decode(w, r, &f) {
		return
	}
	creds, err := f.Domain()
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	st, err := s.container.TryLoginAsync(r.Context(), creds)
	if errors.Is(err, domain.ErrLoginInProgress) {
		s.jsonError(w, http.StatusConflict, err.Error(), nil)
		return
	}
	if !st.IsAuthenticated {
		s.jsonError(w, http.StatusUnauthorized, st.Error, nil)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"redirect": guard.ReturnTarget(r.URL.Query().Get("from"), DashboardPath),
		"user":     st.User,
	})
}

func (s *Server) handleRegisterView(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"view":              "register",
		"passwordMinLength": form.MinPasswordLength,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var f form.Registration
	if !s.decode(w, r, &f) {
		return
	}
	reg, err := f.Domain()
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	st := s.container.RegisterAsync(r.Context(), reg)
	if st.Error != "" {
		s.jsonError(w, http.StatusBadRequest, st.Error, nil)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"redirect": guard.LoginPath,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.container.LogoutAsync(r.Context())
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"redirect": guard.LoginPath,
	})
}

// Protected views

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st := s.container.State()
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"view":     "dashboard",
		"user":     st.User,
		"greeting": "Welcome, " + st.User.DisplayName(),
		"sections": []string{"profile", "admins", "videos", "donations"},
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	st := s.container.GetProfileAsync(r.Context())
	if st.Error != "" {
		s.jsonError(w, http.StatusBadGateway, st.Error, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user": st.User,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	f := form.ProfileFrom(s.container.State().User)
	if !s.decode(w, r, &f) {
		return
	}
	update, err := f.Domain()
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	st := s.container.UpdateProfileAsync(r.Context(), update)
	if st.Error != "" {
		s.jsonError(w, http.StatusBadRequest, st.Error, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user": st.User,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var f form.PasswordChange
	if !s.decode(w, r, &f) {
		return
	}
	change, err := f.Domain()
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	st := s.container.ChangePasswordAsync(r.Context(), change)
	if st.Error != "" {
		s.jsonError(w, http.StatusBadRequest, st.Error, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Password changed successfully",
	})
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.client.ListAdmins(r.Context())
	if err != nil {
		s.backendError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"admins": admins,
		"count":  len(admins),
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := api.VideoQuery{
		Page:     atoi(q.Get("page"), domain.DefaultVideoPage),
		Limit:    atoi(q.Get("limit"), domain.DefaultVideoLimit),
		Category: domain.VideoCategory(q.Get("category")),
		Search:   q.Get("search"),
	}
	if query.Category != "" && !query.Category.IsValid() {
		s.jsonError(w, http.StatusBadRequest, "unknown category "+string(query.Category), nil)
		return
	}

	page, err := s.client.Videos.List(r.Context(), query)
	if err != nil {
		s.backendError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.client.Videos.Delete(r.Context(), id); err != nil {
		s.backendError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"deleted": id,
	})
}

func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	donations, err := s.client.Payments.Donations(r.Context(), api.DonationQuery{
		Page:   atoi(q.Get("page"), 0),
		Limit:  atoi(q.Get("limit"), 0),
		Status: q.Get("status"),
	})
	if err != nil {
		s.backendError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"donations": donations,
		"count":     len(donations),
	})
}

func (s *Server) handleDonationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.client.Payments.Stats(r.Context())
	if err != nil {
		s.backendError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

func atoi(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}

// clientKey identifies the caller for rate limiting
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

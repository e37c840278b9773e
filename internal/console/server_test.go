package console

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/outreach/internal/api"
	"github.com/felixgeelhaar/outreach/internal/config"
	"github.com/felixgeelhaar/outreach/internal/domain"
	"github.com/felixgeelhaar/outreach/internal/session"
	"github.com/felixgeelhaar/outreach/internal/storage/local"
)

type testEnv struct {
	server    *Server
	handler   http.Handler
	container *session.Container
	kv        *local.Memory
	hits      *atomic.Int32
}

// fakeBackend imitates the nonprofit API
func fakeBackend(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer t1"
	}
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			write(w, http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`)
			return
		}
		write(w, http.StatusOK, `{"success":true,"data":{"admin":{"name":"X","email":"x@example.org"},"token":"t1"}}`)
	})
	mux.HandleFunc("POST /api/admin/register", func(w http.ResponseWriter, r *http.Request) {
		var reg domain.Registration
		json.NewDecoder(r.Body).Decode(&reg)
		if reg.Email == "taken@example.org" {
			write(w, http.StatusBadRequest, `{"success":false,"message":"Admin already exists"}`)
			return
		}
		write(w, http.StatusCreated, `{"success":true,"data":{}}`)
	})
	mux.HandleFunc("GET /api/admin/profile", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			write(w, http.StatusUnauthorized, `{"message":"Not authorized"}`)
			return
		}
		write(w, http.StatusOK, `{"success":true,"data":{"admin":{"name":"X","email":"x@example.org","department":"Field"}}}`)
	})
	mux.HandleFunc("PUT /api/admin/profile", func(w http.ResponseWriter, r *http.Request) {
		var update domain.ProfileUpdate
		json.NewDecoder(r.Body).Decode(&update)
		body, _ := json.Marshal(map[string]any{"success": true, "data": map[string]any{"admin": update}})
		write(w, http.StatusOK, string(body))
	})
	mux.HandleFunc("PUT /api/admin/change-password", func(w http.ResponseWriter, r *http.Request) {
		var change domain.PasswordChange
		json.NewDecoder(r.Body).Decode(&change)
		if change.CurrentPassword != "secret" {
			write(w, http.StatusBadRequest, `{"success":false,"message":"Current password is incorrect"}`)
			return
		}
		write(w, http.StatusOK, `{"success":true}`)
	})
	mux.HandleFunc("GET /api/admin/all", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"success":true,"data":[{"name":"X"},{"name":"Y"}]}`)
	})
	mux.HandleFunc("GET /api/videos", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"success":true,"data":{"videos":[{"_id":"v1","title":"Clinic"}],"pagination":{"currentPage":1,"totalPages":1,"totalVideos":1,"limit":10}}}`)
	})
	mux.HandleFunc("DELETE /api/videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "v1" {
			write(w, http.StatusNotFound, `{"success":false,"message":"Video not found"}`)
			return
		}
		write(w, http.StatusOK, `{"success":true}`)
	})
	mux.HandleFunc("GET /api/payment/donations", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"success":true,"data":{"donations":[{"_id":"d1","amount":10}]}}`)
	})
	mux.HandleFunc("GET /api/payment/stats", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"success":true,"data":{"totalDonations":3,"totalAmount":45}}`)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupTestServer wires a console against a fake backend with in-memory storage
func setupTestServer(t *testing.T, modify ...func(*config.LocalConfig)) *testEnv {
	t.Helper()

	hits := &atomic.Int32{}
	backend := fakeBackend(t, hits)

	cfg := config.DefaultLocalConfig()
	cfg.Console.Port = 0
	cfg.Console.LoginRatePerMinute = 0
	for _, m := range modify {
		m(cfg)
	}

	kv := local.NewMemory()
	store := session.NewStore(kv, nil)
	client := api.New(api.Config{BaseURL: backend.URL + "/api", Timeout: 2 * time.Second, Tokens: store})
	container := session.NewContainer(store, client, nil)

	server := NewServer(ServerConfig{Config: cfg, Container: container, Store: store, Client: client})
	return &testEnv{
		server:    server,
		handler:   server.Handler(),
		container: container,
		kv:        kv,
		hits:      hits,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signIn puts the environment into an authenticated session
func (e *testEnv) signIn() {
	e.container.InitializeAuth()
	e.container.Login("t1", &domain.User{Name: "X", Email: "x@example.org"})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("request id header missing")
	}
}

func TestProtectedRoute_BeforeInitialization(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodGet, "/admin/dashboard", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestProtectedRoute_RedirectsToLogin(t *testing.T) {
	env := setupTestServer(t)
	env.container.InitializeAuth()

	rec := env.do(http.MethodGet, "/admin/videos?page=2", "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/admin/login?from=%2Fadmin%2Fvideos%3Fpage%3D2" {
		t.Errorf("Location = %q", got)
	}
	if env.hits.Load() != 0 {
		t.Error("denied request reached the backend")
	}
}

func TestLogin_Flow(t *testing.T) {
	env := setupTestServer(t)
	env.container.InitializeAuth()

	// Validation errors never reach the backend
	rec := env.do(http.MethodPost, "/admin/login", `{"email":"not-an-email","password":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid form status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if env.hits.Load() != 0 {
		t.Fatal("invalid form reached the backend")
	}

	rec = env.do(http.MethodPost, "/admin/login", `{"email":"x@example.org","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid credentials" {
		t.Errorf("error = %v, want Invalid credentials", body["error"])
	}

	rec = env.do(http.MethodPost, "/admin/login?from=%2Fadmin%2Fvideos", `{"email":"x@example.org","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["redirect"] != "/admin/videos" {
		t.Errorf("redirect = %v, want /admin/videos", body["redirect"])
	}

	rec = env.do(http.MethodGet, "/admin/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["greeting"] != "Welcome, X" {
		t.Errorf("greeting = %v", body["greeting"])
	}
}

func TestLogin_OverlappingAttemptConflicts(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
	}))
	defer backend.Close()
	defer close(release)

	cfg := config.DefaultLocalConfig()
	cfg.Console.LoginRatePerMinute = 0
	store := session.NewStore(local.NewMemory(), nil)
	client := api.New(api.Config{BaseURL: backend.URL + "/api", Timeout: 5 * time.Second, Tokens: store})
	container := session.NewContainer(store, client, nil)
	container.InitializeAuth()
	container.Login("prev", &domain.User{Name: "Prev"})
	handler := NewServer(ServerConfig{Config: cfg, Container: container, Store: store, Client: client}).Handler()

	post := func(password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"email":"x@example.org","password":"`+password+`"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- post("held") }()
	<-entered

	rec := post("wrong")
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlapping login status = %d, want %d (body %s)", rec.Code, http.StatusConflict, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["user"] != nil {
		t.Errorf("overlapping login leaked a user: %v", body["user"])
	}

	// Protected views wait while the login is pending
	dash := httptest.NewRecorder()
	handler.ServeHTTP(dash, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if dash.Code != http.StatusServiceUnavailable {
		t.Errorf("dashboard during login status = %d, want %d", dash.Code, http.StatusServiceUnavailable)
	}

	release <- struct{}{}
	if rec := <-first; rec.Code != http.StatusUnauthorized {
		t.Errorf("held login status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogin_DefaultRedirectIgnoresForeignTargets(t *testing.T) {
	env := setupTestServer(t)
	env.container.InitializeAuth()

	rec := env.do(http.MethodPost, "/admin/login?from=https%3A%2F%2Fevil.example", `{"email":"x@example.org","password":"secret"}`)
	if body := decodeBody(t, rec); body["redirect"] != DashboardPath {
		t.Errorf("redirect = %v, want %s", body["redirect"], DashboardPath)
	}
}

func TestLoginView(t *testing.T) {
	env := setupTestServer(t)
	env.container.InitializeAuth()

	rec := env.do(http.MethodGet, "/admin/login?from=%2Fadmin%2Fprofile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["from"] != "/admin/profile" {
		t.Errorf("from = %v", body["from"])
	}

	env.signIn()
	rec = env.do(http.MethodGet, "/admin/login?from=%2Fadmin%2Fprofile", "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/profile" {
		t.Errorf("authenticated login view = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := setupTestServer(t, func(c *config.LocalConfig) {
		c.Console.LoginRatePerMinute = 2
	})
	env.container.InitializeAuth()

	body := `{"email":"x@example.org","password":"wrong"}`
	for i := 0; i < 2; i++ {
		if rec := env.do(http.MethodPost, "/admin/login", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}
	rec := env.do(http.MethodPost, "/admin/login", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestExternalClearDeniesAccess(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	if rec := env.do(http.MethodGet, "/admin/dashboard", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	env.kv.Delete(session.KeyToken, session.KeyUser)

	if rec := env.do(http.MethodGet, "/admin/dashboard", ""); rec.Code != http.StatusSeeOther {
		t.Errorf("status after external clear = %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	rec := env.do(http.MethodGet, "/v1/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := decodeBody(t, rec)
	if body["decision"] != "allowed" || body["persisted"] != true || body["in_sync"] != true {
		t.Errorf("session view = %v", body)
	}
	state, _ := body["state"].(map[string]interface{})
	if _, ok := state["token"]; ok {
		t.Error("state must not expose the token")
	}
	if state["isAuthenticated"] != true {
		t.Errorf("state = %v", state)
	}
}

func TestRegister(t *testing.T) {
	env := setupTestServer(t)
	env.container.InitializeAuth()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"password mismatch", `{"name":"N","email":"n@example.org","password":"secret1","confirmPassword":"secret2"}`, http.StatusBadRequest, "validation failed"},
		{"taken", `{"name":"N","email":"taken@example.org","password":"secret1","confirmPassword":"secret1"}`, http.StatusBadRequest, "Admin already exists"},
		{"created", `{"name":"N","email":"n@example.org","password":"secret1","confirmPassword":"secret1"}`, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/admin/register", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody(t, rec)
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if tt.wantStatus == http.StatusCreated && body["redirect"] != "/admin/login" {
				t.Errorf("redirect = %v", body["redirect"])
			}
		})
	}

	if env.container.State().IsAuthenticated {
		t.Error("registration must not authenticate")
	}
}

func TestLogout(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	rec := env.do(http.MethodPost, "/admin/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	keys, _ := env.kv.Keys()
	if len(keys) != 0 {
		t.Errorf("storage keys after logout = %v", keys)
	}
	if rec := env.do(http.MethodGet, "/admin/dashboard", ""); rec.Code != http.StatusSeeOther {
		t.Errorf("dashboard after logout = %d", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	rec := env.do(http.MethodGet, "/admin/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	user, _ := decodeBody(t, rec)["user"].(map[string]interface{})
	if user["department"] != "Field" {
		t.Errorf("user = %v", user)
	}

	// Fields left out of the body keep their current values
	rec = env.do(http.MethodPut, "/admin/profile", `{"department":"Operations"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}
	user, _ = decodeBody(t, rec)["user"].(map[string]interface{})
	if user["name"] != "X" || user["department"] != "Operations" {
		t.Errorf("user = %v", user)
	}

	rec = env.do(http.MethodPut, "/admin/profile", `{"email":"broken"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid PUT status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	rec := env.do(http.MethodPut, "/admin/change-password", `{"currentPassword":"wrong","newPassword":"newpass","confirmPassword":"newpass"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body := decodeBody(t, rec); body["error"] != "Current password is incorrect" {
		t.Errorf("error = %v", body["error"])
	}

	rec = env.do(http.MethodPut, "/admin/change-password", `{"currentPassword":"secret","newPassword":"newpass","confirmPassword":"newpass"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAdminsVideosDonations(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"admins", http.MethodGet, "/admin/admins", http.StatusOK},
		{"videos", http.MethodGet, "/admin/videos?category=medical", http.StatusOK},
		{"bad category", http.MethodGet, "/admin/videos?category=sports", http.StatusBadRequest},
		{"delete video", http.MethodDelete, "/admin/videos/v1", http.StatusOK},
		{"delete missing video", http.MethodDelete, "/admin/videos/v9", http.StatusNotFound},
		{"donations", http.MethodGet, "/admin/donations", http.StatusOK},
		{"donation stats", http.MethodGet, "/admin/donations/stats", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAdmins_Count(t *testing.T) {
	env := setupTestServer(t)
	env.signIn()

	body := decodeBody(t, env.do(http.MethodGet, "/admin/admins", ""))
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

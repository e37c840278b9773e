package session

import (
	"encoding/json"
	"log/slog"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// Persisted storage keys
const (
	KeyToken = "authToken"
	KeyUser  = "user"
)

// Store is the persisted half of the session. Reads never fail: backend
// errors and malformed data are logged and reported as absent.
type Store struct {
	kv     KV
	logger *slog.Logger
}

// NewStore creates a persisted session store over kv
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// StoredToken returns the persisted token if it is valid
func (s *Store) StoredToken() (string, bool) {
	token, ok, err := s.kv.Get(KeyToken)
	if err != nil {
		s.logger.Warn("read stored token", "error", err)
		return "", false
	}
	if !ok || !IsValidToken(token) {
		return "", false
	}
	return token, true
}

// StoredUser returns the persisted admin record. A record that does not
// decode is deleted.
func (s *Store) StoredUser() (*domain.User, bool) {
	raw, ok, err := s.kv.Get(KeyUser)
	if err != nil {
		s.logger.Warn("read stored user", "error", err)
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var user *domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user == nil {
		s.logger.Warn("discarding corrupt stored user", "error", err)
		if err := s.kv.Delete(KeyUser); err != nil {
			s.logger.Warn("delete corrupt stored user", "error", err)
		}
		return nil, false
	}
	return user, true
}

// IsAuthenticated reports whether storage holds a valid token and a user
func (s *Store) IsAuthenticated() bool {
	if _, ok := s.StoredToken(); !ok {
		return false
	}
	_, ok := s.StoredUser()
	return ok
}

// StoreAuthData persists token and user together. Invalid input is ignored.
func (s *Store) StoreAuthData(token string, user *domain.User) {
	if !IsValidToken(token) || user == nil {
		s.logger.Debug("skip storing incomplete auth data")
		return
	}

	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Error("encode user for storage", "error", err)
		return
	}

	err = s.kv.SetMany(map[string]string{
		KeyToken: token,
		KeyUser:  string(data),
	})
	if err != nil {
		s.logger.Error("store auth data", "error", err)
	}
}

// Keys lists what the backend holds, for status displays
func (s *Store) Keys() ([]string, error) {
	return s.kv.Keys()
}

// ClearAuthData removes the token and user. Safe to call repeatedly.
func (s *Store) ClearAuthData() {
	if err := s.kv.Delete(KeyToken, KeyUser); err != nil {
		s.logger.Error("clear auth data", "error", err)
	}
}

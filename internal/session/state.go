package session

import (
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// State is a snapshot of the in-memory session
type State struct {
	Token           string       `json:"token,omitempty"`
	User            *domain.User `json:"user,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
	IsInitialized   bool         `json:"isInitialized"`
	Error           string       `json:"error,omitempty"`
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}

// Container owns the in-memory session and keeps the persisted store in
// step with it. All methods are safe for concurrent use; the lock is never
// held across a remote call or a subscriber callback.
type Container struct {
	store  *Store
	api    AuthAPI
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	inFlight     int
	loginPending bool

	initOnce sync.Once

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewContainer creates an empty, uninitialized container
func NewContainer(store *Store, api AuthAPI, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		store:  store,
		api:    api,
		logger: logger,
		subs:   make(map[int]func(State)),
	}
}

// State returns a copy of the current session
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive the state after every transition.
// The returned function removes the subscription.
func (c *Container) Subscribe(fn func(State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// update applies fn under the lock, then notifies subscribers
func (c *Container) update(fn func(s *State)) State {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
	return snapshot
}

func (c *Container) notify(s State) {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s.clone())
	}
}

// Login authenticates the session with an already obtained token and user
// and mirrors both into storage. Incomplete input leaves the session
// unauthenticated.
func (c *Container) Login(token string, user *domain.User) State {
	if !IsValidToken(token) || user == nil {
		c.logger.Warn("rejecting login with incomplete session data")
		return c.update(func(s *State) {
			s.Token = ""
			s.User = nil
			s.IsAuthenticated = false
			s.Error = domain.ErrInvalidSession.Error()
		})
	}

	st := c.update(func(s *State) {
		s.Token = token
		s.User = user.Clone()
		s.IsAuthenticated = true
		s.Error = ""
	})
	c.store.StoreAuthData(token, user)
	return st
}

// Logout clears the session in memory and in storage
func (c *Container) Logout() State {
	st := c.update(func(s *State) {
		s.Token = ""
		s.User = nil
		s.IsAuthenticated = false
		s.Error = ""
	})
	c.store.ClearAuthData()
	c.logger.Info("session cleared")
	return st
}

// ClearError drops the last failure message
func (c *Container) ClearError() State {
	return c.update(func(s *State) {
		s.Error = ""
	})
}

// InitializeAuth hydrates the session from storage. Only the first call has
// an effect; the session is marked initialized whatever storage held, and
// incomplete stored data is cleared.
func (c *Container) InitializeAuth() State {
	c.initOnce.Do(func() {
		token, hasToken := c.store.StoredToken()
		user, hasUser := c.store.StoredUser()

		if hasToken && hasUser {
			c.update(func(s *State) {
				s.Token = token
				s.User = user
				s.IsAuthenticated = true
				s.IsInitialized = true
			})
			c.logger.Info("session restored", "user", user.DisplayName())
			return
		}

		c.store.ClearAuthData()
		c.update(func(s *State) {
			s.Token = ""
			s.User = nil
			s.IsAuthenticated = false
			s.IsInitialized = true
		})
		c.logger.Debug("no stored session")
	})
	return c.State()
}

// Sync reconciles the in-memory session with storage after an external
// change, such as a logout or a profile edit from another process. Storage
// wins; storage is never written here.
func (c *Container) Sync() State {
	token, hasToken := c.store.StoredToken()
	user, hasUser := c.store.StoredUser()
	persisted := hasToken && hasUser

	c.mu.Lock()
	if !c.state.IsInitialized {
		c.mu.Unlock()
		return c.State()
	}
	cur := c.state
	c.mu.Unlock()

	switch {
	case persisted && (!cur.IsAuthenticated || cur.Token != token || !cur.User.Equal(user)):
		c.logger.Info("session adopted from storage", "user", user.DisplayName())
		return c.update(func(s *State) {
			s.Token = token
			s.User = user
			s.IsAuthenticated = true
			s.Error = ""
		})
	case !persisted && cur.IsAuthenticated:
		c.logger.Info("session invalidated by storage change")
		return c.update(func(s *State) {
			s.Token = ""
			s.User = nil
			s.IsAuthenticated = false
		})
	default:
		return c.State()
	}
}

package session

import (
	"context"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// The async operations below each run pending -> fulfilled | rejected.
// Failures are recorded in State.Error and never returned.

func (c *Container) begin() {
	c.update(func(s *State) {
		c.inFlight++
		s.Loading = true
		s.Error = ""
	})
}

// settle finishes an operation: apply runs under the lock, then Loading
// reflects whatever is still in flight.
func (c *Container) settle(apply func(s *State)) State {
	return c.update(func(s *State) {
		c.inFlight--
		apply(s)
		s.Loading = c.inFlight > 0
	})
}

func (c *Container) reject(op string, err error) State {
	c.logger.Warn("auth request failed", "op", op, "error", err)
	return c.settle(func(s *State) {
		s.Error = err.Error()
	})
}

// LoginAsync authenticates with the backend. A call made while another
// login is pending is ignored and returns the current state.
func (c *Container) LoginAsync(ctx context.Context, creds domain.Credentials) State {
	st, _ := c.TryLoginAsync(ctx, creds)
	return st
}

// TryLoginAsync is LoginAsync for callers that must tell an ignored call
// apart from a settled one. It returns domain.ErrLoginInProgress, with the
// state untouched, when another login is pending; backend failures are
// still recorded in State.Error.
func (c *Container) TryLoginAsync(ctx context.Context, creds domain.Credentials) (State, error) {
	c.mu.Lock()
	if c.loginPending {
		c.mu.Unlock()
		c.logger.Debug("login already in progress")
		return c.State(), domain.ErrLoginInProgress
	}
	c.loginPending = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loginPending = false
		c.mu.Unlock()
	}()

	c.begin()
	payload, err := c.api.Login(ctx, creds)
	if err == nil && (payload == nil || !IsValidToken(payload.Token)) {
		err = domain.ErrMissingToken
	}
	if err == nil && payload.User == nil {
		err = domain.ErrMissingUser
	}
	if err != nil {
		c.logger.Warn("auth request failed", "op", "login", "error", err)
		return c.settle(func(s *State) {
			s.Error = err.Error()
			s.IsAuthenticated = false
		}), nil
	}

	st := c.settle(func(s *State) {
		s.Token = payload.Token
		s.User = payload.User.Clone()
		s.IsAuthenticated = true
		s.Error = ""
	})
	c.store.StoreAuthData(payload.Token, payload.User)
	c.logger.Info("logged in", "user", payload.User.DisplayName())
	return st, nil
}

// RegisterAsync creates an admin account. The session is not
// authenticated; the caller logs in separately.
func (c *Container) RegisterAsync(ctx context.Context, reg domain.Registration) State {
	c.begin()
	if err := c.api.Register(ctx, reg); err != nil {
		return c.reject("register", err)
	}
	c.logger.Info("admin registered", "email", reg.Email)
	return c.settle(func(s *State) {
		s.Error = ""
	})
}

// GetProfileAsync refreshes the admin record from the backend
func (c *Container) GetProfileAsync(ctx context.Context) State {
	c.begin()
	user, err := c.api.Profile(ctx)
	if err == nil && user == nil {
		err = domain.ErrMissingUser
	}
	if err != nil {
		return c.reject("profile", err)
	}
	return c.replaceUser(user)
}

// UpdateProfileAsync saves profile changes and adopts the returned record
func (c *Container) UpdateProfileAsync(ctx context.Context, update domain.ProfileUpdate) State {
	c.begin()
	user, err := c.api.UpdateProfile(ctx, update)
	if err == nil && user == nil {
		err = domain.ErrMissingUser
	}
	if err != nil {
		return c.reject("update_profile", err)
	}
	return c.replaceUser(user)
}

// replaceUser stores a fresh admin record under the existing token
func (c *Container) replaceUser(user *domain.User) State {
	var token string
	st := c.settle(func(s *State) {
		s.User = user.Clone()
		s.Error = ""
		token = s.Token
	})
	c.store.StoreAuthData(token, user)
	return st
}

// ChangePasswordAsync rotates the password; the session itself is unchanged
func (c *Container) ChangePasswordAsync(ctx context.Context, change domain.PasswordChange) State {
	c.begin()
	if err := c.api.ChangePassword(ctx, change); err != nil {
		return c.reject("change_password", err)
	}
	c.logger.Info("password changed")
	return c.settle(func(s *State) {
		s.Error = ""
	})
}

// LogoutAsync ends the session. There is no remote logout endpoint, so
// this always fulfills.
func (c *Container) LogoutAsync(ctx context.Context) State {
	c.begin()
	c.store.ClearAuthData()
	st := c.settle(func(s *State) {
		s.Token = ""
		s.User = nil
		s.IsAuthenticated = false
		s.Error = ""
	})
	c.logger.Info("session cleared")
	return st
}

package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// Admin record keys used across backend versions
var userKeys = []string{"admin", "user"}

type loginPayload struct {
	Admin *domain.User `json:"admin"`
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Login exchanges credentials for a token and admin record. Both nested
// ({data:{admin,token}}) and flat ({admin,token}) bodies are accepted.
// The payload is returned as received; callers check its completeness.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, "/admin/login", creds)
	if err != nil {
		return nil, err
	}

	var p loginPayload
	if err := c.decode(resp, &p); err != nil {
		return nil, err
	}

	user := p.Admin
	if user == nil {
		user = p.User
	}
	return &domain.AuthPayload{Token: p.Token, User: user}, nil
}

// Register creates an admin account
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	_, err := c.sendJSON(ctx, http.MethodPost, "/admin/register", reg)
	return err
}

// Profile fetches the authenticated admin
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	resp, err := c.get(ctx, "/admin/profile", nil)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(resp)
}

// UpdateProfile saves profile changes and returns the stored record
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	resp, err := c.sendJSON(ctx, http.MethodPut, "/admin/profile", update)
	if err != nil {
		return nil, err
	}
	return c.decodeUser(resp)
}

// ChangePassword rotates the authenticated admin's password
func (c *Client) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	_, err := c.sendJSON(ctx, http.MethodPut, "/admin/change-password", change)
	return err
}

// ListAdmins returns every admin account
func (c *Client) ListAdmins(ctx context.Context) ([]domain.User, error) {
	resp, err := c.get(ctx, "/admin/all", nil)
	if err != nil {
		return nil, err
	}

	admins := []domain.User{}
	if err := c.decode(resp, &admins, "admins"); err != nil {
		return nil, err
	}
	return admins, nil
}

// decodeUser returns nil without error when the response carries no record
func (c *Client) decodeUser(resp *response) (*domain.User, error) {
	var user domain.User
	found, err := decodeKey(resp.body, &user, userKeys...)
	if err != nil {
		return nil, decodeError(resp.status, err, resp.requestID)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

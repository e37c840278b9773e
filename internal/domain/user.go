package domain

import "time"

// User is the admin record returned by the backend and mirrored into the
// persisted session. Only Name and Email are guaranteed; the remaining
// fields are carried through untouched.
type User struct {
	ID         string     `json:"_id,omitempty"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Department string     `json:"department,omitempty"`
	Role       string     `json:"role,omitempty"`
	IsActive   *bool      `json:"isActive,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// DisplayName returns the name, falling back to the email address
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Clone returns a deep copy so callers cannot mutate shared state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.IsActive != nil {
		v := *u.IsActive
		c.IsActive = &v
	}
	if u.CreatedAt != nil {
		v := *u.CreatedAt
		c.CreatedAt = &v
	}
	if u.UpdatedAt != nil {
		v := *u.UpdatedAt
		c.UpdatedAt = &v
	}
	return &c
}

// Equal reports whether u and o describe the same record field by field
func (u *User) Equal(o *User) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.ID == o.ID &&
		u.Name == o.Name &&
		u.Email == o.Email &&
		u.Phone == o.Phone &&
		u.Department == o.Department &&
		u.Role == o.Role &&
		equalPtr(u.IsActive, o.IsActive, func(a, b bool) bool { return a == b }) &&
		equalPtr(u.CreatedAt, o.CreatedAt, time.Time.Equal) &&
		equalPtr(u.UpdatedAt, o.UpdatedAt, time.Time.Equal)
}

func equalPtr[T any](a, b *T, eq func(T, T) bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return eq(*a, *b)
}

// Credentials is the login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the admin registration request body
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

// ProfileUpdate is the profile update request body
type ProfileUpdate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

// PasswordChange is the change-password request body
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthPayload is the normalized result of a successful login
type AuthPayload struct {
	Token string
	User  *User
}

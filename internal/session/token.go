package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const previewLength = 20

// TokenInfo describes a bearer token for status displays. Claims are read
// without verifying the signature; the backend remains the only authority.
type TokenInfo struct {
	Valid     bool       `json:"valid"`
	Preview   string     `json:"preview,omitempty"`
	JWT       bool       `json:"jwt"`
	Subject   string     `json:"subject,omitempty"`
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

// InspectToken reports what can be learned from token without the backend
func InspectToken(token string, now time.Time) TokenInfo {
	info := TokenInfo{Valid: IsValidToken(token)}
	if !info.Valid {
		return info
	}
	info.Preview = Redact(token)

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}

	info.JWT = true
	info.Subject = claims.Subject
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
		info.Expired = !now.Before(t)
	}
	return info
}

// Redact shortens token for display
func Redact(token string) string {
	if len(token) <= previewLength {
		return token
	}
	return token[:previewLength] + "..."
}

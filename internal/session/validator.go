package session

import "strings"

// IsValidToken reports whether token can be used as a bearer credential.
// The literals "null" and "undefined" are stringified absent values that
// older clients leaked into storage.
func IsValidToken(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	return token != "null" && token != "undefined"
}

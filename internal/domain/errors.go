package domain

import "errors"

// Session errors
var (
	ErrInvalidSession   = errors.New("invalid session data")
	ErrMissingToken     = errors.New("response did not include a token")
	ErrMissingUser      = errors.New("response did not include an admin record")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrLoginInProgress  = errors.New("login already in progress")
)

// Donation errors
var (
	ErrDonationOutOfRange = errors.New("donation amount out of range")
)

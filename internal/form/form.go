// Package form validates operator input before anything is sent to the
// backend.
package form

import (
	"errors"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

const (
	// MinPasswordLength is the shortest password the backend accepts
	MinPasswordLength = 6

	// DefaultRegion is assumed for phone numbers without a country code
	DefaultRegion = "US"
)

var errPasswordMismatch = errors.New("passwords do not match")

// Registration is the admin sign-up form
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone"`
	Department      string `json:"department"`
}

func (r Registration) trimmed() Registration {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Department = strings.TrimSpace(r.Department)
	return r
}

// Validate checks the form without contacting the backend
func (r Registration) Validate() error {
	r = r.trimmed()
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(equals(r.Password))),
		validation.Field(&r.Phone, validation.By(validPhone)),
		validation.Field(&r.Department, validation.Length(0, 100)),
	)
}

// Domain validates the form and returns the request body to send
func (r Registration) Domain() (domain.Registration, error) {
	if err := r.Validate(); err != nil {
		return domain.Registration{}, err
	}
	r = r.trimmed()
	return domain.Registration{
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		Phone:      NormalizePhone(r.Phone),
		Department: r.Department,
	}, nil
}

// Credentials is the login form
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the form without contacting the backend
func (c Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Domain validates the form and returns the request body to send
func (c Credentials) Domain() (domain.Credentials, error) {
	if err := c.Validate(); err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Email: strings.TrimSpace(c.Email), Password: c.Password}, nil
}

// PasswordChange is the change-password form
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks the form without contacting the backend
func (p PasswordChange) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&p.ConfirmPassword, validation.Required, validation.By(equals(p.NewPassword))),
	)
}

// Domain validates the form and returns the request body to send
func (p PasswordChange) Domain() (domain.PasswordChange, error) {
	if err := p.Validate(); err != nil {
		return domain.PasswordChange{}, err
	}
	return domain.PasswordChange{CurrentPassword: p.CurrentPassword, NewPassword: p.NewPassword}, nil
}

// ProfileUpdate is the edit-profile form
type ProfileUpdate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

func (p ProfileUpdate) trimmed() ProfileUpdate {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Department = strings.TrimSpace(p.Department)
	return p
}

// ProfileFrom prefills the form with the current record
func ProfileFrom(u *domain.User) ProfileUpdate {
	if u == nil {
		return ProfileUpdate{}
	}
	return ProfileUpdate{Name: u.Name, Email: u.Email, Phone: u.Phone, Department: u.Department}
}

// Validate checks the form without contacting the backend
func (p ProfileUpdate) Validate() error {
	p = p.trimmed()
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Phone, validation.By(validPhone)),
		validation.Field(&p.Department, validation.Length(0, 100)),
	)
}

// Domain validates the form and returns the request body to send
func (p ProfileUpdate) Domain() (domain.ProfileUpdate, error) {
	if err := p.Validate(); err != nil {
		return domain.ProfileUpdate{}, err
	}
	p = p.trimmed()
	return domain.ProfileUpdate{
		Name:       p.Name,
		Email:      p.Email,
		Phone:      NormalizePhone(p.Phone),
		Department: p.Department,
	}, nil
}

// Donation is the donor form. Amount is in dollars as typed.
type Donation struct {
	Amount   float64             `json:"amount"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Type     domain.DonationType `json:"type"`
	Currency domain.Currency     `json:"currency"`
}

// Validate checks the form without contacting the backend
func (d Donation) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)

	currencies := make([]interface{}, len(domain.SupportedCurrencies))
	for i, c := range domain.SupportedCurrencies {
		currencies[i] = c
	}

	return validation.ValidateStruct(&d,
		validation.Field(&d.Amount, validation.Required,
			validation.Min(domain.MinDonationAmount),
			validation.Max(float64(domain.MaxDonationAmount))),
		validation.Field(&d.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&d.Email, validation.Required, is.Email),
		validation.Field(&d.Type, validation.In(
			domain.DonationGeneral,
			domain.DonationEmergency,
			domain.DonationMedical,
			domain.DonationEducation,
			domain.DonationInfrastructure,
		)),
		validation.Field(&d.Currency, validation.In(currencies...)),
	)
}

// Domain validates the form and converts the amount to cents
func (d Donation) Domain() (domain.DonationRequest, error) {
	if err := d.Validate(); err != nil {
		return domain.DonationRequest{}, err
	}

	req := domain.DonationRequest{
		AmountCents: int64(math.Round(d.Amount * 100)),
		DonorName:   strings.TrimSpace(d.Name),
		DonorEmail:  strings.TrimSpace(d.Email),
		Type:        d.Type,
		Currency:    d.Currency,
	}
	if req.Type == "" {
		req.Type = domain.DonationGeneral
	}
	if req.Currency == "" {
		req.Currency = domain.CurrencyUSD
	}
	return req, nil
}

// equals checks that a confirmation field matches its source
func equals(want string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return errPasswordMismatch
		}
		return nil
	}
}

func validPhone(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// NormalizePhone formats a valid number as E.164. Anything else is
// returned unchanged.
func NormalizePhone(s string) string {
	if s == "" {
		return ""
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

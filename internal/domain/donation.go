package domain

import (
	"fmt"
	"time"
)

// Donation amount limits in dollars
const (
	MinDonationAmount = 0.50
	MaxDonationAmount = 1000000
)

// DonationType classifies what a donation supports
type DonationType string

const (
	DonationGeneral        DonationType = "general"
	DonationEmergency      DonationType = "emergency"
	DonationMedical        DonationType = "medical"
	DonationEducation      DonationType = "education"
	DonationInfrastructure DonationType = "infrastructure"
)

// Currency is a lowercase ISO currency code accepted by the processor
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"
	CurrencyCAD Currency = "cad"
	CurrencyAUD Currency = "aud"
)

// SupportedCurrencies lists the currencies the processor accepts
var SupportedCurrencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCAD, CurrencyAUD}

// DonationRequest is a donor's pledge before a payment intent exists.
// AmountCents is in the smallest currency unit.
type DonationRequest struct {
	AmountCents int64
	DonorName   string
	DonorEmail  string
	Type        DonationType
	Currency    Currency
}

// Dollars converts the cent amount to the backend's decimal unit
func (r DonationRequest) Dollars() float64 {
	return float64(r.AmountCents) / 100
}

// CheckLimits reports whether the amount is inside the processor limits
func (r DonationRequest) CheckLimits() error {
	amount := r.Dollars()
	if amount < MinDonationAmount || amount > MaxDonationAmount {
		return fmt.Errorf("%w: %.2f (allowed %.2f to %.0f)", ErrDonationOutOfRange, amount, MinDonationAmount, float64(MaxDonationAmount))
	}
	return nil
}

// PaymentIntent is the processor handle returned by the backend
type PaymentIntent struct {
	ID           string  `json:"paymentIntentId"`
	ClientSecret string  `json:"clientSecret"`
	DonationID   string  `json:"donationId,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
}

// Donation is a recorded donation
type Donation struct {
	ID              string     `json:"_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency,omitempty"`
	Status          string     `json:"status,omitempty"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
}

// PaymentStats summarizes donations for the dashboard
type PaymentStats struct {
	TotalDonations  int     `json:"totalDonations"`
	TotalAmount     float64 `json:"totalAmount"`
	AverageAmount   float64 `json:"averageAmount"`
	SuccessfulCount int     `json:"successfulCount"`
	PendingCount    int     `json:"pendingCount"`
	FailedCount     int     `json:"failedCount"`
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// PaymentService records donations. Card details never pass through here;
// the processor's hosted widget collects and confirms them.
type PaymentService struct {
	c *Client
}

// DonationQuery filters the donation listing
type DonationQuery struct {
	Page   int
	Limit  int
	Status string
}

func (q DonationQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}

type createIntentBody struct {
	Amount float64 `json:"amount"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
}

// CreateIntent opens a payment intent for the donation. The amount is sent
// in dollars.
func (s *PaymentService) CreateIntent(ctx context.Context, req domain.DonationRequest) (*domain.PaymentIntent, error) {
	if err := req.CheckLimits(); err != nil {
		return nil, err
	}

	resp, err := s.c.sendJSON(ctx, http.MethodPost, "/payment/create-intent", createIntentBody{
		Amount: req.Dollars(),
		Name:   req.DonorName,
		Email:  req.DonorEmail,
	})
	if err != nil {
		return nil, err
	}

	var intent domain.PaymentIntent
	if err := s.c.decode(resp, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Confirm tells the backend a payment intent completed
func (s *PaymentService) Confirm(ctx context.Context, intentID string) (*domain.Donation, error) {
	resp, err := s.c.sendJSON(ctx, http.MethodPost, "/payment/confirm", map[string]string{
		"paymentIntentId": intentID,
	})
	if err != nil {
		return nil, err
	}

	var donation domain.Donation
	if err := s.c.decode(resp, &donation, "donation"); err != nil {
		return nil, err
	}
	return &donation, nil
}

// Donation fetches one donation
func (s *PaymentService) Donation(ctx context.Context, id string) (*domain.Donation, error) {
	resp, err := s.c.get(ctx, "/payment/donation/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var donation domain.Donation
	if err := s.c.decode(resp, &donation, "donation"); err != nil {
		return nil, err
	}
	return &donation, nil
}

// Donations lists donations; admin only
func (s *PaymentService) Donations(ctx context.Context, q DonationQuery) ([]domain.Donation, error) {
	resp, err := s.c.get(ctx, "/payment/donations", q.values())
	if err != nil {
		return nil, err
	}

	donations := []domain.Donation{}
	if err := s.c.decode(resp, &donations, "donations"); err != nil {
		return nil, err
	}
	return donations, nil
}

// Stats summarizes donations; admin only
func (s *PaymentService) Stats(ctx context.Context) (*domain.PaymentStats, error) {
	resp, err := s.c.get(ctx, "/payment/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats domain.PaymentStats
	if err := s.c.decode(resp, &stats, "stats"); err != nil {
		return nil, err
	}
	return &stats, nil
}

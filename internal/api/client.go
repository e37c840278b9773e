package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "http://localhost:5100/api"
	DefaultTimeout = 15 * time.Second

	DefaultUploadTimeout = 10 * time.Minute

	maxResponseSize = 10 << 20
)

// TokenSource supplies the bearer token attached to outgoing requests
type TokenSource interface {
	StoredToken() (string, bool)
}

// Config holds configuration for the backend client
type Config struct {
	BaseURL string
	// Timeout bounds each call including retries. Zero disables it.
	Timeout time.Duration

	EnableRetry          bool
	RetryAttempts        int
	RetryDelay           time.Duration
	EnableCircuitBreaker bool
	// MaxConcurrentUploads bounds video uploads in flight; each buffers
	// the whole file. Zero means the default of 2.
	MaxConcurrentUploads int

	// UploadTimeout replaces Timeout for video uploads. Zero means
	// DefaultUploadTimeout.
	UploadTimeout time.Duration

	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		Timeout:              DefaultTimeout,
		UploadTimeout:        DefaultUploadTimeout,
		EnableRetry:          true,
		RetryAttempts:        3,
		RetryDelay:           500 * time.Millisecond,
		EnableCircuitBreaker: true,
	}
}

// Client talks to the nonprofit backend API
type Client struct {
	baseURL    string
	timeout    time.Duration
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger

	breaker circuitbreaker.CircuitBreaker[*response]
	retrier retry.Retry[*response]

	Videos   *VideoService
	Payments *PaymentService
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string

	// timeout overrides the client timeout when positive
	timeout time.Duration
}

type response struct {
	status    int
	body      []byte
	requestID string
}

// New creates a backend client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		tokens:     cfg.Tokens,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}

	if cfg.EnableCircuitBreaker {
		c.breaker = circuitbreaker.New[*response](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				c.logger.Warn("circuit breaker state change",
					"base_url", c.baseURL,
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.RetryAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.RetryDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		c.retrier = retry.New[*response](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	c.Videos = newVideoService(c, cfg.MaxConcurrentUploads, uploadTimeout)
	c.Payments = &PaymentService{c: c}
	return c
}

// newHTTPClient leaves the overall deadline to the per-call context
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   5,
			ForceAttemptHTTP2:     true,
		},
	}
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func isRetryable(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*response, error) {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query})
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (*response, error) {
	req := request{method: method, path: path}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		req.body = body
		req.contentType = "application/json"
	}
	return c.do(ctx, req)
}

// do sends req through the circuit breaker, retrying idempotent reads.
// Non-2xx responses come back as *Error.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	timeout := c.timeout
	if req.timeout > 0 {
		timeout = req.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := uuid.New().String()
	op := func(ctx context.Context) (*response, error) {
		return c.roundTrip(ctx, req, requestID)
	}
	if c.retrier != nil && req.method == http.MethodGet {
		attempt := op
		op = func(ctx context.Context) (*response, error) {
			return c.retrier.Do(ctx, attempt)
		}
	}
	if c.breaker != nil {
		guarded := op
		op = func(ctx context.Context) (*response, error) {
			return c.breaker.Execute(ctx, guarded)
		}
	}

	start := time.Now()
	resp, err := op(ctx)
	if err == nil && (resp.status < 200 || resp.status >= 300) {
		err = statusError(resp.status, messageOf(resp.body), requestID)
	}
	if err != nil {
		apiErr := asError(err, requestID)
		c.logger.Warn("api request failed",
			"method", req.method,
			"path", req.path,
			"status", apiErr.Status,
			"kind", string(apiErr.Kind),
			"error", apiErr.Message,
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, apiErr
	}

	c.logger.Debug("api request",
		"method", req.method,
		"path", req.path,
		"status", resp.status,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// asError converts anything the resilience wrappers return into *Error
func asError(err error, requestID string) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err, requestID)
	}
	return transportError(err, requestID)
}

func (c *Client) roundTrip(ctx context.Context, req request, requestID string) (*response, error) {
	httpReq, err := c.newRequest(ctx, req, requestID)
	if err != nil {
		return nil, transportError(err, requestID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err, requestID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classify(err, requestID)
	}

	// Throttling and server faults count against the breaker and may be
	// retried; other statuses are answers.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, statusError(resp.StatusCode, messageOf(body), requestID)
	}
	return &response{status: resp.StatusCode, body: body, requestID: requestID}, nil
}

func classify(err error, requestID string) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(err, requestID)
	}
	return transportError(err, requestID)
}

func (c *Client) newRequest(ctx context.Context, req request, requestID string) (*http.Request, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	c.authorize(httpReq)
	return httpReq, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token, ok := c.tokens.StoredToken(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) decode(resp *response, v any, keys ...string) error {
	if err := decodePayload(resp.body, v, keys...); err != nil {
		return decodeError(resp.status, err, resp.requestID)
	}
	return nil
}

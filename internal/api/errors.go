package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request
type Kind string

const (
	KindTransport Kind = "transport"
	KindHTTP      Kind = "http"
	KindTimeout   Kind = "timeout"
	KindDecode    Kind = "decode"
)

// ErrInvalidUpload is returned before any request when an upload lacks a
// title or content.
var ErrInvalidUpload = errors.New("video upload requires a title and content")

// Error is a failed API call. Message is suitable for showing to the user.
type Error struct {
	Kind      Kind
	Status    int
	Message   string
	RequestID string
	cause     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Temporary reports whether retrying the same request may succeed. A
// timeout has already used the whole call budget.
func (e *Error) Temporary() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindHTTP:
		return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

func statusError(status int, message, requestID string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &Error{Kind: KindHTTP, Status: status, Message: message, RequestID: requestID}
}

func transportError(err error, requestID string) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("request failed: %v", err), RequestID: requestID, cause: err}
}

func timeoutError(err error, requestID string) *Error {
	return &Error{Kind: KindTimeout, Message: "request timed out", RequestID: requestID, cause: err}
}

func decodeError(status int, err error, requestID string) *Error {
	return &Error{Kind: KindDecode, Status: status, Message: fmt.Sprintf("decode response: %v", err), RequestID: requestID, cause: err}
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

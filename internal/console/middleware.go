package console

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/outreach/internal/guard"
)

// RequestIDHeader carries the request ID in both directions. The backend
// client sends the same header, so one ID can be followed across logs.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

type requestIDKey struct{}

// RequestID returns the ID assigned to the request carried by ctx
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// acceptableRequestID reports whether a caller-supplied ID can be reused
func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r < 0x21 || r > 0x7e
	})
}

// withRequestID assigns each request an ID, reusing a well-formed one
// from the caller
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !acceptableRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// statusRecorder remembers the status written through it
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// accessLog logs each request. Guard outcomes get their own messages so
// that denials stand out from ordinary traffic.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}

		location := rec.Header().Get("Location")
		switch {
		case rec.status == http.StatusSeeOther && strings.HasPrefix(location, guard.LoginPath):
			slog.Info("access denied", attrs...)
		case rec.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "":
			slog.Debug("session still loading", attrs...)
		case rec.status >= 500:
			slog.Error("request failed", attrs...)
		case rec.status >= 400:
			slog.Warn("request rejected", attrs...)
		default:
			slog.Debug("request", attrs...)
		}
	})
}

// recoverPanics turns a handler panic into a JSON 500 carrying the
// request ID
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			id := w.Header().Get(RequestIDHeader)
			slog.Error("panic recovered", "request_id", id, "panic", v, "method", r.Method, "path", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":      "internal error",
				"status":     http.StatusInternalServerError,
				"request_id": id,
			})
		}()
		next.ServeHTTP(w, r)
	})
}

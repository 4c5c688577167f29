package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLogMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := accessLogMiddleware(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusAccepted) || fields["bytes"] != int64(4) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["reload_outcome"]; ok {
		t.Fatalf("plain requests should not carry reload fields: %v", fields)
	}
}

func TestAccessLevel(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusFound, zapcore.InfoLevel},
		{http.StatusTooManyRequests, zapcore.WarnLevel},
		{http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		if got := accessLevel(tt.status); got != tt.want {
			t.Fatalf("accessLevel(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := recoveryMiddleware(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Kind != "panic" {
		t.Fatalf("expected kind panic, got %q", body.Kind)
	}
}

func TestRecoveryMiddlewareKeepsStartedResponse(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := recoveryMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}))

	underlying := httptest.NewRecorder()
	rec := &accessRecorder{ResponseWriter: underlying, status: http.StatusOK}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if underlying.Code != http.StatusAccepted || rec.status != http.StatusAccepted {
		t.Fatalf("expected the started 202 to stand, got %d", underlying.Code)
	}
	if underlying.Body.Len() != 0 {
		t.Fatalf("expected no error body after the response started, got %q", underlying.Body.String())
	}
}

func TestAccessRecorder(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &accessRecorder{ResponseWriter: underlying, status: http.StatusOK}

	if _, err := rec.Write([]byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec.WriteHeader(http.StatusTeapot)

	if rec.status != http.StatusOK || !rec.wrote {
		t.Fatalf("expected implicit 200 to be recorded, got %d", rec.status)
	}
	if rec.bytes != 3 {
		t.Fatalf("expected 3 bytes, got %d", rec.bytes)
	}
	if underlying.Code != http.StatusOK {
		t.Fatalf("expected status to propagate to ResponseWriter, got %d", underlying.Code)
	}
}

func TestRequestContextMiddleware(t *testing.T) {
	var seen string
	handler := requestContextMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "  client-id  ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "client-id" || rec.Header().Get("X-Request-ID") != "client-id" {
		t.Fatalf("expected trimmed client ID, got %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLength+1))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected overlong ID to be replaced by a UUID, got %q", seen)
	}
}

func TestWithRateLimiterOptionAppliesLimiter(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limiter to block request, got %d", rec.Code)
	}
}

func TestWithRateLimitDisablesLimiterWhenZero(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}), WithRateLimit(0, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected limiter to be disabled, got %d", rec.Code)
	}
}

func TestWithRateLimitEnforcesLimit(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimit(1, 1))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req.Clone(req.Context()))
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limiter to block second request, got %d", rec2.Code)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	id := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected generated request ID to be a UUID, got %q", id)
	}
}

func newTestRouter(t *testing.T, opts ...RouterOption) http.Handler {
	t.Helper()

	return setupTestRouter(t, nil, opts...).router
}

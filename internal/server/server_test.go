package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resumelift/internal/config"
	liftErrors "resumelift/internal/errors"
	"resumelift/internal/session"

	"github.com/sony/gobreaker/v2"
)

func newTestServer(t *testing.T, apiKeys []string) *Server {
	t.Helper()
	logger, err := liftErrors.New("error")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	cfg := &config.Config{}
	return NewServer(cfg, ServerConfig{
		Host:           "localhost",
		Port:           "8080",
		Version:        "test",
		APIKeys:        apiKeys,
		MaxRequestSize: 1024,
	}, session.NewMemoryStore(), logger)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		apiKeys    []string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "no keys configured skips auth",
			apiKeys:    nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			apiKeys:    []string{"secret-key-12345"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid x-api-key",
			apiKeys:    []string{"secret-key-12345"},
			headers:    map[string]string{"X-API-Key": "secret-key-12345"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer token",
			apiKeys:    []string{"secret-key-12345"},
			headers:    map[string]string{"Authorization": "Bearer secret-key-12345"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid key",
			apiKeys:    []string{"secret-key-12345"},
			headers:    map[string]string{"X-API-Key": "wrong"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.apiKeys)
			handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/analyze-ats", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("maskAPIKey(short) = %q, want ****", got)
	}
	if got := maskAPIKey("abcdefgh12345678"); got != "abcdefgh****" {
		t.Errorf("maskAPIKey long = %q, want abcdefgh****", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"x-forwarded-for", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"invalid xff falls through", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/analyze-ats", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-API-Key", "key-1")

	if got := getRateLimitKey(req, true, true); got != "api:key-1" {
		t.Errorf("by api key = %q, want api:key-1", got)
	}
	if got := getRateLimitKey(req, false, true); got != "ip:10.0.0.1" {
		t.Errorf("by ip = %q, want ip:10.0.0.1", got)
	}
	if got := getRateLimitKey(req, false, false); got != "" {
		t.Errorf("disabled = %q, want empty", got)
	}
}

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(60, time.Minute, 2, nil)
	defer limiter.Close()

	if !limiter.Allow("client") {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow("client") {
		t.Error("second request within burst should be allowed")
	}
	if limiter.Allow("client") {
		t.Error("third request should exceed the burst capacity")
	}
	if !limiter.Allow("other") {
		t.Error("independent key should have its own bucket")
	}
}

func TestParseDocumentKind(t *testing.T) {
	if _, err := parseDocumentKind("resume"); err != nil {
		t.Errorf("parseDocumentKind(resume) error = %v", err)
	}
	if _, err := parseDocumentKind("cover_letter"); err != nil {
		t.Errorf("parseDocumentKind(cover_letter) error = %v", err)
	}
	if _, err := parseDocumentKind("transcript"); !liftErrors.IsCode(err, liftErrors.ErrCodeInvalidRequest) {
		t.Errorf("parseDocumentKind(transcript) error = %v, want INVALID_REQUEST", err)
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		name string
		err  *liftErrors.AppError
		want int
	}{
		{"invalid request", liftErrors.NewValidationError(liftErrors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{"unsupported format", liftErrors.NewExtractionError(liftErrors.ErrCodeUnsupportedFormat, "bad", nil), http.StatusBadRequest},
		{"extraction failed", liftErrors.NewExtractionError(liftErrors.ErrCodeExtractionFailed, "bad", nil), http.StatusBadRequest},
		{"session not found", liftErrors.NewSessionError(liftErrors.ErrCodeSessionNotFound, "gone", nil), http.StatusNotFound},
		{"session exists", liftErrors.NewSessionError(liftErrors.ErrCodeSessionExists, "dup", nil), http.StatusConflict},
		{"ai timeout", liftErrors.NewAIError(liftErrors.ErrCodeAITimeout, "slow", nil), http.StatusGatewayTimeout},
		{"ai failure", liftErrors.NewAIError(liftErrors.ErrCodeAIServiceFailed, "boom", nil), http.StatusBadGateway},
		{"schema violation", liftErrors.NewAIError(liftErrors.ErrCodeSchemaViolation, "shape", nil), http.StatusBadGateway},
		{"breaker open", liftErrors.NewAIError(liftErrors.ErrCodeAIServiceFailed, "open", gobreaker.ErrOpenState), http.StatusServiceUnavailable},
		{"config error", liftErrors.NewConfigError(liftErrors.ErrCodeInvalidConfig, "cfg", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForCode(tt.err, tt.err); got != tt.want {
				t.Errorf("statusForCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	s := newTestServer(t, nil)
	handler := s.requestSizeLimitMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	body := make([]byte, 2048) // over the 1024 limit
	req := httptest.NewRequest(http.MethodPost, "/analyze-ats", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

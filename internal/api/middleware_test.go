package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastx-gateway/internal/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		allowAnon  bool
		header     string
		value      string
		wantStatus int
	}{
		{"no keys rejects", nil, false, "", "", http.StatusUnauthorized},
		{"no keys with allow_unauthenticated", nil, true, "", "", http.StatusOK},
		{"valid api key", []string{"good-key"}, false, "X-API-Key", "good-key", http.StatusOK},
		{"valid bearer token", []string{"good-key"}, false, "Authorization", "Bearer good-key", http.StatusOK},
		{"invalid key", []string{"good-key"}, false, "X-API-Key", "bad-key", http.StatusUnauthorized},
		{"missing key", []string{"good-key"}, true, "", "", http.StatusUnauthorized},
		{"basic auth is not a bearer token", []string{"good-key"}, false, "Authorization", "Basic good-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/logs", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := serve(AuthMiddleware(tt.keys, tt.allowAnon)(okHandler), req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "AUTH_REQUIRED")
			}
		})
	}
}

func TestServer_AuthSkipsInfrastructureRoutes(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) {
		c.Security.AllowedKeys = []string{"secret"}
		c.Security.AllowUnauthenticated = false
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/openapi.yaml", nil).Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/logs", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/logs", nil, "X-API-Key", "secret").Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rec = serve(h, req)
	assert.Equal(t, "client-id-1", seen)
	assert.Equal(t, "client-id-1", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	serve(h, req)
	assert.Len(t, seen, 36)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := serve(SecurityHeadersMiddleware(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.example.org"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.org")
	rec := serve(h, req)
	assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := CORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/seqkit/stats", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimitMiddleware(ctx, 1, 2)(okHandler)

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(h, req).Code
	}

	assert.Equal(t, http.StatusOK, request("192.0.2.1:1000"))
	assert.Equal(t, http.StatusOK, request("192.0.2.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, request("192.0.2.1:1002"))

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, request("192.0.2.2:1000"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	h := RateLimitMiddleware(context.Background(), 0, 0)(okHandler)
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestVisitorLimiter_Sweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	vl := newVisitorLimiter(10, 10)
	vl.now = func() time.Time { return now }

	vl.allow("a")
	now = now.Add(10 * time.Minute)
	vl.allow("b")
	vl.sweep()

	assert.NotContains(t, vl.visitors, "a")
	assert.Contains(t, vl.visitors, "b")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RequestIDMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), internalErrorMessage)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMaxBodyMiddleware(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) {
		c.Server.MaxRequestBody = 64
	})

	rec := env.do(t, http.MethodPost, "/manipulate/reverse-complement",
		ReverseComplementRequest{ContentRequest: ContentRequest{Content: ">s\n" + strings.Repeat("A", 200)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "request body exceeds 64 bytes")
}

func TestLoggingMiddleware_PassesFlush(t *testing.T) {
	var flushable bool
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, flushable)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	rec := newTestEnv(t, nil).do(t, http.MethodGet, "/no/such/route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, rec).Code)
}

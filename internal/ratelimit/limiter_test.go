package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbok-backend/internal/config"
	"github.com/dagbok-backend/internal/model"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		DefaultCapacity: 100,
		DefaultRefill:   time.Minute,
		AuthCapacity:    1,
		AuthRefill:      5 * time.Minute,
		DemoCapacity:    1,
		DemoRefill:      10 * time.Minute,
		MeCapacity:      200,
		MeRefill:        time.Minute,
		IdleEviction:    time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLimiter_LoginFloodGets429(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(testConfig(), nil)
	handler := limiter.Middleware(okHandler())

	// Auth class allows 1 per 5 minutes; requests 2-5 must be denied.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}

		require.Equal(t, http.StatusTooManyRequests, rec.Code, "request %d", i+1)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))

		var body struct {
			Error      string `json:"error"`
			RetryAfter int    `json:"retryAfter"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Too many requests", body.Error)
		assert.GreaterOrEqual(t, body.RetryAfter, 1)
		assert.LessOrEqual(t, body.RetryAfter, 300)
	}
}

func TestLimiter_RouteClassesAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(testConfig(), nil)
	handler := limiter.Middleware(okHandler())

	// Drain the auth bucket for this IP.
	req := httptest.NewRequest(http.MethodPost, "/user/register", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Default class still admits for the same IP.
	req = httptest.NewRequest(http.MethodGet, "/api/notes/user", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimiter_DistinctIPsHaveDistinctBudgets(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(testConfig(), nil)
	handler := limiter.Middleware(okHandler())

	for _, addr := range []string{"10.1.0.1:80", "10.1.0.2:80", "10.1.0.3:80"} {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "first login from %s", addr)
	}
}

func TestLimiter_ForwardedForTakesPrecedence(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(testConfig(), nil)
	handler := limiter.Middleware(okHandler())

	// Same forwarded client behind different sockets shares one bucket.
	for i, addr := range []string{"10.2.0.1:80", "10.2.0.2:80"} {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = addr
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.2.0.254")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestLimiter_KeysByPrincipalWhenAuthenticated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	principalFn := func(r *http.Request) *model.Principal {
		if r.Header.Get("Authorization") == "" {
			return nil
		}
		return &model.Principal{UserID: userID, Email: "alice@example.com"}
	}

	limiter := NewLimiter(testConfig(), principalFn)
	handler := limiter.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.RemoteAddr = "10.3.0.1:80"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same user from another IP shares the same drained bucket.
	req = httptest.NewRequest(http.MethodPost, "/user/login", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.RemoteAddr = "10.3.0.2:80"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLimiter_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Enabled = false

	limiter := NewLimiter(cfg, nil)
	handler := limiter.Middleware(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.RemoteAddr = "10.4.0.1:80"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

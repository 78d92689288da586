package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if !rl.Allow("alice@example.com") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if rl.Allow("alice@example.com") {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_DifferentUsers(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice@example.com") {
			t.Errorf("alice request %d should be allowed", i+1)
		}
	}
	if rl.Allow("alice@example.com") {
		t.Error("alice should be rate limited")
	}

	// bob keeps his full burst
	for i := 0; i < 3; i++ {
		if !rl.Allow("bob@example.com") {
			t.Errorf("bob request %d should be allowed", i+1)
		}
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware_SkipsWithoutSession(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(1, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/rewrite", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200 without a session, got %d", rec.Code)
		}
	}
}

func TestRateLimitMiddleware_LimitsPerUser(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(10, 2)
	defer rl.Stop()

	session := &service.UserSession{
		User:      &domain.User{ID: uuid.New(), Email: "Alice@Example.com"},
		Workspace: &domain.Workspace{ID: uuid.New()},
	}
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/rewrite", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		WithSession(c, session)
		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := call()
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "10" {
			t.Errorf("Request %d: Expected X-RateLimit-Limit 10, got %q", i+1, rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := call()
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

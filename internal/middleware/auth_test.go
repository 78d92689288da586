package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// fakeVerifier accepts exactly one token
type fakeVerifier struct {
	token  string
	claims *validator.ValidatedClaims
}

func (v *fakeVerifier) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	if token != v.token {
		return nil, errors.New("signature invalid")
	}
	return v.claims, nil
}

// fakeSessions records the principals it is asked to resolve
type fakeSessions struct {
	err        error
	principals []domain.Principal
}

func (s *fakeSessions) Authenticate(ctx context.Context, principal domain.Principal) (*service.UserSession, error) {
	s.principals = append(s.principals, principal)
	if s.err != nil {
		return nil, s.err
	}
	email := principal.Email
	if email == "" {
		email = "local-" + principal.DeviceID + "@proflow.local"
	}
	return &service.UserSession{
		Principal: principal,
		User:      &domain.User{ID: uuid.New(), Email: email},
		Workspace: &domain.Workspace{ID: uuid.New(), Name: "Personal"},
	}, nil
}

func newFakeAuth(sessions *fakeSessions) *AuthMiddleware {
	return NewAuthMiddlewareWithVerifier(&fakeVerifier{
		token: "good-token",
		claims: &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|alice"},
			CustomClaims:     &CustomClaims{Email: "alice@example.com", EmailVerified: true, Name: "Alice"},
		},
	}, sessions)
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, headers map[string]string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec, c, called
}

func TestAuthMiddleware_EstablishesSession(t *testing.T) {
	sessions := &fakeSessions{}
	rec, c, called := runMiddleware(t, newFakeAuth(sessions).Authenticate(), map[string]string{
		"Authorization": "Bearer good-token",
	})

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("Expected handler to run, got status %d", rec.Code)
	}
	if len(sessions.principals) != 1 {
		t.Fatalf("Expected one session lookup, got %d", len(sessions.principals))
	}
	p := sessions.principals[0]
	if p.Subject != "auth0|alice" || p.Email != "alice@example.com" || p.Name != "Alice" || !p.EmailVerified {
		t.Errorf("Unexpected principal %+v", p)
	}
	if GetSession(c) == nil {
		t.Fatal("Expected session in context")
	}
	if GetScope(c).ActorEmail != "alice@example.com" {
		t.Errorf("Expected scope actor alice@example.com, got %s", GetScope(c).ActorEmail)
	}
	if GetPrincipal(c).Subject != "auth0|alice" {
		t.Errorf("Expected principal in context")
	}
	if GetCustomClaims(c) == nil || GetCustomClaims(c).Email != "alice@example.com" {
		t.Errorf("Expected custom claims in context")
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "Missing authorization header"},
		{"no bearer prefix", "good-token", "Invalid authorization header format"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Invalid authorization header format"},
		{"bad token", "Bearer forged", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec, _, called := runMiddleware(t, newFakeAuth(sessions).Authenticate(), headers)

			if called {
				t.Error("Handler must not run")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
			var problem problemDetails
			json.Unmarshal(rec.Body.Bytes(), &problem)
			if problem.Detail != tt.detail {
				t.Errorf("Expected detail %q, got %q", tt.detail, problem.Detail)
			}
			if len(sessions.principals) != 0 {
				t.Errorf("Expected no session lookup")
			}
		})
	}
}

func TestAuthMiddleware_SessionFailures(t *testing.T) {
	t.Run("identity rejected", func(t *testing.T) {
		sessions := &fakeSessions{err: domain.ErrUnauthorized}
		rec, _, called := runMiddleware(t, newFakeAuth(sessions).Authenticate(), map[string]string{"Authorization": "Bearer good-token"})
		if called || rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("workspaces unavailable", func(t *testing.T) {
		sessions := &fakeSessions{err: errors.New("dial tcp: connection refused")}
		rec, _, called := runMiddleware(t, newFakeAuth(sessions).Authenticate(), map[string]string{"Authorization": "Bearer good-token"})
		if called {
			t.Error("Handler must not run")
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", rec.Code)
		}
		var problem problemDetails
		json.Unmarshal(rec.Body.Bytes(), &problem)
		if problem.Category != "network" || !problem.Retryable {
			t.Errorf("Expected retryable network problem, got %+v", problem)
		}
	})
}

func TestGetters_EmptyContext(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if GetClaims(c) != nil || GetCustomClaims(c) != nil {
		t.Error("Expected no claims")
	}
	if GetSession(c) != nil {
		t.Error("Expected no session")
	}
	if !GetScope(c).IsZero() {
		t.Error("Expected zero scope")
	}
	if GetPrincipal(c) != (domain.Principal{}) {
		t.Error("Expected zero principal")
	}
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{Email: "test@example.com", Name: "Test"}
	if err := claims.Validate(context.Background()); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identityFixture struct {
	users      *testutil.MockUserRepository
	workspaces *testutil.MockWorkspaceRepository
	prefRepo   *testutil.MockPreferenceRepository
	resolver   *service.WorkspaceResolver
	identity   *service.HostedIdentityResolver
	auth       *service.AuthService
}

func newIdentityFixture() *identityFixture {
	f := &identityFixture{
		users:      testutil.NewMockUserRepository(),
		workspaces: testutil.NewMockWorkspaceRepository(),
		prefRepo:   testutil.NewMockPreferenceRepository(),
	}
	f.resolver = service.NewWorkspaceResolver(f.workspaces, f.users, time.Minute)
	f.identity = service.NewHostedIdentityResolver(f.users, f.prefRepo, f.resolver)
	f.auth = service.NewAuthService(f.identity, f.resolver, f.prefRepo)
	return f
}

// authenticate runs the real session establishment for principal
func (f *identityFixture) authenticate(t *testing.T, principal domain.Principal) *service.UserSession {
	t.Helper()
	session, err := f.auth.Authenticate(context.Background(), principal)
	require.NoError(t, err)
	return session
}

func serve(h echo.HandlerFunc, session *service.UserSession, method, target string) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(method, target, nil), rec)
	if session != nil {
		middleware.WithSession(c, session)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestMe_NewUserGetsDefaultWorkspace(t *testing.T) {
	f := newIdentityFixture()
	handler := NewAuthHandler(f.auth)

	session := f.authenticate(t, domain.Principal{Subject: "auth0|new", Email: "new@example.com", Name: "New User"})
	rec := serve(handler.Me, session, http.MethodGet, "/api/v1/auth/me")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	response := decodeBody[SessionResponse](t, rec)

	if response.User.Email != "new@example.com" {
		t.Errorf("Expected email 'new@example.com', got %s", response.User.Email)
	}
	require.NotNil(t, response.CurrentWorkspace)
	assert.True(t, response.CurrentWorkspace.IsDefault)
	assert.Equal(t, "new@example.com", response.CurrentWorkspace.OwnerEmail)
	assert.Len(t, response.AvailableWorkspaces, 1)
	assert.Equal(t, 1, f.workspaces.Count())
}

func TestMe_Unauthenticated(t *testing.T) {
	handler := NewAuthHandler(newIdentityFixture().auth)

	rec := serve(handler.Me, nil, http.MethodGet, "/api/v1/auth/me")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestLogout_ClearsActiveWorkspace(t *testing.T) {
	f := newIdentityFixture()
	handler := NewAuthHandler(f.auth)

	session := f.authenticate(t, domain.Principal{Subject: "auth0|alice", Email: "alice@example.com"})
	_, stored := f.prefRepo.Value(session.User.ID, domain.PrefActiveWorkspaceID)
	require.True(t, stored)

	rec := serve(handler.Logout, session, http.MethodPost, "/api/v1/auth/logout")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decodeBody[LogoutResponse](t, rec).Message)
	_, stored = f.prefRepo.Value(session.User.ID, domain.PrefActiveWorkspaceID)
	assert.False(t, stored)
}

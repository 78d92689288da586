package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateProfile(handler *ProfileHandler, session *service.UserSession, body interface{}) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = NewRequestValidator()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.WithSession(c, session)
	if err := handler.UpdateProfile(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGetProfile(t *testing.T) {
	f := newIdentityFixture()
	handler := NewProfileHandler(service.NewProfileService(f.identity))
	session := f.authenticate(t, domain.Principal{Subject: "auth0|alice", Email: "alice@example.com", Name: "Alice"})

	rec := serve(handler.GetProfile, session, http.MethodGet, "/api/v1/profile")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	profile := decodeBody[ProfileResponse](t, rec)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, session.User.ID.String(), profile.ID)
}

func TestUpdateProfile(t *testing.T) {
	f := newIdentityFixture()
	handler := NewProfileHandler(service.NewProfileService(f.identity))
	session := f.authenticate(t, domain.Principal{Subject: "auth0|alice", Email: "alice@example.com", Name: "Alice"})

	rec := updateProfile(handler, session, UpdateProfileRequest{FullName: "  Alice Liddell "})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alice Liddell", decodeBody[ProfileResponse](t, rec).FullName)

	stored, err := f.users.GetByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", stored.FullName)
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := newIdentityFixture()
	handler := NewProfileHandler(service.NewProfileService(f.identity))
	session := f.authenticate(t, domain.Principal{Subject: "auth0|alice", Email: "alice@example.com"})

	tests := []struct {
		name string
		body UpdateProfileRequest
	}{
		{"empty", UpdateProfileRequest{}},
		{"too long", UpdateProfileRequest{FullName: strings.Repeat("x", 256)}},
		{"blank", UpdateProfileRequest{FullName: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := updateProfile(handler, session, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
		})
	}
}

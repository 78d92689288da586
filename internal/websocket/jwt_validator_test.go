package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSessionResolver is a test double for SessionResolver
type mockSessionResolver struct {
	session   *Session
	err       error
	principal domain.Principal
}

func (m *mockSessionResolver) ResolveSession(ctx context.Context, principal domain.Principal) (*Session, error) {
	m.principal = principal
	return m.session, m.err
}

func TestValidators_ImplementTokenValidator(t *testing.T) {
	var _ TokenValidator = (*Auth0JWTValidator)(nil)
	var _ TokenValidator = (*DeviceValidator)(nil)
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{}
	err := claims.Validate(context.Background())
	assert.NoError(t, err, "CustomClaims.Validate should return nil")
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	sessions := &mockSessionResolver{}

	validator, err := NewAuth0JWTValidator("test.auth0.com", "https://api.proflow.app", sessions)
	assert.NoError(t, err)
	assert.NotNil(t, validator)
	assert.NotNil(t, validator.validator)
	assert.Equal(t, sessions, validator.sessions)
}

func TestAuth0JWTValidator_ValidateToken_InvalidJWT(t *testing.T) {
	sessions := &mockSessionResolver{session: &Session{WorkspaceID: uuid.New()}}

	validator, err := NewAuth0JWTValidator("test.auth0.com", "https://api.proflow.app", sessions)
	require.NoError(t, err)

	session, err := validator.ValidateToken(context.Background(), "invalid-token")
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestDeviceValidator(t *testing.T) {
	ws := uuid.New()
	sessions := &mockSessionResolver{session: &Session{UserEmail: "local@proflow.local", WorkspaceID: ws}}
	v := NewDeviceValidator(sessions)

	session, err := v.ValidateToken(context.Background(), "device-123")
	require.NoError(t, err)
	assert.Equal(t, ws, session.WorkspaceID)
	assert.Equal(t, "device-123", sessions.principal.DeviceID)

	_, err = v.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	sessions.err = errors.New("boom")
	_, err = v.ValidateToken(context.Background(), "device-123")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

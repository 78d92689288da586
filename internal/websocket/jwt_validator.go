package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrWorkspaceNotFound is returned when the active workspace cannot be resolved
var ErrWorkspaceNotFound = errors.New("workspace not found")

// Session is the identity and active workspace a connection is bound to
type Session struct {
	UserEmail   string
	WorkspaceID uuid.UUID
}

// SessionResolver resolves an authenticated principal to its active workspace
type SessionResolver interface {
	ResolveSession(ctx context.Context, principal domain.Principal) (*Session, error)
}

// TokenValidator authenticates the token passed when opening a connection
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Session, error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator *validator.Validator
	sessions  SessionResolver
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domainName, audience string, sessions SessionResolver) (*Auth0JWTValidator, error) {
	issuerURL, err := url.Parse("https://" + domainName + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Auth0JWTValidator{
		validator: jwtValidator,
		sessions:  sessions,
	}, nil
}

// ValidateToken validates a JWT and resolves the caller's active workspace
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (*Session, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	principal := domain.Principal{Subject: validatedClaims.RegisteredClaims.Subject}
	if custom, ok := validatedClaims.CustomClaims.(*CustomClaims); ok {
		principal.Email = custom.Email
		principal.EmailVerified = custom.EmailVerified
		principal.Name = custom.Name
	}

	session, err := v.sessions.ResolveSession(ctx, principal)
	if err != nil {
		return nil, ErrWorkspaceNotFound
	}
	return session, nil
}

// DeviceValidator accepts a device id as the token. Local identity mode only.
type DeviceValidator struct {
	sessions SessionResolver
}

// NewDeviceValidator creates a DeviceValidator
func NewDeviceValidator(sessions SessionResolver) *DeviceValidator {
	return &DeviceValidator{sessions: sessions}
}

// ValidateToken treats token as the device id
func (v *DeviceValidator) ValidateToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	session, err := v.sessions.ResolveSession(ctx, domain.Principal{DeviceID: token})
	if err != nil {
		return nil, ErrWorkspaceNotFound
	}
	return session, nil
}

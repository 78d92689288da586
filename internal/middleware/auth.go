package middleware

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"
	// SessionKey is the context key for the resolved user session
	SessionKey contextKey = "session"
)

// TokenVerifier validates a raw bearer token. *validator.Validator satisfies it.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// SessionAuthenticator resolves a principal to a user session with an active workspace
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, principal domain.Principal) (*service.UserSession, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	sessions SessionAuthenticator
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domainName, audience string, sessions SessionAuthenticator) (*AuthMiddleware, error) {
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

	return NewAuthMiddlewareWithVerifier(jwtValidator, sessions), nil
}

// NewAuthMiddlewareWithVerifier creates an AuthMiddleware around an existing verifier
func NewAuthMiddlewareWithVerifier(verifier TokenVerifier, sessions SessionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, sessions: sessions}
}

// Authenticate returns an Echo middleware that validates JWT tokens and
// establishes the caller's session
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				if c.Request().Header.Get("Authorization") == "" {
					return unauthorizedError(c, "Missing authorization header")
				}
				return unauthorizedError(c, "Invalid authorization header format")
			}
			return m.authenticateWithToken(token)(next)(c)
		}
	}
}

func (m *AuthMiddleware) authenticateWithToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := m.verifier.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "Invalid claims")
			}

			principal := domain.Principal{Subject: validatedClaims.RegisteredClaims.Subject}
			if custom, ok := validatedClaims.CustomClaims.(*CustomClaims); ok {
				principal.Email = custom.Email
				principal.EmailVerified = custom.EmailVerified
				principal.Name = custom.Name
			}

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			c.SetRequest(c.Request().WithContext(ctx))
			return establishSession(c, m.sessions, principal, next)
		}
	}
}

// establishSession resolves the principal's session and stores both in the request context
func establishSession(c echo.Context, sessions SessionAuthenticator, principal domain.Principal, next echo.HandlerFunc) error {
	session, err := sessions.Authenticate(c.Request().Context(), principal)
	if err != nil {
		return sessionError(c, err)
	}

	ctx := context.WithValue(c.Request().Context(), PrincipalKey, principal)
	ctx = context.WithValue(ctx, SessionKey, session)
	c.SetRequest(c.Request().WithContext(ctx))
	return next(c)
}

func bearerToken(c echo.Context) (string, bool) {
	parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetPrincipal extracts the authenticated principal from the context
func GetPrincipal(c echo.Context) domain.Principal {
	if principal, ok := c.Request().Context().Value(PrincipalKey).(domain.Principal); ok {
		return principal
	}
	return domain.Principal{}
}

// GetSession extracts the user session from the context
func GetSession(c echo.Context) *service.UserSession {
	if session, ok := c.Request().Context().Value(SessionKey).(*service.UserSession); ok {
		return session
	}
	return nil
}

// GetScope returns the active workspace scope of the request, or the zero scope
func GetScope(c echo.Context) domain.Scope {
	session := GetSession(c)
	if session == nil || session.User == nil || session.Workspace == nil {
		return domain.Scope{}
	}
	return session.Scope()
}

// WithSession stores session in the request context (used by tests and the websocket upgrade)
func WithSession(c echo.Context, session *service.UserSession) {
	ctx := context.WithValue(c.Request().Context(), PrincipalKey, session.Principal)
	ctx = context.WithValue(ctx, SessionKey, session)
	c.SetRequest(c.Request().WithContext(ctx))
}

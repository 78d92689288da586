package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// IdentityAuthMiddleware dispatches to the configured identity mode. Hosted
// (JWT) auth is authoritative; device auth only exists when AUTH_MODE=local.
type IdentityAuthMiddleware struct {
	jwtAuth    *AuthMiddleware
	deviceAuth *DeviceAuthMiddleware
}

// NewIdentityAuthMiddleware creates a new IdentityAuthMiddleware. Either argument may be nil.
func NewIdentityAuthMiddleware(jwtAuth *AuthMiddleware, deviceAuth *DeviceAuthMiddleware) *IdentityAuthMiddleware {
	return &IdentityAuthMiddleware{
		jwtAuth:    jwtAuth,
		deviceAuth: deviceAuth,
	}
}

// Authenticate returns an Echo middleware that uses a bearer token when hosted
// auth is configured, otherwise the device id header
func (m *IdentityAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.jwtAuth != nil {
				if token, ok := bearerToken(c); ok {
					log.Debug().Msg("Attempting JWT authentication")
					return m.jwtAuth.authenticateWithToken(token)(next)(c)
				}
			}
			if m.deviceAuth != nil && c.Request().Header.Get(DeviceIDHeader) != "" {
				log.Debug().Msg("Attempting device authentication")
				return m.deviceAuth.Authenticate()(next)(c)
			}

			if c.Request().Header.Get("Authorization") != "" && m.jwtAuth != nil {
				return unauthorizedError(c, "Invalid authorization header format")
			}
			return unauthorizedError(c, "Missing authorization header")
		}
	}
}

// RequireWorkspace rejects requests whose session has no active workspace. A
// workspace that failed to load is reported as unavailable, not unauthorized.
func RequireWorkspace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetScope(c).IsZero() {
				if session := GetSession(c); session != nil && session.ResolveErr != nil {
					return sessionError(c, session.ResolveErr)
				}
				return unauthorizedError(c, "No active workspace")
			}
			return next(c)
		}
	}
}

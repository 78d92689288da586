package middleware

import (
	"regexp"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DeviceIDHeader carries the browser's device id in local identity mode
const DeviceIDHeader = "X-Device-ID"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// DeviceAuthMiddleware authenticates requests by device id. Development only.
type DeviceAuthMiddleware struct {
	sessions SessionAuthenticator
}

// NewDeviceAuthMiddleware creates a new DeviceAuthMiddleware
func NewDeviceAuthMiddleware(sessions SessionAuthenticator) *DeviceAuthMiddleware {
	return &DeviceAuthMiddleware{sessions: sessions}
}

// Authenticate returns an Echo middleware that establishes a session for the device's pseudo-user
func (m *DeviceAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			deviceID := c.Request().Header.Get(DeviceIDHeader)
			if deviceID == "" {
				return unauthorizedError(c, "Missing device id header")
			}
			if !ValidDeviceID(deviceID) {
				log.Debug().Msg("Rejected malformed device id")
				return unauthorizedError(c, "Invalid device id")
			}
			return establishSession(c, m.sessions, domain.Principal{DeviceID: deviceID}, next)
		}
	}
}

// ValidDeviceID reports whether id is an acceptable device id
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

package middleware

import (
	"errors"
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	Category  string `json:"category,omitempty"`
	Retryable bool   `json:"retryable"`
}

// Error types
const (
	errorTypeUnauthorized = "https://proflow.app/errors/unauthorized"
	errorTypeWorkspace    = "https://proflow.app/errors/workspace-unavailable"
	errorTypeRateLimit    = "https://proflow.app/errors/rate-limit"
)

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problemDetails{
		Type:     errorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Category: string(domain.CategoryAuth),
	})
}

// sessionError reports a failure to establish the caller's session. Identity
// failures are 401; a workspace that cannot be loaded is 503 with a retry hint.
func sessionError(c echo.Context, err error) error {
	category := domain.Categorize(err)
	if errors.Is(err, domain.ErrUnauthorized) || category == domain.CategoryAuth {
		return unauthorizedError(c, "Unable to verify your identity")
	}
	log.Error().Err(err).Str("category", string(category)).Msg("Failed to establish session")
	return c.JSON(http.StatusServiceUnavailable, problemDetails{
		Type:      errorTypeWorkspace,
		Title:     "Workspace Unavailable",
		Status:    http.StatusServiceUnavailable,
		Detail:    domain.UserMessage(category),
		Instance:  c.Request().URL.Path,
		Category:  string(category),
		Retryable: domain.IsRetryable(category),
	})
}

package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// SessionResponse is the caller's identity and workspace context
type SessionResponse struct {
	User                *domain.User        `json:"user"`
	CurrentWorkspace    *domain.Workspace   `json:"current_workspace"`
	AvailableWorkspaces []*domain.Workspace `json:"available_workspaces"`
}

// LogoutResponse represents the response from logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// Me godoc
// @Summary Current session
// @Description Returns the current user with the active and available workspaces
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ProblemDetails
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	return c.JSON(http.StatusOK, SessionResponse{
		User:                session.User,
		CurrentWorkspace:    session.Workspace,
		AvailableWorkspaces: session.Workspaces,
	})
}

// Logout godoc
// @Summary Sign out
// @Description Clears the stored active workspace; the identity provider ends the token session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} LogoutResponse
// @Failure 401 {object} ProblemDetails
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if err := h.authService.SignOut(c.Request().Context(), session.User); err != nil {
		return respondError(c, err, "Failed to sign out")
	}

	log.Info().Str("user_email", session.User.Email).Msg("User logged out")

	return c.JSON(http.StatusOK, LogoutResponse{
		Message: "Logged out successfully",
	})
}

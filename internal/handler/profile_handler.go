package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// ProfileResponse represents the profile response
type ProfileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UpdateProfileRequest represents the update profile request
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	user := session.User
	return c.JSON(http.StatusOK, ProfileResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		FullName: user.FullName,
	})
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req UpdateProfileRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	user, err := h.profileService.UpdateProfile(c.Request().Context(), session, req.FullName)
	if err != nil {
		return respondError(c, err, "Failed to update profile")
	}

	log.Info().Str("user_email", user.Email).Msg("Profile updated")

	return c.JSON(http.StatusOK, ProfileResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		FullName: user.FullName,
	})
}

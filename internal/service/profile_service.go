package service

import (
	"context"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
)

// ProfileService handles profile-related business logic
type ProfileService struct {
	identity IdentityResolver
}

// NewProfileService creates a new ProfileService
func NewProfileService(identity IdentityResolver) *ProfileService {
	return &ProfileService{identity: identity}
}

// UpdateProfile updates the caller's display name through the active identity resolver
func (s *ProfileService) UpdateProfile(ctx context.Context, session *UserSession, fullName string) (*domain.User, error) {
	return s.identity.UpdateProfile(ctx, session.Principal, session.User, ProfileUpdate{FullName: fullName})
}

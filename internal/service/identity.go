package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ProfileUpdate holds the user-editable profile fields
type ProfileUpdate struct {
	FullName string
}

// IdentityResolver produces the current user for an authenticated principal
type IdentityResolver interface {
	CurrentUser(ctx context.Context, principal domain.Principal) (*domain.User, error)
	SignOut(ctx context.Context, user *domain.User) error
	UpdateProfile(ctx context.Context, principal domain.Principal, user *domain.User, update ProfileUpdate) (*domain.User, error)
}

// resolverCache is the part of WorkspaceResolver identity resolvers reset on sign-out
type resolverCache interface {
	Invalidate(email string)
}

// HostedIdentityResolver trusts the identity asserted by the Auth0 access token
type HostedIdentityResolver struct {
	userRepo domain.UserRepository
	prefRepo domain.PreferenceRepository
	cache    resolverCache
}

// NewHostedIdentityResolver creates a new HostedIdentityResolver
func NewHostedIdentityResolver(userRepo domain.UserRepository, prefRepo domain.PreferenceRepository, cache resolverCache) *HostedIdentityResolver {
	return &HostedIdentityResolver{userRepo: userRepo, prefRepo: prefRepo, cache: cache}
}

// CurrentUser upserts the user identified by the token subject and email.
// An unverified email never takes over another account or replaces the
// stored email of a known subject.
func (r *HostedIdentityResolver) CurrentUser(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	subject := strings.TrimSpace(principal.Subject)
	email := strings.TrimSpace(principal.Email)
	if subject == "" || email == "" {
		return nil, fmt.Errorf("%w: token has no subject or email", domain.ErrUnauthorized)
	}
	if !principal.EmailVerified {
		var err error
		if email, err = r.unverifiedEmail(ctx, subject, email); err != nil {
			return nil, err
		}
	}

	user, err := r.userRepo.Upsert(ctx, &domain.User{
		AuthSubject: &subject,
		Email:       email,
		FullName:    strings.TrimSpace(principal.Name),
	})
	if err != nil {
		log.Error().Err(err).Str("auth_subject", subject).Msg("Failed to upsert user")
		return nil, fmt.Errorf("resolve current user: %w", err)
	}
	return user, nil
}

// unverifiedEmail returns the email to store for a subject whose token email is
// not verified
func (r *HostedIdentityResolver) unverifiedEmail(ctx context.Context, subject, email string) (string, error) {
	known, err := r.userRepo.GetBySubject(ctx, subject)
	switch {
	case err == nil:
		return known.Email, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return "", fmt.Errorf("resolve current user: %w", err)
	}

	holder, err := r.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		log.Warn().Str("auth_subject", subject).Str("user_id", holder.ID.String()).Msg("Refused to link unverified email to existing user")
		return "", fmt.Errorf("%w: email %s is not verified", domain.ErrUnauthorized, email)
	case !errors.Is(err, domain.ErrUserNotFound):
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	return email, nil
}

// SignOut clears the active workspace preference so the next session re-resolves it
func (r *HostedIdentityResolver) SignOut(ctx context.Context, user *domain.User) error {
	return signOut(ctx, r.prefRepo, r.cache, user)
}

// UpdateProfile updates the user's display name
func (r *HostedIdentityResolver) UpdateProfile(ctx context.Context, principal domain.Principal, user *domain.User, update ProfileUpdate) (*domain.User, error) {
	name, err := validateFullName(update.FullName)
	if err != nil {
		return nil, err
	}
	return r.userRepo.UpdateFullName(ctx, user.ID, name)
}

// localUser is the pseudo-user record kept in device preferences
type localUser struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// LocalIdentityResolver synthesizes a pseudo-user per device. Development only.
type LocalIdentityResolver struct {
	userRepo   domain.UserRepository
	prefRepo   domain.PreferenceRepository
	deviceRepo domain.DevicePreferenceRepository
	cache      resolverCache
}

// NewLocalIdentityResolver creates a new LocalIdentityResolver
func NewLocalIdentityResolver(userRepo domain.UserRepository, prefRepo domain.PreferenceRepository, deviceRepo domain.DevicePreferenceRepository, cache resolverCache) *LocalIdentityResolver {
	return &LocalIdentityResolver{userRepo: userRepo, prefRepo: prefRepo, deviceRepo: deviceRepo, cache: cache}
}

// LocalUserEmail is the synthesized email of a device's pseudo-user
func LocalUserEmail(deviceID string) string {
	short := strings.ToLower(deviceID)
	if len(short) > 12 {
		short = short[:12]
	}
	return "local-" + short + "@proflow.local"
}

// CurrentUser returns the device's pseudo-user, creating it on first access
func (r *LocalIdentityResolver) CurrentUser(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.DeviceID == "" {
		return nil, fmt.Errorf("%w: missing device id", domain.ErrUnauthorized)
	}
	device := NewDevicePreferences(r.deviceRepo, principal.DeviceID)

	record, err := r.loadRecord(ctx, device)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &localUser{Email: LocalUserEmail(principal.DeviceID), FullName: "Local User"}
		if err := r.saveRecord(ctx, device, record); err != nil {
			return nil, err
		}
		log.Info().Str("user_email", record.Email).Msg("Created local pseudo-user")
	}

	user, err := r.userRepo.Upsert(ctx, &domain.User{Email: record.Email, FullName: record.FullName})
	if err != nil {
		return nil, fmt.Errorf("resolve local user: %w", err)
	}
	return user, nil
}

// SignOut clears the active workspace preference. The pseudo-user is kept.
func (r *LocalIdentityResolver) SignOut(ctx context.Context, user *domain.User) error {
	return signOut(ctx, r.prefRepo, r.cache, user)
}

// UpdateProfile updates the pseudo-user record in place, then the user row
func (r *LocalIdentityResolver) UpdateProfile(ctx context.Context, principal domain.Principal, user *domain.User, update ProfileUpdate) (*domain.User, error) {
	name, err := validateFullName(update.FullName)
	if err != nil {
		return nil, err
	}
	device := NewDevicePreferences(r.deviceRepo, principal.DeviceID)
	if err := r.saveRecord(ctx, device, &localUser{Email: user.Email, FullName: name}); err != nil {
		return nil, err
	}
	return r.userRepo.UpdateFullName(ctx, user.ID, name)
}

func (r *LocalIdentityResolver) loadRecord(ctx context.Context, device domain.PreferenceStore) (*localUser, error) {
	raw, found, err := device.Get(ctx, domain.PrefCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("read local user: %w", err)
	}
	if !found {
		return nil, nil
	}
	var record localUser
	if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Email == "" {
		log.Warn().Err(err).Msg("Discarding corrupt local user record")
		return nil, nil
	}
	return &record, nil
}

func (r *LocalIdentityResolver) saveRecord(ctx context.Context, device domain.PreferenceStore, record *localUser) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := device.Set(ctx, domain.PrefCurrentUser, string(raw)); err != nil {
		return fmt.Errorf("store local user: %w", err)
	}
	return nil
}

func signOut(ctx context.Context, prefRepo domain.PreferenceRepository, cache resolverCache, user *domain.User) error {
	if cache != nil {
		cache.Invalidate(user.Email)
	}
	if err := prefRepo.Remove(ctx, user.ID, domain.PrefActiveWorkspaceID); err != nil {
		log.Error().Err(err).Str("user_email", user.Email).Msg("Failed to clear active workspace on sign-out")
		return err
	}
	return nil
}

func validateFullName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}

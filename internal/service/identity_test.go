package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyCache struct {
	invalidated []string
}

func (c *spyCache) Invalidate(email string) {
	c.invalidated = append(c.invalidated, email)
}

func TestHostedIdentity_CurrentUserUpserts(t *testing.T) {
	users := testutil.NewMockUserRepository()
	resolver := NewHostedIdentityResolver(users, testutil.NewMockPreferenceRepository(), nil)
	ctx := context.Background()
	principal := domain.Principal{Subject: "auth0|abc", Email: "alice@example.com", Name: "Alice"}

	first, err := resolver.CurrentUser(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", first.Email)
	assert.Equal(t, "Alice", first.FullName)

	second, err := resolver.CurrentUser(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, users.ByID, 1)
}

func TestHostedIdentity_UnverifiedEmailDoesNotLink(t *testing.T) {
	users := testutil.NewMockUserRepository()
	resolver := NewHostedIdentityResolver(users, testutil.NewMockPreferenceRepository(), nil)
	ctx := context.Background()

	aliceSubject := "auth0|alice"
	alice := users.AddUser(&domain.User{AuthSubject: &aliceSubject, Email: "alice@example.com"})
	invited := users.AddUser(&domain.User{Email: "carol@example.com"})

	_, err := resolver.CurrentUser(ctx, domain.Principal{Subject: "auth0|mallory", Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = resolver.CurrentUser(ctx, domain.Principal{Subject: "auth0|mallory", Email: "carol@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Nil(t, users.ByID[invited.ID].AuthSubject, "unverified login must not claim an existing row")

	// a known subject keeps its stored email when the token email is unverified
	same, err := resolver.CurrentUser(ctx, domain.Principal{Subject: aliceSubject, Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, same.ID)
	assert.Equal(t, "alice@example.com", same.Email)

	// verified email links the invited row
	linked, err := resolver.CurrentUser(ctx, domain.Principal{Subject: "auth0|carol", Email: "carol@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, invited.ID, linked.ID)
	require.NotNil(t, linked.AuthSubject)
	assert.Equal(t, "auth0|carol", *linked.AuthSubject)

	// a brand new unverified user is still created
	fresh, err := resolver.CurrentUser(ctx, domain.Principal{Subject: "auth0|dave", Email: "dave@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, fresh.ID)
	assert.Len(t, users.ByID, 3)
}

func TestHostedIdentity_RequiresSubjectAndEmail(t *testing.T) {
	resolver := NewHostedIdentityResolver(testutil.NewMockUserRepository(), testutil.NewMockPreferenceRepository(), nil)

	_, err := resolver.CurrentUser(context.Background(), domain.Principal{Subject: "auth0|abc"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = resolver.CurrentUser(context.Background(), domain.Principal{Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestHostedIdentity_SignOutClearsActiveWorkspace(t *testing.T) {
	users := testutil.NewMockUserRepository()
	prefRepo := testutil.NewMockPreferenceRepository()
	cache := &spyCache{}
	resolver := NewHostedIdentityResolver(users, prefRepo, cache)
	ctx := context.Background()

	user := users.AddUser(&domain.User{Email: "alice@example.com"})
	require.NoError(t, prefRepo.Set(ctx, user.ID, domain.PrefActiveWorkspaceID, "ws-1"))
	require.NoError(t, prefRepo.Set(ctx, user.ID, "ui:theme", "dark"))

	require.NoError(t, resolver.SignOut(ctx, user))

	_, ok := prefRepo.Value(user.ID, domain.PrefActiveWorkspaceID)
	assert.False(t, ok)
	theme, ok := prefRepo.Value(user.ID, "ui:theme")
	assert.True(t, ok)
	assert.Equal(t, "dark", theme)
	assert.Equal(t, []string{"alice@example.com"}, cache.invalidated)
}

func TestHostedIdentity_UpdateProfile(t *testing.T) {
	users := testutil.NewMockUserRepository()
	resolver := NewHostedIdentityResolver(users, testutil.NewMockPreferenceRepository(), nil)
	user := users.AddUser(&domain.User{Email: "alice@example.com", FullName: "Alice"})

	updated, err := resolver.UpdateProfile(context.Background(), domain.Principal{}, user, ProfileUpdate{FullName: "  Alice Smith "})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", updated.FullName)

	_, err = resolver.UpdateProfile(context.Background(), domain.Principal{}, user, ProfileUpdate{FullName: " "})
	assert.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestLocalIdentity_CreatesPseudoUserOncePerDevice(t *testing.T) {
	users := testutil.NewMockUserRepository()
	devices := testutil.NewMockDevicePreferenceRepository()
	resolver := NewLocalIdentityResolver(users, testutil.NewMockPreferenceRepository(), devices, nil)
	ctx := context.Background()
	principal := domain.Principal{DeviceID: "0F3A9C77B2D1E4F5"}

	first, err := resolver.CurrentUser(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "local-0f3a9c77b2d1@proflow.local", first.Email)
	assert.Equal(t, "Local User", first.FullName)

	second, err := resolver.CurrentUser(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	raw, found, err := devices.Get(ctx, principal.DeviceID, domain.PrefCurrentUser)
	require.NoError(t, err)
	require.True(t, found)
	var record map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, first.Email, record["email"])

	_, err = resolver.CurrentUser(ctx, domain.Principal{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLocalIdentity_CorruptRecordIsReplaced(t *testing.T) {
	users := testutil.NewMockUserRepository()
	devices := testutil.NewMockDevicePreferenceRepository()
	resolver := NewLocalIdentityResolver(users, testutil.NewMockPreferenceRepository(), devices, nil)
	ctx := context.Background()
	require.NoError(t, devices.Set(ctx, "device-1", domain.PrefCurrentUser, "{not json"))

	user, err := resolver.CurrentUser(ctx, domain.Principal{DeviceID: "device-1"})
	require.NoError(t, err)
	assert.Equal(t, LocalUserEmail("device-1"), user.Email)
}

func TestLocalIdentity_UpdateProfileRewritesRecord(t *testing.T) {
	users := testutil.NewMockUserRepository()
	devices := testutil.NewMockDevicePreferenceRepository()
	resolver := NewLocalIdentityResolver(users, testutil.NewMockPreferenceRepository(), devices, nil)
	ctx := context.Background()
	principal := domain.Principal{DeviceID: "device-1"}

	user, err := resolver.CurrentUser(ctx, principal)
	require.NoError(t, err)

	profile := NewProfileService(resolver)
	updated, err := profile.UpdateProfile(ctx, &UserSession{Principal: principal, User: user}, "Dev Tester")
	require.NoError(t, err)
	assert.Equal(t, "Dev Tester", updated.FullName)

	raw, _, _ := devices.Get(ctx, "device-1", domain.PrefCurrentUser)
	assert.Contains(t, raw, `"full_name":"Dev Tester"`)
}

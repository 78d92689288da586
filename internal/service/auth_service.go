package service

import (
	"context"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// AuthService turns an authenticated principal into a user session with an active workspace
type AuthService struct {
	identity IdentityResolver
	resolver *WorkspaceResolver
	prefRepo domain.PreferenceRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(identity IdentityResolver, resolver *WorkspaceResolver, prefRepo domain.PreferenceRepository) *AuthService {
	return &AuthService{
		identity: identity,
		resolver: resolver,
		prefRepo: prefRepo,
	}
}

// UserSession is everything a request needs about its caller
type UserSession struct {
	Principal   domain.Principal
	User        *domain.User
	Preferences domain.PreferenceStore
	Workspace   *domain.Workspace
	Workspaces  []*domain.Workspace
	// ResolveErr is set when the user is known but their workspaces could not
	// be loaded. Workspace is nil in that case.
	ResolveErr error
}

// Scope returns the workspace scope of the session
func (s *UserSession) Scope() domain.Scope {
	return domain.Scope{WorkspaceID: s.Workspace.ID, ActorEmail: s.User.Email}
}

// Authenticate resolves the principal's user and active workspace. Only an
// identity failure is an error: when workspace resolution fails the session
// carries ResolveErr instead, so the caller can still inspect and retry it.
func (s *AuthService) Authenticate(ctx context.Context, principal domain.Principal) (*UserSession, error) {
	user, err := s.identity.CurrentUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	session := &UserSession{
		Principal:   principal,
		User:        user,
		Preferences: NewUserPreferences(s.prefRepo, user.ID),
	}
	res, err := s.resolver.Resolve(ctx, user, session.Preferences, false)
	if err != nil {
		if domain.Categorize(err) == domain.CategoryAuth {
			return nil, err
		}
		log.Error().Err(err).Str("user_email", user.Email).Msg("Failed to resolve workspace for session")
		session.ResolveErr = err
		return session, nil
	}

	session.Workspace = res.CurrentWorkspace
	session.Workspaces = res.AvailableWorkspaces
	return session, nil
}

// ResolveSession implements websocket.SessionResolver. A live connection needs
// a workspace, so a failed resolution is an error here.
func (s *AuthService) ResolveSession(ctx context.Context, principal domain.Principal) (*websocket.Session, error) {
	session, err := s.Authenticate(ctx, principal)
	if err != nil {
		return nil, err
	}
	if session.Workspace == nil {
		return nil, session.ResolveErr
	}
	return &websocket.Session{UserEmail: session.User.Email, WorkspaceID: session.Workspace.ID}, nil
}

// SignOut clears the user's active workspace preference and cached resolution
func (s *AuthService) SignOut(ctx context.Context, user *domain.User) error {
	return s.identity.SignOut(ctx, user)
}

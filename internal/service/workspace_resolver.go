package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ResolverStatus is the load state of one user's workspace resolution
type ResolverStatus string

const (
	ResolverUninitialized ResolverStatus = "uninitialized"
	ResolverLoading       ResolverStatus = "loading"
	ResolverReady         ResolverStatus = "ready"
	ResolverError         ResolverStatus = "error"
)

// DefaultWorkspaceCacheTTL is how long a resolution is reused without force
const DefaultWorkspaceCacheTTL = 30 * time.Second

// Resolution is the outcome of a successful workspace load
type Resolution struct {
	CurrentWorkspace    *domain.Workspace   `json:"current_workspace"`
	AvailableWorkspaces []*domain.Workspace `json:"available_workspaces"`
}

// ResolverState is the externally visible state of one user's resolver
type ResolverState struct {
	Status              ResolverStatus      `json:"status"`
	CurrentWorkspace    *domain.Workspace   `json:"current_workspace"`
	AvailableWorkspaces []*domain.Workspace `json:"available_workspaces"`
	Error               string              `json:"error,omitempty"`
}

type resolverEntry struct {
	status     ResolverStatus
	resolution *Resolution
	err        string
	loadedAt   time.Time
}

// WorkspaceResolver determines and persists each user's active workspace,
// creating a default workspace when the user has none.
type WorkspaceResolver struct {
	workspaceRepo  domain.WorkspaceRepository
	userRepo       domain.UserRepository
	eventPublisher websocket.EventPublisher
	ttl            time.Duration
	now            func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*resolverEntry
}

// NewWorkspaceResolver creates a new WorkspaceResolver. A zero ttl disables caching.
func NewWorkspaceResolver(workspaceRepo domain.WorkspaceRepository, userRepo domain.UserRepository, ttl time.Duration) *WorkspaceResolver {
	return &WorkspaceResolver{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		ttl:           ttl,
		now:           time.Now,
		entries:       make(map[string]*resolverEntry),
	}
}

// SetEventPublisher sets the event publisher for workspace switch notifications
func (r *WorkspaceResolver) SetEventPublisher(publisher websocket.EventPublisher) {
	r.eventPublisher = publisher
}

func userKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve returns the user's active and available workspaces. Concurrent calls
// share one load and a fresh result is reused for the cache TTL; force bypasses both.
func (r *WorkspaceResolver) Resolve(ctx context.Context, user *domain.User, prefs domain.PreferenceStore, force bool) (*Resolution, error) {
	key := userKey(user.Email)
	if key == "" {
		return nil, domain.ErrUnauthorized
	}

	if force {
		return r.load(ctx, key, user, prefs)
	}

	if res := r.fresh(key); res != nil {
		return res, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if res := r.fresh(key); res != nil {
			return res, nil
		}
		return r.load(context.WithoutCancel(ctx), key, user, prefs)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolution), nil
}

// RetryLoad re-runs resolution after an error
func (r *WorkspaceResolver) RetryLoad(ctx context.Context, user *domain.User, prefs domain.PreferenceStore) (*Resolution, error) {
	return r.Resolve(ctx, user, prefs, true)
}

// State returns the resolver state of a user
func (r *WorkspaceResolver) State(email string) ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[userKey(email)]
	if !ok {
		return ResolverState{Status: ResolverUninitialized}
	}
	state := ResolverState{Status: entry.status, Error: entry.err}
	if entry.status == ResolverReady && entry.resolution != nil {
		state.CurrentWorkspace = entry.resolution.CurrentWorkspace
		state.AvailableWorkspaces = entry.resolution.AvailableWorkspaces
	}
	return state
}

// Invalidate drops the cached resolution of a user
func (r *WorkspaceResolver) Invalidate(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userKey(email))
}

func (r *WorkspaceResolver) fresh(key string) *Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok || entry.status != ResolverReady || r.ttl <= 0 {
		return nil
	}
	if r.now().Sub(entry.loadedAt) >= r.ttl {
		return nil
	}
	return entry.resolution
}

func (r *WorkspaceResolver) setEntry(key string, entry *resolverEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = entry
}

func (r *WorkspaceResolver) load(ctx context.Context, key string, user *domain.User, prefs domain.PreferenceStore) (*Resolution, error) {
	r.setEntry(key, &resolverEntry{status: ResolverLoading})

	res, err := r.resolve(ctx, user, prefs)
	if err != nil {
		category := domain.Categorize(err)
		log.Error().Err(err).Str("user_email", user.Email).Str("category", string(category)).Msg("Failed to resolve active workspace")
		r.setEntry(key, &resolverEntry{
			status: ResolverError,
			err:    "Failed to load workspaces. " + domain.UserMessage(category),
		})
		return nil, err
	}

	r.setEntry(key, &resolverEntry{status: ResolverReady, resolution: res, loadedAt: r.now()})
	return res, nil
}

func (r *WorkspaceResolver) resolve(ctx context.Context, user *domain.User, prefs domain.PreferenceStore) (*Resolution, error) {
	workspaces, err := r.workspaceRepo.ListByMember(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}

	storedID, err := storedWorkspaceID(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("read active workspace preference: %w", err)
	}

	current := domain.SelectActiveWorkspace(workspaces, storedID, user.ActiveWorkspaceID)
	if current == nil {
		current, err = r.workspaceRepo.CreateDefault(ctx, domain.NewDefaultWorkspace(user.Email))
		if err != nil {
			return nil, fmt.Errorf("create default workspace: %w", err)
		}
		workspaces = []*domain.Workspace{current}
		log.Info().
			Str("user_email", user.Email).
			Str("workspace_id", current.ID.String()).
			Msg("Created default workspace")
	}

	if err := prefs.Set(ctx, domain.PrefActiveWorkspaceID, current.ID.String()); err != nil {
		return nil, fmt.Errorf("store active workspace preference: %w", err)
	}

	if user.ActiveWorkspaceID == nil || *user.ActiveWorkspaceID != current.ID {
		id := current.ID
		if err := r.userRepo.SetActiveWorkspace(ctx, user.ID, &id); err != nil {
			log.Warn().Err(err).Str("user_email", user.Email).Msg("Failed to persist active workspace on user")
		}
	}

	return &Resolution{CurrentWorkspace: current, AvailableWorkspaces: workspaces}, nil
}

func storedWorkspaceID(ctx context.Context, prefs domain.PreferenceStore) (*uuid.UUID, error) {
	value, found, err := prefs.Get(ctx, domain.PrefActiveWorkspaceID)
	if err != nil {
		return nil, err
	}
	if !found || value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		log.Warn().Str("value", value).Msg("Ignoring malformed active workspace preference")
		return nil, nil
	}
	return &id, nil
}

// SwitchWorkspace makes workspaceID the user's active workspace. The in-memory
// resolution and the preference change first; persisting to the user record
// follows, and any failure restores the previous workspace in both places.
func (r *WorkspaceResolver) SwitchWorkspace(ctx context.Context, user *domain.User, prefs domain.PreferenceStore, workspaceID uuid.UUID) (*Resolution, error) {
	res, err := r.Resolve(ctx, user, prefs, false)
	if err != nil {
		return nil, err
	}

	target := findWorkspace(res.AvailableWorkspaces, workspaceID)
	if target == nil {
		// the workspace may have been shared with the user after the last load
		if res, err = r.Resolve(ctx, user, prefs, true); err != nil {
			return nil, err
		}
		if target = findWorkspace(res.AvailableWorkspaces, workspaceID); target == nil {
			return nil, domain.ErrNotMember
		}
	}

	previous := res.CurrentWorkspace
	if previous != nil && previous.ID == target.ID {
		return res, nil
	}

	key := userKey(user.Email)
	mutation := Optimistic[*domain.Workspace]{
		Name: "switch_workspace",
		Apply: func(ctx context.Context, ws *domain.Workspace) error {
			r.setCurrent(key, ws, res.AvailableWorkspaces)
			return prefs.Set(ctx, domain.PrefActiveWorkspaceID, ws.ID.String())
		},
		Commit: func(ctx context.Context, ws *domain.Workspace) error {
			id := ws.ID
			return r.userRepo.SetActiveWorkspace(ctx, user.ID, &id)
		},
	}
	if err := mutation.Run(ctx, previous, target); err != nil {
		return nil, fmt.Errorf("switch workspace: %w", err)
	}

	log.Info().
		Str("user_email", user.Email).
		Str("from_workspace_id", previous.ID.String()).
		Str("to_workspace_id", target.ID.String()).
		Msg("Switched active workspace")

	if r.eventPublisher != nil {
		r.eventPublisher.SwitchUser(user.Email, target.ID, websocket.WorkspaceSwitched(map[string]string{
			"workspace_id":          target.ID.String(),
			"previous_workspace_id": previous.ID.String(),
		}))
	}

	return &Resolution{CurrentWorkspace: target, AvailableWorkspaces: res.AvailableWorkspaces}, nil
}

func (r *WorkspaceResolver) setCurrent(key string, current *domain.Workspace, available []*domain.Workspace) {
	r.setEntry(key, &resolverEntry{
		status:     ResolverReady,
		resolution: &Resolution{CurrentWorkspace: current, AvailableWorkspaces: available},
		loadedAt:   r.now(),
	})
}

func findWorkspace(workspaces []*domain.Workspace, id uuid.UUID) *domain.Workspace {
	for _, ws := range workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

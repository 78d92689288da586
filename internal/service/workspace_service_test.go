package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

func setupWorkspaceService() (*WorkspaceService, *testutil.MockWorkspaceRepository, *spyCache, *testutil.MockEventPublisher) {
	repo := testutil.NewMockWorkspaceRepository()
	cache := &spyCache{}
	events := testutil.NewMockEventPublisher()
	svc := NewWorkspaceService(repo, cache)
	svc.SetEventPublisher(events)
	return svc, repo, cache, events
}

var (
	ownerUser  = &domain.User{ID: uuid.New(), Email: "alice@example.com"}
	memberUser = &domain.User{ID: uuid.New(), Email: "bob@example.com"}
)

func TestCreateWorkspace(t *testing.T) {
	svc, _, cache, _ := setupWorkspaceService()

	ws, err := svc.CreateWorkspace(context.Background(), ownerUser, CreateWorkspaceInput{Name: " Agency "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ws.Name != "Agency" {
		t.Errorf("Expected trimmed name, got %q", ws.Name)
	}
	if ws.Type != domain.WorkspaceTypeTeam {
		t.Errorf("Expected default type team, got %s", ws.Type)
	}
	if ws.IsDefault {
		t.Errorf("Expected created workspace not to be default")
	}
	if !ws.IsOwner("alice@example.com") || !ws.HasMember("alice@example.com") {
		t.Errorf("Expected alice to own and belong to the workspace")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "alice@example.com" {
		t.Errorf("Expected alice's resolution invalidated, got %v", cache.invalidated)
	}

	if _, err := svc.CreateWorkspace(context.Background(), ownerUser, CreateWorkspaceInput{Name: ""}); !errors.Is(err, domain.ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.CreateWorkspace(context.Background(), ownerUser, CreateWorkspaceInput{Name: "X", Type: "galaxy"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAddAndRemoveMember(t *testing.T) {
	svc, _, cache, _ := setupWorkspaceService()
	ctx := context.Background()
	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})
	cache.invalidated = nil

	updated, err := svc.AddMember(ctx, ownerUser, ws.ID, "Bob <BOB@example.com>")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !updated.HasMember("bob@example.com") {
		t.Errorf("Expected bob to be a member, got %v", updated.Members)
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("Expected both users invalidated, got %v", cache.invalidated)
	}

	listed, _ := svc.ListWorkspaces(ctx, memberUser)
	if len(listed) != 1 || listed[0].ID != ws.ID {
		t.Errorf("Expected bob to see the shared workspace")
	}

	// only the owner manages members
	if _, err := svc.AddMember(ctx, memberUser, ws.ID, "carol@example.com"); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.AddMember(ctx, ownerUser, ws.ID, "not-an-email"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.RemoveMember(ctx, ownerUser, ws.ID, "alice@example.com"); !errors.Is(err, domain.ErrCannotRemoveOwner) {
		t.Errorf("Expected ErrCannotRemoveOwner, got %v", err)
	}
	if _, err := svc.RemoveMember(ctx, ownerUser, ws.ID, "carol@example.com"); !errors.Is(err, domain.ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
	removed, err := svc.RemoveMember(ctx, ownerUser, ws.ID, "bob@example.com")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed.HasMember("bob@example.com") {
		t.Errorf("Expected bob removed")
	}
}

// liveClient is a minimal hub connection that records what it receives
type liveClient struct {
	mu          sync.Mutex
	id          string
	email       string
	workspaceID uuid.UUID
	received    []string
	closed      bool
}

func (c *liveClient) ID() string        { return c.id }
func (c *liveClient) UserEmail() string { return c.email }
func (c *liveClient) WorkspaceID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceID
}
func (c *liveClient) MoveTo(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaceID = id
}
func (c *liveClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrClientClosed
	}
	c.received = append(c.received, string(data))
	return nil
}
func (c *liveClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
func (c *liveClient) snapshot() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...), c.closed
}

func TestRemoveMember_DisconnectsLiveConnections(t *testing.T) {
	svc, _, _, _ := setupWorkspaceService()
	hub := websocket.NewHub()
	svc.SetEventPublisher(hub)
	ctx := context.Background()

	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})
	if _, err := svc.AddMember(ctx, ownerUser, ws.ID, "bob@example.com"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	bobHere := &liveClient{id: "bob-1", email: "bob@example.com", workspaceID: ws.ID}
	bobElsewhere := &liveClient{id: "bob-2", email: "bob@example.com", workspaceID: uuid.New()}
	alice := &liveClient{id: "alice-1", email: "alice@example.com", workspaceID: ws.ID}
	hub.Register(bobHere)
	hub.Register(bobElsewhere)
	hub.Register(alice)

	if _, err := svc.RemoveMember(ctx, ownerUser, ws.ID, "bob@example.com"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}

	hub.Publish(ws.ID, websocket.Created(websocket.EntityTypeDocument, map[string]string{"title": "secret plan"}))
	time.Sleep(20 * time.Millisecond)

	got, closed := bobHere.snapshot()
	if !closed {
		t.Error("removed member's connection is still open")
	}
	for _, msg := range got {
		if strings.Contains(msg, "secret plan") {
			t.Fatalf("removed member received workspace event: %s", msg)
		}
	}
	if hub.ClientCount(ws.ID) != 1 {
		t.Errorf("ClientCount = %d, want only alice", hub.ClientCount(ws.ID))
	}
	if _, closed := bobElsewhere.snapshot(); closed {
		t.Error("connection in another workspace should stay open")
	}
	if got, _ := alice.snapshot(); len(got) == 0 {
		t.Error("remaining member should still receive events")
	}
}

func TestRemoveMember_RecordsRevocation(t *testing.T) {
	svc, _, _, events := setupWorkspaceService()
	ctx := context.Background()
	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})
	svc.AddMember(ctx, ownerUser, ws.ID, "bob@example.com")

	if _, err := svc.RemoveMember(ctx, ownerUser, ws.ID, "bob@example.com"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if len(events.Removed) != 1 || events.Removed[0].UserEmail != "bob@example.com" || events.Removed[0].WorkspaceID != ws.ID {
		t.Errorf("Removed = %+v, want bob in %s", events.Removed, ws.ID)
	}
}

func TestUpdateWorkspace_NonMemberSeesNotFound(t *testing.T) {
	svc, _, _, events := setupWorkspaceService()
	ctx := context.Background()
	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})

	name := "Renamed"
	if _, err := svc.UpdateWorkspace(ctx, memberUser, ws.ID, UpdateWorkspaceInput{Name: &name}); !errors.Is(err, domain.ErrWorkspaceNotFound) {
		t.Errorf("Expected ErrWorkspaceNotFound, got %v", err)
	}

	updated, err := svc.UpdateWorkspace(ctx, ownerUser, ws.ID, UpdateWorkspaceInput{Name: &name})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Expected Renamed, got %s", updated.Name)
	}
	types := events.Types()
	if len(types) != 1 || types[0] != "workspace.updated" {
		t.Errorf("Expected workspace.updated event, got %v", types)
	}
}

func TestClearAllData(t *testing.T) {
	svc, repo, _, events := setupWorkspaceService()
	ctx := context.Background()
	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})
	svc.AddMember(ctx, ownerUser, ws.ID, "bob@example.com")

	if err := svc.ClearAllData(ctx, memberUser, ws.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}
	if err := svc.ClearAllData(ctx, ownerUser, ws.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(repo.ClearedIDs) != 1 || repo.ClearedIDs[0] != ws.ID {
		t.Errorf("Expected workspace %s cleared, got %v", ws.ID, repo.ClearedIDs)
	}
	types := events.Types()
	if types[len(types)-1] != "workspace.cleared" {
		t.Errorf("Expected workspace.cleared event, got %s", types[len(types)-1])
	}
}

func TestClearAllData_RemovesStoredFiles(t *testing.T) {
	svc, _, _, _ := setupWorkspaceService()
	files := testutil.NewMockFileRepository()
	fileService := NewFileService(files)
	svc.SetFileService(fileService)
	ctx := context.Background()

	ws, _ := svc.CreateWorkspace(ctx, ownerUser, CreateWorkspaceInput{Name: "Agency"})
	scope := domain.Scope{WorkspaceID: ws.ID, ActorEmail: ownerUser.Email}
	other := domain.Scope{WorkspaceID: uuid.New(), ActorEmail: ownerUser.Email}

	img, name := createTestImage(400, 300, "png")
	doc, err := fileService.Store(ctx, scope, "documents", name, "image/png", img)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	attachment, _ := fileService.Store(ctx, scope, "messages", "notes.txt", "text/plain", []byte("hi"))
	kept, _ := fileService.Store(ctx, other, "documents", "notes.txt", "text/plain", []byte("hi"))

	if err := svc.ClearAllData(ctx, ownerUser, ws.ID); err != nil {
		t.Fatalf("ClearAllData() error = %v", err)
	}

	for _, p := range []string{doc.Path, doc.ThumbnailPath, attachment.Path} {
		if files.Has(p) {
			t.Errorf("%s was not deleted", p)
		}
	}
	if !files.Has(kept.Path) {
		t.Error("another workspace's file was deleted")
	}
	if len(files.Prefixes) != 1 || files.Prefixes[0] != "workspaces/"+ws.ID.String()+"/" {
		t.Errorf("Prefixes = %v", files.Prefixes)
	}
}

package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/llm"
	"github.com/dafibh/proflow/proflow-backend/internal/repository/storage"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mu                   sync.Mutex
	ByID                 map[uuid.UUID]*domain.User
	SetActiveWorkspaceFn func(id uuid.UUID, workspaceID *uuid.UUID) error
	SetActiveCalls       int
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID: make(map[uuid.UUID]*domain.User),
	}
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.ByID[user.ID] = user
	return user
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.ByID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByEmail retrieves a user by email
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.ByID {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetBySubject retrieves a user by auth subject
func (m *MockUserRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.ByID {
		if user.AuthSubject != nil && *user.AuthSubject == subject {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// Upsert creates or refreshes a user matched by subject, then email
func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.ByID {
		subjectMatch := user.AuthSubject != nil && existing.AuthSubject != nil && *existing.AuthSubject == *user.AuthSubject
		if subjectMatch || strings.EqualFold(existing.Email, user.Email) {
			if user.AuthSubject != nil {
				existing.AuthSubject = user.AuthSubject
			}
			existing.Email = user.Email
			if existing.FullName == "" {
				existing.FullName = user.FullName
			}
			existing.UpdatedAt = time.Now()
			copied := *existing
			return &copied, nil
		}
	}
	created := *user
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.ByID[created.ID] = &created
	copied := created
	return &copied, nil
}

// UpdateFullName updates only the user's name
func (m *MockUserRepository) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.ByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.FullName = fullName
	copied := *user
	return &copied, nil
}

// SetActiveWorkspace stores the user's active workspace
func (m *MockUserRepository) SetActiveWorkspace(ctx context.Context, id uuid.UUID, workspaceID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetActiveCalls++
	if m.SetActiveWorkspaceFn != nil {
		if err := m.SetActiveWorkspaceFn(id, workspaceID); err != nil {
			return err
		}
	}
	user, ok := m.ByID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.ActiveWorkspaceID = workspaceID
	return nil
}

// MockWorkspaceRepository is a mock implementation of domain.WorkspaceRepository
type MockWorkspaceRepository struct {
	mu                 sync.Mutex
	Workspaces         []*domain.Workspace
	ListErr            error
	CreateErr          error
	ListCalls          int
	CreateDefaultCalls int
	ClearedIDs         []uuid.UUID
	// ListDelay slows ListByMember to widen race windows in tests
	ListDelay time.Duration
}

// NewMockWorkspaceRepository creates a new MockWorkspaceRepository
func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{}
}

// AddWorkspace adds a workspace to the mock repository (helper for tests)
func (m *MockWorkspaceRepository) AddWorkspace(ws *domain.Workspace) *domain.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	if ws.Type == "" {
		ws.Type = domain.WorkspaceTypePersonal
	}
	m.Workspaces = append(m.Workspaces, ws)
	return ws
}

// Count returns the number of stored workspaces
func (m *MockWorkspaceRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Workspaces)
}

// GetByID retrieves a workspace by ID
func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.Workspaces {
		if ws.ID == id {
			return copyWorkspace(ws), nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

// ListByMember returns workspaces whose members include email, in insertion order
func (m *MockWorkspaceRepository) ListByMember(ctx context.Context, email string) ([]*domain.Workspace, error) {
	if m.ListDelay > 0 {
		time.Sleep(m.ListDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var result []*domain.Workspace
	for _, ws := range m.Workspaces {
		if ws.HasMember(email) {
			result = append(result, copyWorkspace(ws))
		}
	}
	return result, nil
}

// GetAllWorkspaces returns every workspace
func (m *MockWorkspaceRepository) GetAllWorkspaces(ctx context.Context) ([]*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	result := make([]*domain.Workspace, len(m.Workspaces))
	for i, ws := range m.Workspaces {
		result[i] = copyWorkspace(ws)
	}
	return result, nil
}

// Create creates a new workspace
func (m *MockWorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	created := copyWorkspace(workspace)
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.Workspaces = append(m.Workspaces, created)
	return copyWorkspace(created), nil
}

// CreateDefault mirrors the one-default-per-owner unique index
func (m *MockWorkspaceRepository) CreateDefault(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateDefaultCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	for _, ws := range m.Workspaces {
		if ws.IsDefault && strings.EqualFold(ws.OwnerEmail, workspace.OwnerEmail) {
			return copyWorkspace(ws), nil
		}
	}
	created := copyWorkspace(workspace)
	created.ID = uuid.New()
	created.IsDefault = true
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.Workspaces = append(m.Workspaces, created)
	return copyWorkspace(created), nil
}

// Update updates name, type and settings
func (m *MockWorkspaceRepository) Update(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.Workspaces {
		if ws.ID == workspace.ID {
			ws.Name = workspace.Name
			ws.Type = workspace.Type
			ws.Settings = workspace.Settings
			ws.UpdatedAt = time.Now()
			return copyWorkspace(ws), nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

// SetMembers replaces the member list
func (m *MockWorkspaceRepository) SetMembers(ctx context.Context, id uuid.UUID, members []string) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range m.Workspaces {
		if ws.ID == id {
			ws.Members = append([]string(nil), members...)
			return copyWorkspace(ws), nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

// ClearAllData records the cleared workspace
func (m *MockWorkspaceRepository) ClearAllData(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearedIDs = append(m.ClearedIDs, id)
	return nil
}

func copyWorkspace(ws *domain.Workspace) *domain.Workspace {
	copied := *ws
	copied.Members = append([]string(nil), ws.Members...)
	return &copied
}

// MockPreferenceRepository is a mock implementation of domain.PreferenceRepository
type MockPreferenceRepository struct {
	mu     sync.Mutex
	Values map[uuid.UUID]map[string]string
	// SetErrs fails Set for specific keys
	SetErrs   map[string]error
	GetErr    error
	RemoveErr error
	SetCalls  []string
}

// NewMockPreferenceRepository creates a new MockPreferenceRepository
func NewMockPreferenceRepository() *MockPreferenceRepository {
	return &MockPreferenceRepository{
		Values:  make(map[uuid.UUID]map[string]string),
		SetErrs: make(map[string]error),
	}
}

// Get returns the stored value
func (m *MockPreferenceRepository) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	value, ok := m.Values[userID][key]
	return value, ok, nil
}

// Set stores a value
func (m *MockPreferenceRepository) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = append(m.SetCalls, key)
	if err := m.SetErrs[key]; err != nil {
		return err
	}
	if m.Values[userID] == nil {
		m.Values[userID] = make(map[string]string)
	}
	m.Values[userID][key] = value
	return nil
}

// Remove deletes a value
func (m *MockPreferenceRepository) Remove(ctx context.Context, userID uuid.UUID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.Values[userID], key)
	return nil
}

// Value reads a stored value directly (helper for tests)
func (m *MockPreferenceRepository) Value(userID uuid.UUID, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.Values[userID][key]
	return value, ok
}

// MockDevicePreferenceRepository is a mock implementation of domain.DevicePreferenceRepository
type MockDevicePreferenceRepository struct {
	mu     sync.Mutex
	Values map[string]map[string]string
	SetErr error
}

// NewMockDevicePreferenceRepository creates a new MockDevicePreferenceRepository
func NewMockDevicePreferenceRepository() *MockDevicePreferenceRepository {
	return &MockDevicePreferenceRepository{Values: make(map[string]map[string]string)}
}

func (m *MockDevicePreferenceRepository) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.Values[deviceID][key]
	return value, ok, nil
}

func (m *MockDevicePreferenceRepository) Set(ctx context.Context, deviceID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Values[deviceID] == nil {
		m.Values[deviceID] = make(map[string]string)
	}
	m.Values[deviceID][key] = value
	return nil
}

func (m *MockDevicePreferenceRepository) Remove(ctx context.Context, deviceID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Values[deviceID], key)
	return nil
}

// MockLLM is a mock LLM client
type MockLLM struct {
	mu       sync.Mutex
	Response string
	Chunks   []string
	Err      error
	Requests []llm.Request
	InvokeFn func(req llm.Request) (string, error)
}

// NewMockLLM creates a MockLLM returning response
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

func (m *MockLLM) record(req llm.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
}

// Invoke returns the canned response
func (m *MockLLM) Invoke(ctx context.Context, req llm.Request) (string, error) {
	m.record(req)
	if m.InvokeFn != nil {
		return m.InvokeFn(req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// InvokeJSON decodes the canned response as JSON into v
func (m *MockLLM) InvokeJSON(ctx context.Context, req llm.Request, v any) error {
	req.JSON = true
	text, err := m.Invoke(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(text, v)
}

// Stream emits Chunks (or Response as one chunk) through onChunk
func (m *MockLLM) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) (string, error) {
	m.record(req)
	if m.Err != nil {
		return "", m.Err
	}
	chunks := m.Chunks
	if len(chunks) == 0 {
		chunks = []string{m.Response}
	}
	var full strings.Builder
	for _, c := range chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

// RequestCount returns the number of calls made
func (m *MockLLM) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockFileRepository is an in-memory file store
type MockFileRepository struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Types     map[string]string
	Deleted   []string
	Prefixes  []string
	UploadErr error
}

// NewMockFileRepository creates a new MockFileRepository
func NewMockFileRepository() *MockFileRepository {
	return &MockFileRepository{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

// Upload stores the object
func (m *MockFileRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf
	m.Types[objectPath] = contentType
	return objectPath, nil
}

// Delete removes the object
func (m *MockFileRepository) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// DeletePrefix removes every object under prefix
func (m *MockFileRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.Objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.Objects, key)
			m.Deleted = append(m.Deleted, key)
			removed++
		}
	}
	m.Prefixes = append(m.Prefixes, prefix)
	return removed, nil
}

// GeneratePresignedURL returns a fake URL for the object
func (m *MockFileRepository) GeneratePresignedURL(ctx context.Context, objectPath, downloadName string, expiry time.Duration) (string, error) {
	if downloadName == "" {
		downloadName = storage.DownloadName(objectPath)
	}
	return "https://files.test/" + objectPath + "?name=" + url.QueryEscape(downloadName) + "&expires=" + expiry.String(), nil
}

// Has reports whether the object exists (helper for tests)
func (m *MockFileRepository) Has(objectPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[objectPath]
	return ok
}

// PublishedEvent is one event captured by MockEventPublisher
type PublishedEvent struct {
	WorkspaceID uuid.UUID
	UserEmail   string
	Event       websocket.Event
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu      sync.Mutex
	Events  []PublishedEvent
	Removed []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records a workspace event
func (m *MockEventPublisher) Publish(workspaceID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{WorkspaceID: workspaceID, Event: event})
}

// SwitchUser records a user event together with the workspace the user moved to
func (m *MockEventPublisher) SwitchUser(email string, workspaceID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{UserEmail: email, WorkspaceID: workspaceID, Event: event})
}

// RemoveUser records a revoked connection set
func (m *MockEventPublisher) RemoveUser(email string, workspaceID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, PublishedEvent{UserEmail: email, WorkspaceID: workspaceID})
	return 0
}

// Types returns the recorded event types in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}

func decodeJSON(text string, v any) error {
	return json.Unmarshal([]byte(text), v)
}

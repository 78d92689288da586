package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTrashPurgeWorker(t *testing.T) (*TrashPurgeWorker, *serviceEnv, *testutil.MockWorkspaceRepository) {
	env := newServiceEnv(t)
	workspaceRepo := testutil.NewMockWorkspaceRepository()

	config := TrashPurgeWorkerConfig{
		Interval:      100 * time.Millisecond,
		RetentionDays: 7,
	}
	worker := NewTrashPurgeWorker(env.documents, workspaceRepo, zerolog.Nop(), config)
	return worker, env, workspaceRepo
}

func putTrashed(env *serviceEnv, scope domain.Scope, title string, deletedAt time.Time) *domain.Document {
	return env.stores.Documents.Put(&domain.Document{
		Record:       domain.Record{WorkspaceID: scope.WorkspaceID},
		Title:        title,
		DocumentType: "text",
		FolderPath:   domain.RootFolder,
		IsDeleted:    true,
		DeletedDate:  &deletedAt,
	})
}

func TestTrashPurgeWorker_NewTrashPurgeWorker(t *testing.T) {
	worker, _, _ := setupTrashPurgeWorker(t)

	assert.NotNil(t, worker)
	assert.Equal(t, 100*time.Millisecond, worker.interval)
	assert.Equal(t, 7*24*time.Hour, worker.retention)
	assert.False(t, worker.IsRunning())
}

func TestTrashPurgeWorker_DefaultConfig(t *testing.T) {
	config := DefaultTrashPurgeWorkerConfig()

	assert.Equal(t, 6*time.Hour, config.Interval)
	assert.Equal(t, 30, config.RetentionDays)
}

func TestTrashPurgeWorker_StartStop(t *testing.T) {
	worker, _, _ := setupTrashPurgeWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestTrashPurgeWorker_StartTwice(t *testing.T) {
	worker, _, _ := setupTrashPurgeWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// second start is a no-op
	worker.Start(ctx)
	worker.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestTrashPurgeWorker_StopWithoutStart(t *testing.T) {
	worker, _, _ := setupTrashPurgeWorker(t)

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestTrashPurgeWorker_ContextCancellation(t *testing.T) {
	worker, _, _ := setupTrashPurgeWorker(t)

	ctx, cancel := context.WithCancel(context.Background())

	worker.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, worker.IsRunning())
}

func TestTrashPurgeWorker_DefaultsForInvalidConfig(t *testing.T) {
	env := newServiceEnv(t)
	worker := NewTrashPurgeWorker(env.documents, testutil.NewMockWorkspaceRepository(), zerolog.Nop(), TrashPurgeWorkerConfig{
		Interval:      0,
		RetentionDays: -1,
	})

	assert.Equal(t, 6*time.Hour, worker.interval)
	assert.Equal(t, 30*24*time.Hour, worker.retention)
}

func TestTrashPurgeWorker_PurgeAll(t *testing.T) {
	worker, env, workspaceRepo := setupTrashPurgeWorker(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }

	workspaceRepo.AddWorkspace(&domain.Workspace{ID: env.scope.WorkspaceID, Name: "Alice", OwnerEmail: "alice@example.com"})
	workspaceRepo.AddWorkspace(&domain.Workspace{ID: env.otherScope.WorkspaceID, Name: "Bob", OwnerEmail: "bob@example.com"})

	old := putTrashed(env, env.scope, "Old draft", now.AddDate(0, 0, -8))
	recent := putTrashed(env, env.scope, "Recent draft", now.AddDate(0, 0, -2))
	otherOld := putTrashed(env, env.otherScope, "Their old draft", now.AddDate(0, 0, -30))
	live, err := env.documents.CreateDocument(ctx, env.scope, CreateDocumentInput{Title: "Live"})
	require.NoError(t, err)

	purged := worker.PurgeAll(ctx)
	assert.Equal(t, 2, purged)

	_, err = env.stores.Documents.Get(ctx, old.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, err = env.stores.Documents.Get(ctx, otherOld.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	_, err = env.stores.Documents.Get(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = env.stores.Documents.Get(ctx, live.ID)
	assert.NoError(t, err)
}

func TestTrashPurgeWorker_PurgeAllWorkspaceListFails(t *testing.T) {
	worker, _, workspaceRepo := setupTrashPurgeWorker(t)
	workspaceRepo.ListErr = assert.AnError

	assert.Equal(t, 0, worker.PurgeAll(context.Background()))
}

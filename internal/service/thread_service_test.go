package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThread(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	assignment, err := env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{Name: "Design"})
	require.NoError(t, err)

	thread, err := env.threads.CreateThread(ctx, env.scope, CreateThreadInput{
		AssignmentID: &assignment.ID,
		Topic:        "Kickoff",
		Tags:         []string{" urgent ", "", "design"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadStatusActive, thread.Status)
	assert.Equal(t, []string{"urgent", "design"}, thread.Tags)
	assert.Equal(t, 0, thread.MessageCount)
	assert.False(t, thread.LastActivity.IsZero())

	_, err = env.threads.CreateThread(ctx, env.scope, CreateThreadInput{Topic: " "})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	foreign, err := env.assignments.CreateAssignment(ctx, env.otherScope, CreateAssignmentInput{Name: "Theirs"})
	require.NoError(t, err)
	_, err = env.threads.CreateThread(ctx, env.scope, CreateThreadInput{AssignmentID: &foreign.ID, Topic: "Sneaky"})
	assert.ErrorIs(t, err, domain.ErrCrossWorkspace)
}

func TestListThreads_MostRecentlyActiveFirst(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	env.threads.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	older, err := env.threads.CreateThread(ctx, env.scope, CreateThreadInput{Topic: "Older"})
	require.NoError(t, err)
	_, err = env.threads.CreateThread(ctx, env.scope, CreateThreadInput{Topic: "Newer", Tags: []string{"design"}})
	require.NoError(t, err)

	threads, err := env.threads.ListThreads(ctx, env.scope, ThreadFilter{}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "Newer", threads[0].Topic)

	// posting to the older thread moves it to the top
	_, err = env.messages.PostMessage(ctx, env.scope, older.ID, PostMessageInput{Content: "bump"})
	require.NoError(t, err)
	threads, err = env.threads.ListThreads(ctx, env.scope, ThreadFilter{}, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Older", threads[0].Topic)

	tagged, err := env.threads.ListThreads(ctx, env.scope, ThreadFilter{Tag: "design"}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "Newer", tagged[0].Topic)
}

func TestUpdateThread_Status(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread, err := env.threads.CreateThread(ctx, env.scope, CreateThreadInput{Topic: "Kickoff"})
	require.NoError(t, err)

	resolved := domain.ThreadStatusResolved
	updated, err := env.threads.UpdateThread(ctx, env.scope, thread.ID, UpdateThreadInput{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadStatusResolved, updated.Status)

	bogus := domain.ThreadStatus("closed")
	_, err = env.threads.UpdateThread(ctx, env.scope, thread.ID, UpdateThreadInput{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = env.threads.UpdateThread(ctx, env.otherScope, thread.ID, UpdateThreadInput{Status: &resolved})
	assert.ErrorIs(t, err, domain.ErrCrossWorkspace)
}

func TestDeleteThread(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread, err := env.threads.CreateThread(ctx, env.scope, CreateThreadInput{Topic: "Kickoff"})
	require.NoError(t, err)

	require.NoError(t, env.threads.DeleteThread(ctx, env.scope, thread.ID))
	_, err = env.threads.GetThread(ctx, env.scope, thread.ID)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	assert.Contains(t, env.events.Types(), "conversation_thread.deleted")
}

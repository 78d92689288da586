package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignment_Defaults(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	project, err := env.projects.CreateProject(ctx, env.scope, CreateProjectInput{Name: "Launch"})
	require.NoError(t, err)

	assignment, err := env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{
		ProjectID:   &project.ID,
		Name:        "Landing page",
		TeamMembers: []string{" Bob@Example.com", "bob@example.com", "", "carol@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AssignmentStatusNotStarted, assignment.Status)
	assert.Equal(t, domain.PriorityMedium, assignment.Priority)
	assert.Equal(t, "alice@example.com", assignment.AssignmentManager)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, assignment.TeamMembers)
	require.NotNil(t, assignment.ProjectID)
	assert.Equal(t, project.ID, *assignment.ProjectID)
}

func TestCreateAssignment_ProjectInOtherWorkspace(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	foreign, err := env.projects.CreateProject(ctx, env.otherScope, CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	_, err = env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{ProjectID: &foreign.ID, Name: "Sneaky"})
	assert.ErrorIs(t, err, domain.ErrCrossWorkspace)
	assert.Equal(t, 0, env.stores.Assignments.Len())
}

func TestListAssignments_Filters(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	project, _ := env.projects.CreateProject(ctx, env.scope, CreateProjectInput{Name: "Launch"})

	_, err := env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{ProjectID: &project.ID, Name: "Design", TeamMembers: []string{"bob@example.com"}})
	require.NoError(t, err)
	_, err = env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{Name: "Ops", Status: domain.AssignmentStatusInProgress})
	require.NoError(t, err)

	byProject, err := env.assignments.ListAssignments(ctx, env.scope, AssignmentFilter{ProjectID: &project.ID}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "Design", byProject[0].Name)

	byMember, err := env.assignments.ListAssignments(ctx, env.scope, AssignmentFilter{TeamMember: "BOB@example.com"}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, "Design", byMember[0].Name)

	byStatus, err := env.assignments.ListAssignments(ctx, env.scope, AssignmentFilter{Status: domain.AssignmentStatusInProgress}, ListOptions{})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Ops", byStatus[0].Name)

	_, err = env.assignments.ListAssignments(ctx, env.scope, AssignmentFilter{Status: "done"}, ListOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestUpdateAssignment(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	project, _ := env.projects.CreateProject(ctx, env.scope, CreateProjectInput{Name: "Launch"})
	assignment, err := env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{ProjectID: &project.ID, Name: "Design"})
	require.NoError(t, err)

	status := domain.AssignmentStatusCompleted
	updated, err := env.assignments.UpdateAssignment(ctx, env.scope, assignment.ID, UpdateAssignmentInput{
		ClearProject: true,
		Status:       &status,
		TeamMembers:  []string{"dave@example.com"},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ProjectID)
	assert.Equal(t, domain.AssignmentStatusCompleted, updated.Status)
	assert.Equal(t, []string{"dave@example.com"}, updated.TeamMembers)

	priority := domain.Priority("critical")
	_, err = env.assignments.UpdateAssignment(ctx, env.scope, assignment.ID, UpdateAssignmentInput{Priority: &priority})
	assert.True(t, errors.Is(err, domain.ErrInvalidPriority))
}

func TestDeleteAssignment_CrossWorkspace(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	assignment, err := env.assignments.CreateAssignment(ctx, env.scope, CreateAssignmentInput{Name: "Design"})
	require.NoError(t, err)

	err = env.assignments.DeleteAssignment(ctx, env.otherScope, assignment.ID)
	assert.ErrorIs(t, err, domain.ErrCrossWorkspace)

	require.NoError(t, env.assignments.DeleteAssignment(ctx, env.scope, assignment.ID))
	assert.Equal(t, 0, env.stores.Assignments.Len())
}

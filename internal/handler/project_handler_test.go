package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	rec := env.call(h.CreateProject, env.session, http.MethodPost, "/api/v1/projects", CreateProjectRequest{
		Name:     "Website relaunch",
		Priority: domain.PriorityHigh,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	project := decodeBody[domain.Project](t, rec)
	assert.Equal(t, "Website relaunch", project.Name)
	assert.Equal(t, domain.ProjectStatusPlanning, project.Status)
	assert.Equal(t, domain.PriorityHigh, project.Priority)
	assert.Equal(t, env.session.Workspace.ID, project.WorkspaceID)
}

func TestCreateProject_Validation(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	rec := env.call(h.CreateProject, env.session, http.MethodPost, "/api/v1/projects", CreateProjectRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "name", problem.Errors[0].Field)

	rec = env.call(h.CreateProject, env.session, http.MethodPost, "/api/v1/projects", CreateProjectRequest{
		Name:   "X",
		Status: "someday",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.stores.Projects.Len())
}

func TestCreateProject_NoWorkspace(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	session := newSession("carol@example.com")
	session.Workspace = nil

	rec := env.call(h.CreateProject, session, http.MethodPost, "/api/v1/projects", CreateProjectRequest{Name: "X"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProjects_OnlyActiveWorkspace(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)
	ctx := context.Background()

	_, err := env.projects.CreateProject(ctx, env.session.Scope(), service.CreateProjectInput{Name: "Mine"})
	require.NoError(t, err)
	_, err = env.projects.CreateProject(ctx, env.otherSession.Scope(), service.CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	rec := env.call(h.ListProjects, env.session, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decodeBody[[]domain.Project](t, rec)
	require.Len(t, projects, 1)
	assert.Equal(t, "Mine", projects[0].Name)
}

func TestListProjects_InvalidQuery(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	rec := env.call(h.ListProjects, env.session, http.MethodGet, "/api/v1/projects?limit=9999&sort=--", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeProblem(t, rec).Errors, 2)
}

func TestGetProject_CrossWorkspace(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	theirs, err := env.projects.CreateProject(context.Background(), env.otherSession.Scope(), service.CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	rec := env.call(h.GetProject, env.session, http.MethodGet, "/api/v1/projects/x", nil, "id", theirs.ID.String())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.call(h.DeleteProject, env.session, http.MethodDelete, "/api/v1/projects/x", nil, "id", theirs.ID.String())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, env.stores.Projects.Len())
}

func TestUpdateProject(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	project, err := env.projects.CreateProject(context.Background(), env.session.Scope(), service.CreateProjectInput{Name: "Draft"})
	require.NoError(t, err)

	status := domain.ProjectStatusActive
	rec := env.call(h.UpdateProject, env.session, http.MethodPut, "/api/v1/projects/x",
		UpdateProjectRequest{Status: &status}, "id", project.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeBody[domain.Project](t, rec)
	assert.Equal(t, domain.ProjectStatusActive, updated.Status)
	assert.Equal(t, "Draft", updated.Name)
}

func TestDeleteProject_NotFound(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewProjectHandler(env.projects)

	rec := env.call(h.DeleteProject, env.session, http.MethodDelete, "/api/v1/projects/x", nil,
		"id", "6f1c1f9e-8d4a-4a57-9a3e-0e7c6a1b2c3d")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
)

func setupAssignment(t *testing.T, env *serviceEnv) *domain.Assignment {
	t.Helper()
	assignment, err := env.assignments.CreateAssignment(context.Background(), env.scope, CreateAssignmentInput{Name: "Design"})
	if err != nil {
		t.Fatalf("Expected no error creating assignment, got %v", err)
	}
	return assignment
}

func TestCreateTask_Success(t *testing.T) {
	env := newServiceEnv(t)
	assignment := setupAssignment(t, env)
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	task, err := env.tasks.CreateTask(context.Background(), env.scope, CreateTaskInput{
		AssignmentID: assignment.ID,
		Title:        "Draft wireframes",
		AssignedTo:   " Bob@Example.com ",
		DueDate:      &due,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Status != domain.TaskStatusTodo {
		t.Errorf("Expected status todo, got %s", task.Status)
	}
	if task.AssignedTo != "bob@example.com" {
		t.Errorf("Expected normalized assignee, got %q", task.AssignedTo)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Errorf("Expected due date %v, got %v", due, task.DueDate)
	}
}

func TestCreateTask_RequiresAssignment(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	if _, err := env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{Title: "Orphan"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: uuid.New(), Title: "Orphan"}); !errors.Is(err, domain.ErrAssignmentNotFound) {
		t.Errorf("Expected ErrAssignmentNotFound, got %v", err)
	}

	foreign, _ := env.assignments.CreateAssignment(ctx, env.otherScope, CreateAssignmentInput{Name: "Theirs"})
	if _, err := env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: foreign.ID, Title: "Sneaky"}); !errors.Is(err, domain.ErrCrossWorkspace) {
		t.Errorf("Expected ErrCrossWorkspace, got %v", err)
	}
	if env.stores.Tasks.Len() != 0 {
		t.Errorf("Expected no tasks stored, got %d", env.stores.Tasks.Len())
	}
}

func TestUpdateTask_StatusAndDueDate(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	assignment := setupAssignment(t, env)
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	task, _ := env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: assignment.ID, Title: "Review", DueDate: &due})

	status := domain.TaskStatusReview
	updated, err := env.tasks.UpdateTask(ctx, env.scope, task.ID, UpdateTaskInput{Status: &status, ClearDueDate: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != domain.TaskStatusReview {
		t.Errorf("Expected status review, got %s", updated.Status)
	}
	if updated.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", updated.DueDate)
	}

	bad := domain.TaskStatus("blocked")
	if _, err := env.tasks.UpdateTask(ctx, env.scope, task.ID, UpdateTaskInput{Status: &bad}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestListTasks_ByAssignee(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	assignment := setupAssignment(t, env)

	env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: assignment.ID, Title: "One", AssignedTo: "bob@example.com"})
	env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: assignment.ID, Title: "Two", AssignedTo: "carol@example.com"})

	tasks, err := env.tasks.ListTasks(ctx, env.scope, TaskFilter{AssignedTo: "Bob@example.com"}, ListOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "One" {
		t.Errorf("Expected only task One, got %d tasks", len(tasks))
	}
}

func TestDeleteTask(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	assignment := setupAssignment(t, env)
	task, _ := env.tasks.CreateTask(ctx, env.scope, CreateTaskInput{AssignmentID: assignment.ID, Title: "One"})

	if err := env.tasks.DeleteTask(ctx, env.otherScope, task.ID); !errors.Is(err, domain.ErrCrossWorkspace) {
		t.Errorf("Expected ErrCrossWorkspace, got %v", err)
	}
	if err := env.tasks.DeleteTask(ctx, env.scope, task.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := env.tasks.GetTask(ctx, env.scope, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

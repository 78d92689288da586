package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatuses lists accepted task statuses
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskStatusTodo:       true,
	TaskStatusInProgress: true,
	TaskStatusReview:     true,
	TaskStatusCompleted:  true,
}

// Task belongs to an assignment
type Task struct {
	Record
	AssignmentID uuid.UUID  `json:"assignment_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	AssignedTo   string     `json:"assigned_to"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

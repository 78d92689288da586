package domain

import (
	"errors"

	"github.com/google/uuid"
)

var ErrAssignmentNotFound = errors.New("assignment not found")

type AssignmentStatus string

const (
	AssignmentStatusNotStarted AssignmentStatus = "not_started"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusOnHold     AssignmentStatus = "on_hold"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// ValidAssignmentStatuses lists accepted assignment statuses
var ValidAssignmentStatuses = map[AssignmentStatus]bool{
	AssignmentStatusNotStarted: true,
	AssignmentStatusInProgress: true,
	AssignmentStatusOnHold:     true,
	AssignmentStatusCompleted:  true,
}

// Assignment is a unit of work, optionally attached to a project
type Assignment struct {
	Record
	ProjectID         *uuid.UUID       `json:"project_id,omitempty"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	AssignmentManager string           `json:"assignment_manager"`
	TeamMembers       []string         `json:"team_members"`
	Status            AssignmentStatus `json:"status"`
	Priority          Priority         `json:"priority"`
}

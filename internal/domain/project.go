package domain

import "errors"

var ErrProjectNotFound = errors.New("project not found")

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// ValidProjectStatuses lists accepted project statuses
var ValidProjectStatuses = map[ProjectStatus]bool{
	ProjectStatusPlanning:  true,
	ProjectStatusActive:    true,
	ProjectStatusOnHold:    true,
	ProjectStatusCompleted: true,
	ProjectStatusCancelled: true,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities lists accepted priorities for projects, assignments and tasks
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Project groups assignments inside a workspace
type Project struct {
	Record
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	Goals       string        `json:"goals"`
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrThreadNotFound = errors.New("conversation thread not found")

type ThreadStatus string

const (
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusResolved ThreadStatus = "resolved"
	ThreadStatusArchived ThreadStatus = "archived"
)

// ValidThreadStatuses lists accepted thread statuses
var ValidThreadStatuses = map[ThreadStatus]bool{
	ThreadStatusActive:   true,
	ThreadStatusResolved: true,
	ThreadStatusArchived: true,
}

// ConversationThread is a team chat topic, optionally tied to an assignment
type ConversationThread struct {
	Record
	AssignmentID *uuid.UUID   `json:"assignment_id,omitempty"`
	Topic        string       `json:"topic"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	Status       ThreadStatus `json:"status"`
	LastActivity time.Time    `json:"last_activity"`
	MessageCount int          `json:"message_count"`
}

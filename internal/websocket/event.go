package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event (created, updated, deleted)
type EventType string

const (
	EventTypeCreated  EventType = "created"
	EventTypeUpdated  EventType = "updated"
	EventTypeDeleted  EventType = "deleted"
	EventTypeReacted  EventType = "reacted"
	EventTypeSwitched EventType = "switched"
	EventTypeCleared  EventType = "cleared"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeProject    EntityType = "project"
	EntityTypeAssignment EntityType = "assignment"
	EntityTypeTask       EntityType = "task"
	EntityTypeDocument   EntityType = "document"
	EntityTypeThread     EntityType = "conversation_thread"
	EntityTypeMessage    EntityType = "message"
	EntityTypeWorkspace  EntityType = "workspace"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "document.updated"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "document"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Created creates an "<entity>.created" event
func Created(entity EntityType, payload interface{}) Event {
	return NewEvent(EventTypeCreated, entity, payload)
}

// Updated creates an "<entity>.updated" event
func Updated(entity EntityType, payload interface{}) Event {
	return NewEvent(EventTypeUpdated, entity, payload)
}

// Deleted creates an "<entity>.deleted" event
func Deleted(entity EntityType, payload interface{}) Event {
	return NewEvent(EventTypeDeleted, entity, payload)
}

// MessageReacted creates a message.reacted event
func MessageReacted(payload interface{}) Event {
	return NewEvent(EventTypeReacted, EntityTypeMessage, payload)
}

// WorkspaceSwitched creates a workspace.switched event. The connection has
// already been moved to the new workspace; clients re-fetch every view.
func WorkspaceSwitched(payload interface{}) Event {
	return NewEvent(EventTypeSwitched, EntityTypeWorkspace, payload)
}

// WorkspaceCleared creates a workspace.cleared event
func WorkspaceCleared(payload interface{}) Event {
	return NewEvent(EventTypeCleared, EntityTypeWorkspace, payload)
}

// DeletedPayload is sent with delete events
type DeletedPayload struct {
	ID string `json:"id"`
}

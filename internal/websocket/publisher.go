package websocket

import "github.com/google/uuid"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients connected to the specified workspace
	Publish(workspaceID uuid.UUID, event Event)
	// SwitchUser rescopes every connection of one user to workspaceID, then sends the event to them
	SwitchUser(email string, workspaceID uuid.UUID, event Event)
	// RemoveUser disconnects a user's connections attached to workspaceID
	RemoveUser(email string, workspaceID uuid.UUID) int
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the workspace
func (h *Hub) Publish(workspaceID uuid.UUID, event Event) {
	h.Broadcast(workspaceID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(workspaceID uuid.UUID, event Event) {}

// RemoveUser does nothing
func (n *NoOpPublisher) RemoveUser(email string, workspaceID uuid.UUID) int { return 0 }

// SwitchUser does nothing
func (n *NoOpPublisher) SwitchUser(email string, workspaceID uuid.UUID, event Event) {}

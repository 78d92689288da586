package service

import (
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// eventPublishing is embedded by feature services that broadcast live events
type eventPublishing struct {
	eventPublisher websocket.EventPublisher
}

// SetEventPublisher sets the event publisher for real-time updates
func (p *eventPublishing) SetEventPublisher(publisher websocket.EventPublisher) {
	p.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (p *eventPublishing) publishEvent(workspaceID uuid.UUID, event websocket.Event) {
	if p.eventPublisher != nil {
		p.eventPublisher.Publish(workspaceID, event)
	}
}

func deletedPayload(id uuid.UUID) websocket.DeletedPayload {
	return websocket.DeletedPayload{ID: id.String()}
}

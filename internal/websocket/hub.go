package websocket

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	WorkspaceID() uuid.UUID
	UserEmail() string
	MoveTo(workspaceID uuid.UUID)
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by workspace
// It is safe for concurrent use
type Hub struct {
	// workspaces maps workspace ID to a map of client ID to client
	workspaces map[uuid.UUID]map[string]ClientInterface
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		workspaces: make(map[uuid.UUID]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its workspace
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	workspaceID := client.WorkspaceID()
	clientID := client.ID()

	if h.workspaces[workspaceID] == nil {
		h.workspaces[workspaceID] = make(map[string]ClientInterface)
	}

	h.workspaces[workspaceID][clientID] = client

	log.Debug().
		Str("workspace_id", workspaceID.String()).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	workspaceID := client.WorkspaceID()
	clientID := client.ID()

	if clients, ok := h.workspaces[workspaceID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			// Clean up empty workspace maps
			if len(clients) == 0 {
				delete(h.workspaces, workspaceID)
			}

			log.Debug().
				Str("workspace_id", workspaceID.String()).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients in a specific workspace
func (h *Hub) Broadcast(workspaceID uuid.UUID, event Event) {
	h.mu.RLock()
	clients := h.workspaces[workspaceID]
	targets := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.send(targets, event, workspaceID.String())
}

// SwitchUser moves every connection of one user into workspaceID and then
// delivers event to them. Connections already in workspaceID stay put.
func (h *Hub) SwitchUser(email string, workspaceID uuid.UUID, event Event) {
	h.mu.Lock()
	var targets []ClientInterface
	for from, clients := range h.workspaces {
		for id, client := range clients {
			if !strings.EqualFold(client.UserEmail(), email) {
				continue
			}
			targets = append(targets, client)
			if from == workspaceID {
				continue
			}
			delete(clients, id)
			if len(clients) == 0 {
				delete(h.workspaces, from)
			}
			client.MoveTo(workspaceID)
			if h.workspaces[workspaceID] == nil {
				h.workspaces[workspaceID] = make(map[string]ClientInterface)
			}
			h.workspaces[workspaceID][id] = client
		}
	}
	h.mu.Unlock()

	h.send(targets, event, "user:"+email)
}

// RemoveUser disconnects every connection of one user that is attached to
// workspaceID and returns how many were dropped. Removal from the hub happens
// before the lock is released, so no later broadcast can reach them.
func (h *Hub) RemoveUser(email string, workspaceID uuid.UUID) int {
	h.mu.Lock()
	clients := h.workspaces[workspaceID]
	var dropped []ClientInterface
	for id, client := range clients {
		if strings.EqualFold(client.UserEmail(), email) {
			delete(clients, id)
			dropped = append(dropped, client)
		}
	}
	if len(clients) == 0 {
		delete(h.workspaces, workspaceID)
	}
	h.mu.Unlock()

	for _, client := range dropped {
		if err := client.Close(); err != nil {
			log.Debug().Err(err).Str("client_id", client.ID()).Msg("Close after access revoked")
		}
	}
	if len(dropped) > 0 {
		log.Info().
			Str("workspace_id", workspaceID.String()).
			Str("user_email", email).
			Int("client_count", len(dropped)).
			Msg("Disconnected WebSocket clients of removed member")
	}
	return len(dropped)
}

// send delivers outside the hub lock, one goroutine per client
func (h *Hub) send(targets []ClientInterface, event Event, target string) {
	if len(targets) == 0 {
		return
	}

	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("target", target).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	for _, client := range targets {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("target", target).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("target", target).
		Str("event_type", event.Type).
		Int("client_count", len(targets)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected to a workspace
func (h *Hub) ClientCount(workspaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.workspaces[workspaceID]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the total number of connected clients across all workspaces
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.workspaces {
		total += len(clients)
	}
	return total
}

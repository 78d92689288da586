package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EventType
		expected string
	}{
		{"created", EventTypeCreated, "created"},
		{"updated", EventTypeUpdated, "updated"},
		{"deleted", EventTypeDeleted, "deleted"},
		{"reacted", EventTypeReacted, "reacted"},
		{"switched", EventTypeSwitched, "switched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"id":    "6b1c",
		"title": "Kickoff notes",
	}

	before := time.Now()
	evt := NewEvent(EventTypeCreated, EntityTypeDocument, payload)
	after := time.Now()

	assert.Equal(t, "document.created", evt.Type)
	assert.Equal(t, EntityTypeDocument, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	evt := Event{
		Type:      "task.updated",
		Entity:    EntityTypeTask,
		Payload:   map[string]interface{}{"id": "t1", "status": "review"},
		Timestamp: fixedTime,
	}

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime, decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "review", decodedPayload["status"])
}

func TestEvent_Helpers(t *testing.T) {
	payload := map[string]interface{}{"id": "x"}

	tests := []struct {
		name     string
		evt      Event
		expected string
		entity   EntityType
	}{
		{"created", Created(EntityTypeProject, payload), "project.created", EntityTypeProject},
		{"updated", Updated(EntityTypeAssignment, payload), "assignment.updated", EntityTypeAssignment},
		{"deleted", Deleted(EntityTypeThread, payload), "conversation_thread.deleted", EntityTypeThread},
		{"reacted", MessageReacted(payload), "message.reacted", EntityTypeMessage},
		{"switched", WorkspaceSwitched(payload), "workspace.switched", EntityTypeWorkspace},
		{"cleared", WorkspaceCleared(payload), "workspace.cleared", EntityTypeWorkspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.evt.Type)
			assert.Equal(t, tt.entity, tt.evt.Entity)
			assert.Equal(t, payload, tt.evt.Payload)
		})
	}
}

package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMessageNotFound     = errors.New("message not found")
	ErrMessageContentEmpty = errors.New("message content is required")
	ErrNotMessageAuthor    = errors.New("only the author can change this message")
	ErrInvalidEmoji        = errors.New("invalid reaction emoji")
)

type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Reaction is one user's emoji on a message
type Reaction struct {
	Emoji     string `json:"emoji"`
	UserEmail string `json:"user_email"`
}

// Message is a chat message inside a conversation thread
type Message struct {
	Record
	ThreadID        uuid.UUID   `json:"thread_id"`
	AssignmentID    *uuid.UUID  `json:"assignment_id,omitempty"`
	AuthorEmail     string      `json:"author_email"`
	Content         string      `json:"content"`
	MessageType     MessageType `json:"message_type"`
	FileURL         string      `json:"file_url,omitempty"`
	FileName        string      `json:"file_name,omitempty"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	LinkedDocuments []uuid.UUID `json:"linked_documents"`
	Reactions       []Reaction  `json:"reactions"`
}

// ToggleReaction adds the user's emoji, or removes it when already present
func (m *Message) ToggleReaction(emoji, userEmail string) []Reaction {
	out := make([]Reaction, 0, len(m.Reactions)+1)
	removed := false
	for _, r := range m.Reactions {
		if r.Emoji == emoji && strings.EqualFold(r.UserEmail, userEmail) {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, Reaction{Emoji: emoji, UserEmail: userEmail})
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a logged message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Valid reports whether r is a known message role.
func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant, MessageRoleTool:
		return true
	}
	return false
}

// Message is one logged message inside a chat. The organization and owner
// columns are denormalized from the chat so every message query can be
// tenancy-filtered without a join.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ChatID         uuid.UUID   `json:"chat_id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	OwnerID        *uuid.UUID  `json:"owner_id,omitempty"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Tokens         int         `json:"tokens,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

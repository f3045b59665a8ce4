package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Chat is a logged conversation. OwnerID is nil when the chat was ingested
// through an organization API key with no user subject.
type Chat struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	OwnerID        *uuid.UUID      `json:"owner_id,omitempty"`
	Title          string          `json:"title"`
	Source         string          `json:"source,omitempty"`
	Tags           []string        `json:"tags"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a file stored in S3 and linked to a logged message.
type Attachment struct {
	ID             uuid.UUID  `json:"id"`
	MessageID      uuid.UUID  `json:"message_id"`
	ChatID         uuid.UUID  `json:"chat_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	OwnerID        *uuid.UUID `json:"owner_id"`
	FileName       string     `json:"file_name"`
	ContentType    string     `json:"content_type"`
	SizeBytes      int64      `json:"size_bytes"`
	S3Key          string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

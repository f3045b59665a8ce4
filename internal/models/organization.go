package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant. Every resource in the system hangs off exactly
// one organization; authentication with the organization API key yields an
// org-level context with no user subject.
type Organization struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	APIKeyHash    string    `json:"-"`
	RetentionDays int       `json:"retention_days"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

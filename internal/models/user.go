package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the platform.
type Role string

const (
	// RoleSuperadmin may act cross-tenant; used only for organization
	// management. Superadmins may have no organization at all.
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User represents an account. OrganizationID is nil only for superadmins.
type User struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	APIKeyHash     string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role determines what a user may do in the portal.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleValidateur Role = "validateur"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleValidateur, RoleAdmin:
		return true
	}
	return false
}

// CanDecide reports whether the role may approve or reject submitted fiches.
func (r Role) CanDecide() bool {
	return r == RoleValidateur || r == RoleAdmin
}

// User represents an authenticated user. The role field doubles as the user's
// profile: exactly one role per user, defaulting to agent.
type User struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName  string         `gorm:"size:255" json:"full_name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Role      Role           `gorm:"size:20;not null;default:'agent'" json:"role"`
}

// BeforeCreate assigns a fresh UUID when none was provided.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile is the public projection of a user: everything except credentials.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile returns the user's public projection.
func (u *User) Profile() Profile {
	role := u.Role
	if role == "" {
		role = RoleAgent
	}
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// Role names carried in JWT claims. The receptionist role has no
// clinical privilege and triggers response redaction.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleClinician    Role = "clinician"
	RoleReceptionist Role = "receptionist"
)

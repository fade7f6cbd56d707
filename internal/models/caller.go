package models

import "github.com/google/uuid"

type CallerRole string

const (
	RoleAdmin  CallerRole = "admin"
	RoleStaff  CallerRole = "staff"
	RoleViewer CallerRole = "viewer"
)

func (r CallerRole) Valid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleViewer
}

// Caller is the authenticated identity behind a ledger operation.
type Caller struct {
	UserID            uuid.UUID  `json:"user_id"`
	Role              CallerRole `json:"role"`
	AssignedShelterID *uuid.UUID `json:"assigned_shelter_id,omitempty"`
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// AssignedTo reports whether the caller is staff assigned to the given shelter.
func (c Caller) AssignedTo(shelterID uuid.UUID) bool {
	return c.Role == RoleStaff && c.AssignedShelterID != nil && *c.AssignedShelterID == shelterID
}

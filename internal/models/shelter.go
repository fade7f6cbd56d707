package models

import (
	"time"

	"github.com/google/uuid"
)

type Shelter struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Address      *string   `json:"address" db:"address"`
	Capacity     *int      `json:"capacity" db:"capacity"`
	ContactPhone *string   `json:"contact_phone" db:"contact_phone"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

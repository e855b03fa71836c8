package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Venue is a physical location at a university. Venue clash detection
// keys on the venue alone; the owning university is irrelevant to it.
type Venue struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	UniversityID uuid.UUID       `json:"university_id"`
	Capacity     int             `json:"capacity"`
	Features     json.RawMessage `json:"features,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendance records a check-in for an event. Created only while the user
// holds an active registration; immutable apart from administrative
// correction of the verified flag.
type Attendance struct {
	ID             uuid.UUID  `json:"id"`
	EventID        uuid.UUID  `json:"event_id"`
	UserID         uuid.UUID  `json:"user_id"`
	RegistrationID uuid.UUID  `json:"registration_id"`
	CheckedInBy    *uuid.UUID `json:"checked_in_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	IsVerified     bool       `json:"is_verified"`
	CheckedInAt    time.Time  `json:"checked_in_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the state of a user's registration for an event.
type RegistrationStatus string

const (
	Registered RegistrationStatus = "registered"
	Waitlisted RegistrationStatus = "waitlisted"
	Cancelled  RegistrationStatus = "cancelled"
	Attended   RegistrationStatus = "attended"
)

// Active reports whether the status counts toward event capacity.
func (s RegistrationStatus) Active() bool {
	return s == Registered || s == Attended
}

// Registration is the unique (event, user) registration row. It is never
// deleted: cancellation is a status transition and re-registration reuses
// the row.
type Registration struct {
	ID           uuid.UUID          `json:"id"`
	EventID      uuid.UUID          `json:"event_id"`
	UserID       uuid.UUID          `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registered_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// WaitlistEntry queues a user for a full event. Positions for an event
// always form a gapless 1..N sequence in join order.
type WaitlistEntry struct {
	ID       uuid.UUID `json:"id"`
	EventID  uuid.UUID `json:"event_id"`
	UserID   uuid.UUID `json:"user_id"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions.
const (
	ActionRegistered = "registered"
	ActionCancelled  = "cancelled"
	ActionWaitlisted = "waitlisted"
	ActionPromoted   = "promoted"
)

// Activity is one append-only entry in a user's recent activity feed.
type Activity struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

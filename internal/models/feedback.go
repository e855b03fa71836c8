package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a post-event rating, one per (event, user), allowed only
// after an attendance record exists.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

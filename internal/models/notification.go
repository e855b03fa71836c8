package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	NotifyRegistrationConfirmation = "registration_confirmation"
	NotifyWaitlistJoined           = "waitlist_joined"
	NotifyWaitlistPromotion        = "waitlist_promotion"
	NotifyEventCancelled           = "event_cancelled"
	NotifyEventUpdated             = "event_updated"
	NotifyAttendanceConfirmed      = "attendance_confirmed"
)

// Notification is a persisted user-facing message. Delivery (websocket,
// email) is best-effort; the row is the source of truth.
type Notification struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Type           string     `json:"notification_type"`
	IsRead         bool       `json:"is_read"`
	RelatedEventID *uuid.UUID `json:"related_event_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// EventVisibility controls who may register for an event.
type EventVisibility string

const (
	// VisibilityUniversity restricts registration to the host university.
	VisibilityUniversity EventVisibility = "university"
	// VisibilityInterUniversity allows an explicit set of universities
	// (empty allow-list means any university).
	VisibilityInterUniversity EventVisibility = "inter_university"
	// VisibilityPublic allows anyone.
	VisibilityPublic EventVisibility = "public"
)

// ValidVisibility reports whether v is a known visibility policy.
func ValidVisibility(v EventVisibility) bool {
	switch v {
	case VisibilityUniversity, VisibilityInterUniversity, VisibilityPublic:
		return true
	}
	return false
}

// Event is a campus event. Capacity nil means unlimited.
type Event struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	StartsAt         time.Time       `json:"starts_at"`
	VenueID          *uuid.UUID      `json:"venue_id,omitempty"`
	OrganizerID      uuid.UUID       `json:"organizer_id"`
	HostUniversityID uuid.UUID       `json:"host_university_id"`
	CategoryID       *uuid.UUID      `json:"category_id,omitempty"`
	Capacity         *int            `json:"capacity,omitempty"`
	Visibility       EventVisibility `json:"visibility"`
	Status           EventStatus     `json:"status"`
	PosterKey        string          `json:"poster_key,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EventCategory groups events for discovery.
type EventCategory struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

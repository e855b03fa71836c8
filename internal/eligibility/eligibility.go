// Package eligibility decides whether a user's university affiliation
// satisfies an event's visibility policy. It is evaluated before any
// capacity transition; a failed check never touches registration state.
package eligibility

import (
	"errors"

	"github.com/google/uuid"

	"github.com/evex-campus/backend/internal/models"
)

var (
	// ErrHostUniversityOnly means the event admits only students of the
	// host university.
	ErrHostUniversityOnly = errors.New("event is only for students of the host university")
	// ErrUniversityNotAllowed means the user's university is not on the
	// event's allow-list.
	ErrUniversityNotAllowed = errors.New("your university is not allowed to register for this event")
)

// Check returns nil when a user affiliated with userUniversity (nil when
// unset) may register under the event's visibility policy. allowed is the
// event's allow-list for inter-university events; an empty list means
// unrestricted.
func Check(visibility models.EventVisibility, hostUniversity uuid.UUID, allowed []uuid.UUID, userUniversity *uuid.UUID) error {
	switch visibility {
	case models.VisibilityPublic:
		return nil
	case models.VisibilityUniversity:
		if userUniversity == nil || *userUniversity != hostUniversity {
			return ErrHostUniversityOnly
		}
		return nil
	case models.VisibilityInterUniversity:
		if len(allowed) == 0 {
			return nil
		}
		if userUniversity != nil {
			for _, id := range allowed {
				if id == *userUniversity {
					return nil
				}
			}
		}
		return ErrUniversityNotAllowed
	default:
		return ErrUniversityNotAllowed
	}
}

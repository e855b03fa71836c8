// Package registrations implements the registration lifecycle for events:
// capacity-checked registration, waitlisting, cancellation with promotion,
// and attendance. All state transitions for one event are serialized by a
// row lock on the event, so the decision logic here can stay pure.
package registrations

import "errors"

var (
	// ErrEventNotOpen means the event is not published.
	ErrEventNotOpen = errors.New("event is not open for registration")
	// ErrAlreadyRegistered means the user already holds an active registration.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrAlreadyWaitlisted means the user is already on the waitlist.
	ErrAlreadyWaitlisted = errors.New("already on the waitlist for this event")
	// ErrNotRegistered means the user has no active registration or
	// waitlist entry to act on.
	ErrNotRegistered = errors.New("no active registration for this event")
	// ErrAlreadyAttended means attendance was already recorded.
	ErrAlreadyAttended = errors.New("attendance already recorded")
	// ErrScheduleClash means the user holds an active registration for an
	// overlapping event.
	ErrScheduleClash = errors.New("schedule clash with another registered event")
	// ErrContention means the event row lock could not be acquired within
	// the configured timeout. Callers should retry.
	ErrContention = errors.New("event is busy, try again")
)

// Outcome is the result of a register decision.
type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeWaitlisted Outcome = "waitlisted"
)

// Snapshot is the capacity-relevant state of an event at decision time,
// read under the event row lock.
type Snapshot struct {
	Capacity    *int // nil = unlimited
	ActiveCount int  // registered + attended
}

// HasRoom reports whether the event can admit one more registrant.
func (s Snapshot) HasRoom() bool {
	return s.Capacity == nil || s.ActiveCount < *s.Capacity
}

// DecideRegister picks the outcome for a new registrant given the locked
// snapshot. A full event waitlists, never rejects.
func DecideRegister(s Snapshot) Outcome {
	if s.HasRoom() {
		return OutcomeRegistered
	}
	return OutcomeWaitlisted
}

// PromotableCount returns how many waitlisted users can be promoted after
// a capacity change, given the new snapshot and the waitlist length.
func PromotableCount(s Snapshot, waitlistLen int) int {
	if s.Capacity == nil {
		return waitlistLen
	}
	room := *s.Capacity - s.ActiveCount
	if room <= 0 {
		return 0
	}
	if room > waitlistLen {
		return waitlistLen
	}
	return room
}

// NextPosition returns the waitlist position for a new entry appended
// after the current maximum position (0 when the waitlist is empty).
func NextPosition(maxPosition int) int {
	return maxPosition + 1
}

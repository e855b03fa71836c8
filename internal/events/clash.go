package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evex-campus/backend/internal/models"
)

// EventDuration is the fixed assumed length of every event, applied
// uniformly for clash detection regardless of any declared duration.
const EventDuration = 2 * time.Hour

// ErrVenueClash is returned when publishing an event that overlaps another
// published event at the same venue.
var ErrVenueClash = errors.New("venue clash with another published event")

// Overlaps reports whether two events overlap under the fixed-duration
// assumption. Intervals that merely touch (one ends exactly when the
// other starts) do not overlap.
func Overlaps(aStart, bStart time.Time) bool {
	aEnd := aStart.Add(EventDuration)
	bEnd := bStart.Add(EventDuration)
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// SameDate reports whether two instants fall on the same calendar date
// (compared in UTC, matching the venue-clash query).
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// clashCandidate is a published event considered for a venue clash.
type clashCandidate struct {
	ID       uuid.UUID
	Title    string
	StartsAt time.Time
}

// CheckVenueClash rejects a candidate (venue, start time) that overlaps a
// published event at the same venue on the same calendar date. excludeID
// removes the event itself from the comparison set on re-save. Runs on
// every save of a published event.
func CheckVenueClash(ctx context.Context, pool *pgxpool.Pool, venueID uuid.UUID, startsAt time.Time, excludeID uuid.UUID) error {
	const q = `SELECT id, title, starts_at FROM events
		WHERE venue_id = $1 AND status = $2 AND id <> $3
		AND (starts_at AT TIME ZONE 'UTC')::date = ($4 AT TIME ZONE 'UTC')::date`
	rows, err := pool.Query(ctx, q, venueID, models.EventPublished, excludeID, startsAt)
	if err != nil {
		return err
	}
	defer rows.Close()
	var candidates []clashCandidate
	for rows.Next() {
		var c clashCandidate
		if err := rows.Scan(&c.ID, &c.Title, &c.StartsAt); err != nil {
			return err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, c := range candidates {
		if Overlaps(startsAt, c.StartsAt) {
			return fmt.Errorf("%w: %s", ErrVenueClash, c.Title)
		}
	}
	return nil
}

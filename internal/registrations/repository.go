package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evex-campus/backend/internal/events"
	"github.com/evex-campus/backend/internal/models"
)

// lockNotAvailable is the Postgres error code raised when lock_timeout
// expires before the row lock is granted.
const lockNotAvailable = "55P03"

// Repository handles registration, waitlist and attendance rows. Methods
// taking a pgx.Tx run inside the event-lock transaction owned by Service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LockEvent loads the event row FOR UPDATE, serializing all registration
// transitions for that event. Lock timeout expiry maps to ErrContention.
func (r *Repository) LockEvent(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, title, description, starts_at, venue_id, organizer_id, host_university_id, category_id,
		capacity, visibility, status, poster_key, created_at, updated_at
		FROM events WHERE id = $1 FOR UPDATE`
	var e models.Event
	err := tx.QueryRow(ctx, q, eventID).Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.VenueID,
		&e.OrganizerID, &e.HostUniversityID, &e.CategoryID, &e.Capacity, &e.Visibility, &e.Status,
		&e.PosterKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			return nil, ErrContention
		}
		return nil, err
	}
	return &e, nil
}

// ActiveCount counts capacity-consuming registrations under the lock.
func (r *Repository) ActiveCount(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ($2, $3)`,
		eventID, models.Registered, models.Attended).Scan(&n)
	return n, err
}

// GetRegistration loads the (event, user) registration row if it exists.
func (r *Repository) GetRegistration(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT id, event_id, user_id, status, registered_at, updated_at
		FROM registrations WHERE event_id = $1 AND user_id = $2`
	var reg models.Registration
	err := tx.QueryRow(ctx, q, eventID, userID).
		Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpsertRegistration creates the (event, user) row or resurrects an
// existing one with the new status. Rows are never deleted.
func (r *Repository) UpsertRegistration(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID, status models.RegistrationStatus) (*models.Registration, error) {
	const q = `INSERT INTO registrations (id, event_id, user_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET status = EXCLUDED.status, registered_at = NOW(), updated_at = NOW()
		RETURNING id, event_id, user_id, status, registered_at, updated_at`
	var reg models.Registration
	err := tx.QueryRow(ctx, q, eventID, userID, status).
		Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// SetStatus updates a registration's status in place.
func (r *Repository) SetStatus(ctx context.Context, tx pgx.Tx, registrationID uuid.UUID, status models.RegistrationStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE registrations SET status = $1, updated_at = NOW() WHERE id = $2`, status, registrationID)
	return err
}

// MaxWaitlistPosition returns the current maximum position (0 when empty).
func (r *Repository) MaxWaitlistPosition(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (int, error) {
	var max int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE event_id = $1`, eventID).Scan(&max)
	return max, err
}

// AppendWaitlist adds the user at the tail of the event's waitlist.
func (r *Repository) AppendWaitlist(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID, position int) (*models.WaitlistEntry, error) {
	const q = `INSERT INTO waitlist_entries (id, event_id, user_id, position)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, event_id, user_id, position, joined_at`
	var entry models.WaitlistEntry
	err := tx.QueryRow(ctx, q, eventID, userID, position).
		Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.Position, &entry.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetWaitlistEntry loads the user's waitlist entry if present.
func (r *Repository) GetWaitlistEntry(ctx context.Context, tx pgx.Tx, eventID, userID uuid.UUID) (*models.WaitlistEntry, error) {
	const q = `SELECT id, event_id, user_id, position, joined_at
		FROM waitlist_entries WHERE event_id = $1 AND user_id = $2`
	var entry models.WaitlistEntry
	err := tx.QueryRow(ctx, q, eventID, userID).
		Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.Position, &entry.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// WaitlistHead returns the position-1 entry, or nil when the waitlist is empty.
func (r *Repository) WaitlistHead(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*models.WaitlistEntry, error) {
	const q = `SELECT id, event_id, user_id, position, joined_at
		FROM waitlist_entries WHERE event_id = $1 ORDER BY position LIMIT 1`
	var entry models.WaitlistEntry
	err := tx.QueryRow(ctx, q, eventID).
		Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.Position, &entry.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// WaitlistLen counts entries for an event under the lock.
func (r *Repository) WaitlistLen(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist_entries WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// RemoveWaitlistEntry deletes an entry and closes the gap so positions
// stay a gapless 1..N sequence. Safe only under the event lock.
func (r *Repository) RemoveWaitlistEntry(ctx context.Context, tx pgx.Tx, entry *models.WaitlistEntry) error {
	if _, err := tx.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, entry.ID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx,
		`UPDATE waitlist_entries SET position = position - 1 WHERE event_id = $1 AND position > $2`,
		entry.EventID, entry.Position)
	return err
}

// PersonalClashExists reports whether the user holds an active
// registration for another published event overlapping startsAt.
func (r *Repository) PersonalClashExists(ctx context.Context, tx pgx.Tx, userID uuid.UUID, startsAt time.Time, excludeEventID uuid.UUID) (bool, error) {
	const q = `SELECT e.starts_at FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status IN ($2, $3) AND e.id <> $4 AND e.status = $5`
	rows, err := tx.Query(ctx, q, userID, models.Registered, models.Attended, excludeEventID, models.EventPublished)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var other time.Time
		if err := rows.Scan(&other); err != nil {
			return false, err
		}
		if events.Overlaps(startsAt, other) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// RecordAttendance inserts the attendance row for a registration.
func (r *Repository) RecordAttendance(ctx context.Context, tx pgx.Tx, eventID, userID, registrationID uuid.UUID, checkedInBy *uuid.UUID, notes string) (*models.Attendance, error) {
	const q = `INSERT INTO attendance (id, event_id, user_id, registration_id, checked_in_by, notes)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, event_id, user_id, registration_id, checked_in_by, notes, is_verified, checked_in_at`
	var a models.Attendance
	err := tx.QueryRow(ctx, q, eventID, userID, registrationID, checkedInBy, notes).
		Scan(&a.ID, &a.EventID, &a.UserID, &a.RegistrationID, &a.CheckedInBy, &a.Notes, &a.IsVerified, &a.CheckedInAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AllowedUniversities reads the event's allow-list inside the lock tx.
func (r *Repository) AllowedUniversities(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `SELECT university_id FROM event_allowed_universities WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetEventCapacity updates the event's capacity inside the lock tx.
func (r *Repository) SetEventCapacity(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, capacity *int) error {
	_, err := tx.Exec(ctx, `UPDATE events SET capacity = $1, updated_at = NOW() WHERE id = $2`, capacity, eventID)
	return err
}

// UserRegistration is a registration joined with its event for listings.
type UserRegistration struct {
	Registration models.Registration `json:"registration"`
	Event        models.Event        `json:"event"`
}

// ListByUser returns the user's registrations with event details, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]UserRegistration, error) {
	const q = `SELECT r.id, r.event_id, r.user_id, r.status, r.registered_at, r.updated_at,
		e.id, e.title, e.description, e.starts_at, e.venue_id, e.organizer_id, e.host_university_id,
		e.category_id, e.capacity, e.visibility, e.status, e.poster_key, e.created_at, e.updated_at
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 ORDER BY r.registered_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []UserRegistration
	for rows.Next() {
		var ur UserRegistration
		if err := rows.Scan(&ur.Registration.ID, &ur.Registration.EventID, &ur.Registration.UserID,
			&ur.Registration.Status, &ur.Registration.RegisteredAt, &ur.Registration.UpdatedAt,
			&ur.Event.ID, &ur.Event.Title, &ur.Event.Description, &ur.Event.StartsAt, &ur.Event.VenueID,
			&ur.Event.OrganizerID, &ur.Event.HostUniversityID, &ur.Event.CategoryID, &ur.Event.Capacity,
			&ur.Event.Visibility, &ur.Event.Status, &ur.Event.PosterKey, &ur.Event.CreatedAt,
			&ur.Event.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, ur)
	}
	return list, rows.Err()
}

// Registrant is one entry in an event's registrant listing.
type Registrant struct {
	Registration models.Registration `json:"registration"`
	User         models.UserPublic   `json:"user"`
}

// ListByEvent returns an event's registrations with user details,
// optionally filtered by status.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, status models.RegistrationStatus) ([]Registrant, error) {
	q := `SELECT r.id, r.event_id, r.user_id, r.status, r.registered_at, r.updated_at,
		u.id, u.email, u.full_name, u.role, u.created_at
		FROM registrations r JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1`
	args := []interface{}{eventID}
	if status != "" {
		args = append(args, status)
		q += ` AND r.status = $2`
	}
	q += ` ORDER BY r.registered_at`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Registrant
	for rows.Next() {
		var reg Registrant
		if err := rows.Scan(&reg.Registration.ID, &reg.Registration.EventID, &reg.Registration.UserID,
			&reg.Registration.Status, &reg.Registration.RegisteredAt, &reg.Registration.UpdatedAt,
			&reg.User.ID, &reg.User.Email, &reg.User.FullName, &reg.User.Role, &reg.User.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// ListWaitlist returns an event's waitlist in position order.
func (r *Repository) ListWaitlist(ctx context.Context, eventID uuid.UUID) ([]models.WaitlistEntry, error) {
	const q = `SELECT id, event_id, user_id, position, joined_at
		FROM waitlist_entries WHERE event_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.Position, &entry.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}

// ActiveUserIDs returns user IDs holding active or waitlisted state for an
// event, used to fan out event-level notifications.
func (r *Repository) ActiveUserIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT user_id FROM registrations WHERE event_id = $1 AND status IN ($2, $3, $4)`
	rows, err := r.pool.Query(ctx, q, eventID, models.Registered, models.Attended, models.Waitlisted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

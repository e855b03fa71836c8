package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evex-campus/backend/internal/models"
)

const eventColumns = `id, title, description, starts_at, venue_id, organizer_id, host_university_id, category_id,
	capacity, visibility, status, poster_key, created_at, updated_at`

// ErrInvalidTransition is returned for a disallowed lifecycle change.
var ErrInvalidTransition = errors.New("invalid event status transition")

// Repository handles event persistence and lifecycle.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.VenueID, &e.OrganizerID, &e.HostUniversityID,
		&e.CategoryID, &e.Capacity, &e.Visibility, &e.Status, &e.PosterKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event. Publishing directly runs venue clash
// validation; callers on non-interactive paths may demote to draft on
// ErrVenueClash instead of failing.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	if e.Status == models.EventPublished && e.VenueID != nil {
		if err := CheckVenueClash(ctx, r.pool, *e.VenueID, e.StartsAt, e.ID); err != nil {
			return err
		}
	}
	const q = `INSERT INTO events (id, title, description, starts_at, venue_id, organizer_id, host_university_id, category_id, capacity, visibility, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.StartsAt, e.VenueID, e.OrganizerID,
		e.HostUniversityID, e.CategoryID, e.Capacity, e.Visibility, e.Status).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// Update persists mutable event fields. A published event is re-validated
// against venue clashes on every save, not only on creation. Capacity is
// deliberately not written here: capacity changes go through the
// registration service, which holds the event row lock and runs the
// waitlist promotion loop.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	if e.Status == models.EventPublished && e.VenueID != nil {
		if err := CheckVenueClash(ctx, r.pool, *e.VenueID, e.StartsAt, e.ID); err != nil {
			return err
		}
	}
	const q = `UPDATE events SET title = $1, description = $2, starts_at = $3, venue_id = $4, category_id = $5,
		visibility = $6, status = $7, updated_at = NOW() WHERE id = $8`
	_, err := r.pool.Exec(ctx, q, e.Title, e.Description, e.StartsAt, e.VenueID, e.CategoryID,
		e.Visibility, e.Status, e.ID)
	return err
}

// Cancel performs the soft-delete transition published|draft -> cancelled.
// Events are never physically removed once they have registration activity.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == models.EventCancelled || e.Status == models.EventCompleted {
		return nil, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, e.Status)
	}
	_, err = r.pool.Exec(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, models.EventCancelled, id)
	if err != nil {
		return nil, err
	}
	e.Status = models.EventCancelled
	return e, nil
}

// Complete transitions a published event to completed.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EventPublished {
		return nil, fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, e.Status)
	}
	_, err = r.pool.Exec(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, models.EventCompleted, id)
	if err != nil {
		return nil, err
	}
	e.Status = models.EventCompleted
	return e, nil
}

// SetPosterKey stores the S3 object key of the uploaded poster.
func (r *Repository) SetPosterKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `UPDATE events SET poster_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	return err
}

// SetAllowedUniversities replaces the allow-list for an inter-university event.
func (r *Repository) SetAllowedUniversities(ctx context.Context, eventID uuid.UUID, universityIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM event_allowed_universities WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, id := range universityIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_allowed_universities (event_id, university_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			eventID, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AllowedUniversities returns the allow-list for an event (empty = unrestricted).
func (r *Repository) AllowedUniversities(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT university_id FROM event_allowed_universities WHERE event_id = $1`, eventID)
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

// ListFilter narrows the public event listing.
type ListFilter struct {
	Search       string
	CategoryID   *uuid.UUID
	UniversityID *uuid.UUID
	DateFrom     *time.Time
	DateTo       *time.Time
}

// ListPublished returns published events matching the filter, ordered by start time.
func (r *Repository) ListPublished(ctx context.Context, f ListFilter) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE status = $1`
	args := []interface{}{models.EventPublished}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		q += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		q += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.UniversityID != nil {
		args = append(args, *f.UniversityID)
		q += fmt.Sprintf(" AND host_university_id = $%d", len(args))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		q += fmt.Sprintf(" AND starts_at >= $%d", len(args))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		q += fmt.Sprintf(" AND starts_at <= $%d", len(args))
	}
	q += " ORDER BY starts_at"
	return r.queryEvents(ctx, q, args...)
}

// ListByOrganizer returns all events (including drafts) for an organizer, newest first.
func (r *Repository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`, organizerID)
}

// ActiveCount returns the number of capacity-consuming registrations
// (registered + attended) for an event.
func (r *Repository) ActiveCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ($2, $3)`,
		eventID, models.Registered, models.Attended).Scan(&n)
	return n, err
}

func (r *Repository) queryEvents(ctx context.Context, q string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.VenueID, &e.OrganizerID,
			&e.HostUniversityID, &e.CategoryID, &e.Capacity, &e.Visibility, &e.Status, &e.PosterKey,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetOrCreateCategory returns the category with the given name, creating it if needed.
func (r *Repository) GetOrCreateCategory(ctx context.Context, name string) (*models.EventCategory, error) {
	const q = `INSERT INTO event_categories (id, name) VALUES (gen_random_uuid(), $1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, created_at`
	var cat models.EventCategory
	err := r.pool.QueryRow(ctx, q, name).Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListCategories returns all categories.
func (r *Repository) ListCategories(ctx context.Context) ([]models.EventCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM event_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventCategory
	for rows.Next() {
		var cat models.EventCategory
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, cat)
	}
	return list, rows.Err()
}

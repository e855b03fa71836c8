package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evex-campus/backend/internal/models"
)

// Repository reads attendance records. Writes go through the
// registration service so they share the event lock transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record is one check-in with the attendee's public details.
type Record struct {
	Attendance models.Attendance `json:"attendance"`
	User       models.UserPublic `json:"user"`
}

// ListByEvent returns an event's check-ins in check-in order.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Record, error) {
	const q = `SELECT a.id, a.event_id, a.user_id, a.registration_id, a.checked_in_by, a.notes, a.is_verified, a.checked_in_at,
		u.id, u.email, u.full_name, u.role, u.created_at
		FROM attendance a JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1 ORDER BY a.checked_in_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Attendance.ID, &rec.Attendance.EventID, &rec.Attendance.UserID,
			&rec.Attendance.RegistrationID, &rec.Attendance.CheckedInBy, &rec.Attendance.Notes,
			&rec.Attendance.IsVerified, &rec.Attendance.CheckedInAt,
			&rec.User.ID, &rec.User.Email, &rec.User.FullName, &rec.User.Role, &rec.User.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// CountByEvent returns the number of check-ins for an event.
func (r *Repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// AttendedEventIDs returns IDs of events the user attended, used to gate
// feedback submission.
func (r *Repository) AttendedEventIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT event_id FROM attendance WHERE user_id = $1`, userID)
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

// Exists reports whether the user checked in at the event.
func (r *Repository) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&exists)
	return exists, err
}

// Package analytics aggregates dashboard figures for admins, organizers
// and students. Read-only; everything is computed with plain SQL.
package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
)

// PlatformStats is the admin overview.
type PlatformStats struct {
	TotalUsers          int            `json:"total_users"`
	UsersByRole         map[string]int `json:"users_by_role"`
	TotalUniversities   int            `json:"total_universities"`
	TotalEvents         int            `json:"total_events"`
	PublishedEvents     int            `json:"published_events"`
	TotalRegistrations  int            `json:"total_registrations"`
	Registrations30Days int            `json:"registrations_30_days"`
	TotalAttendance     int            `json:"total_attendance"`
	WaitlistedUsers     int            `json:"waitlisted_users"`
	TopEvents           []TopEvent     `json:"top_events"`
}

// TopEvent ranks events by active registrations.
type TopEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	Title           string    `json:"title"`
	RegisteredCount int       `json:"registered_count"`
}

// EventStats is the per-event block on the organizer dashboard.
type EventStats struct {
	Event           models.Event `json:"event"`
	RegisteredCount int          `json:"registered_count"`
	WaitlistCount   int          `json:"waitlist_count"`
	AttendanceCount int          `json:"attendance_count"`
	AverageRating   float64      `json:"average_rating"`
	FeedbackCount   int          `json:"feedback_count"`
}

// StudentOverview is the student dashboard block. AttendanceRate is
// attended over attended+registered past events, 0 when nothing is due.
type StudentOverview struct {
	UpcomingCount  int     `json:"upcoming_count"`
	AttendedCount  int     `json:"attended_count"`
	WaitlistCount  int     `json:"waitlist_count"`
	CancelledCount int     `json:"cancelled_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Repository computes aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Platform computes the admin overview.
func (r *Repository) Platform(ctx context.Context) (*PlatformStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM universities WHERE is_active = TRUE),
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM events WHERE status = 'published'),
		(SELECT COUNT(*) FROM registrations WHERE status IN ('registered', 'attended')),
		(SELECT COUNT(*) FROM registrations WHERE registered_at > NOW() - INTERVAL '30 days'),
		(SELECT COUNT(*) FROM attendance),
		(SELECT COUNT(*) FROM waitlist_entries)`
	var s PlatformStats
	err := r.pool.QueryRow(ctx, q).Scan(&s.TotalUsers, &s.TotalUniversities, &s.TotalEvents,
		&s.PublishedEvents, &s.TotalRegistrations, &s.Registrations30Days, &s.TotalAttendance,
		&s.WaitlistedUsers)
	if err != nil {
		return nil, err
	}

	s.UsersByRole = make(map[string]int)
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		s.UsersByRole[role] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const topQ = `SELECT e.id, e.title, COUNT(r.id)
		FROM events e JOIN registrations r ON r.event_id = e.id AND r.status IN ('registered', 'attended')
		GROUP BY e.id, e.title ORDER BY COUNT(r.id) DESC LIMIT 5`
	topRows, err := r.pool.Query(ctx, topQ)
	if err != nil {
		return nil, err
	}
	defer topRows.Close()
	for topRows.Next() {
		var t TopEvent
		if err := topRows.Scan(&t.EventID, &t.Title, &t.RegisteredCount); err != nil {
			return nil, err
		}
		s.TopEvents = append(s.TopEvents, t)
	}
	return &s, topRows.Err()
}

// OrganizerDashboard computes per-event stats for the organizer's events.
func (r *Repository) OrganizerDashboard(ctx context.Context, organizerID uuid.UUID) ([]EventStats, error) {
	const q = `SELECT e.id, e.title, e.description, e.starts_at, e.venue_id, e.organizer_id,
		e.host_university_id, e.category_id, e.capacity, e.visibility, e.status, e.poster_key,
		e.created_at, e.updated_at,
		(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id AND r.status IN ('registered', 'attended')),
		(SELECT COUNT(*) FROM waitlist_entries w WHERE w.event_id = e.id),
		(SELECT COUNT(*) FROM attendance a WHERE a.event_id = e.id),
		(SELECT COALESCE(AVG(rating), 0) FROM feedback f WHERE f.event_id = e.id),
		(SELECT COUNT(*) FROM feedback f WHERE f.event_id = e.id)
		FROM events e WHERE e.organizer_id = $1 ORDER BY e.starts_at DESC`
	rows, err := r.pool.Query(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []EventStats
	for rows.Next() {
		var s EventStats
		if err := rows.Scan(&s.Event.ID, &s.Event.Title, &s.Event.Description, &s.Event.StartsAt,
			&s.Event.VenueID, &s.Event.OrganizerID, &s.Event.HostUniversityID, &s.Event.CategoryID,
			&s.Event.Capacity, &s.Event.Visibility, &s.Event.Status, &s.Event.PosterKey,
			&s.Event.CreatedAt, &s.Event.UpdatedAt,
			&s.RegisteredCount, &s.WaitlistCount, &s.AttendanceCount,
			&s.AverageRating, &s.FeedbackCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// StudentOverview computes the student's dashboard counters.
func (r *Repository) StudentOverview(ctx context.Context, userID uuid.UUID) (*StudentOverview, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM registrations r JOIN events e ON e.id = r.event_id
			WHERE r.user_id = $1 AND r.status = 'registered' AND e.status = 'published' AND e.starts_at > NOW()),
		(SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND status = 'attended'),
		(SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND status = 'waitlisted'),
		(SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND status = 'cancelled')`
	var s StudentOverview
	err := r.pool.QueryRow(ctx, q, userID).
		Scan(&s.UpcomingCount, &s.AttendedCount, &s.WaitlistCount, &s.CancelledCount)
	if err != nil {
		return nil, err
	}

	var due int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status IN ('registered', 'attended') AND e.starts_at <= NOW()`, userID).
		Scan(&due)
	if err != nil {
		return nil, err
	}
	if due > 0 {
		s.AttendanceRate = float64(s.AttendedCount) / float64(due)
	}
	return &s, nil
}

// RecentActivity returns the user's five newest activity entries for the
// dashboard.
func (r *Repository) RecentActivity(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	const q = `SELECT id, user_id, event_id, action, created_at
		FROM activities WHERE user_id = $1 ORDER BY created_at DESC LIMIT 5`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.EventID, &a.Action, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Handler exposes the dashboards.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Platform handles GET /analytics/platform (admin).
func (h *Handler) Platform(c *gin.Context) {
	stats, err := h.repo.Platform(c.Request.Context())
	if err != nil {
		h.logger.Error("computing platform stats", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, stats)
}

// Organizer handles GET /analytics/organizer (organizer/admin).
func (h *Handler) Organizer(c *gin.Context) {
	identity := auth.MustIdentity(c)
	stats, err := h.repo.OrganizerDashboard(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("computing organizer dashboard", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, stats)
}

// Student handles GET /analytics/me.
func (h *Handler) Student(c *gin.Context) {
	identity := auth.MustIdentity(c)
	ctx := c.Request.Context()
	stats, err := h.repo.StudentOverview(ctx, identity.UserID)
	if err != nil {
		h.logger.Error("computing student overview", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	recent, err := h.repo.RecentActivity(ctx, identity.UserID)
	if err != nil {
		h.logger.Error("loading recent activity", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, gin.H{"overview": stats, "recent_activity": recent})
}

// Package feedback collects post-event ratings. Submission is open only
// to users with a recorded check-in, one entry per (event, user).
package feedback

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
)

// uniqueViolation is the Postgres error code for duplicate key.
const uniqueViolation = "23505"

var (
	// ErrNotAttended means the user has no check-in for the event.
	ErrNotAttended = errors.New("feedback requires recorded attendance")
	// ErrAlreadySubmitted means feedback already exists for (event, user).
	ErrAlreadySubmitted = errors.New("feedback already submitted for this event")
)

// Repository persists feedback rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a feedback repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts one feedback row. The unique constraint enforces one
// entry per (event, user).
func (r *Repository) Create(ctx context.Context, f *models.Feedback) error {
	const q = `INSERT INTO feedback (id, event_id, user_id, rating, comment)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, f.EventID, f.UserID, f.Rating, f.Comment).Scan(&f.ID, &f.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadySubmitted
	}
	return err
}

// ListByEvent returns an event's feedback, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Feedback, error) {
	const q = `SELECT id, event_id, user_id, rating, comment, created_at
		FROM feedback WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.EventID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// AverageRating returns the mean rating and count for an event.
func (r *Repository) AverageRating(ctx context.Context, eventID uuid.UUID) (float64, int, error) {
	var avg float64
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM feedback WHERE event_id = $1`, eventID).
		Scan(&avg, &count)
	return avg, count, err
}

// AttendanceChecker gates submission on a recorded check-in.
type AttendanceChecker interface {
	Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// Handler exposes feedback over HTTP.
type Handler struct {
	repo       *Repository
	attendance AttendanceChecker
	logger     *zap.Logger
}

// NewHandler creates a feedback handler.
func NewHandler(repo *Repository, attendance AttendanceChecker, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, attendance: attendance, logger: logger}
}

type submitRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// Submit handles POST /events/:id/feedback.
func (h *Handler) Submit(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "rating must be between 1 and 5")
		return
	}
	identity := auth.MustIdentity(c)
	ctx := c.Request.Context()

	attended, err := h.attendance.Exists(ctx, eventID, identity.UserID)
	if err != nil {
		h.logger.Error("checking attendance for feedback", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	if !attended {
		response.Forbidden(c, ErrNotAttended.Error())
		return
	}

	f := &models.Feedback{
		EventID: eventID,
		UserID:  identity.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := h.repo.Create(ctx, f); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("saving feedback", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.Created(c, f)
}

// ListForEvent handles GET /events/:id/feedback (organizer/admin).
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	list, err := h.repo.ListByEvent(ctx, eventID)
	if err != nil {
		h.logger.Error("listing feedback", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	avg, count, err := h.repo.AverageRating(ctx, eventID)
	if err != nil {
		h.logger.Error("averaging feedback", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, gin.H{"feedback": list, "average_rating": avg, "count": count})
}

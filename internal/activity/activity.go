// Package activity keeps an append-only feed of registration actions per
// user. Entries are written after commit and never updated or deleted.
package activity

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

// Recorder appends activity entries. Failures are logged, never returned:
// a feed gap must not fail the registration that caused it.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRecorder creates an activity recorder.
func NewRecorder(pool *pgxpool.Pool, logger *zap.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record appends one entry to the user's feed.
func (r *Recorder) Record(ctx context.Context, userID, eventID uuid.UUID, action string) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activities (id, user_id, event_id, action) VALUES (gen_random_uuid(), $1, $2, $3)`,
		userID, eventID, action)
	if err != nil {
		r.logger.Error("recording activity", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("action", action))
	}
}

// ListByUser returns the user's recent activity, newest first.
func (r *Recorder) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `SELECT id, user_id, event_id, action, created_at
		FROM activities WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
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

// Handler exposes the activity feed.
type Handler struct {
	recorder *Recorder
	logger   *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(recorder *Recorder, logger *zap.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Mine handles GET /activity.
func (h *Handler) Mine(c *gin.Context) {
	identity := auth.MustIdentity(c)
	list, err := h.recorder.ListByUser(c.Request.Context(), identity.UserID, 20)
	if err != nil {
		h.logger.Error("listing activity", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

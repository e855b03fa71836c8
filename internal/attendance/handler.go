package attendance

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/internal/registrations"
	"github.com/evex-campus/backend/pkg/response"
)

// Marker records attendance under the event lock. Implemented by the
// registration service.
type Marker interface {
	MarkAttended(ctx context.Context, actor auth.Identity, eventID, userID uuid.UUID, notes string) (*models.Attendance, error)
}

// Handler exposes attendance over HTTP.
type Handler struct {
	repo   *Repository
	marker Marker
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(repo *Repository, marker Marker, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, marker: marker, logger: logger}
}

type markRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Notes  string    `json:"notes"`
}

// Mark handles POST /events/:id/attendance (organizer/admin).
func (h *Handler) Mark(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	actor := auth.MustIdentity(c)

	att, err := h.marker.MarkAttended(c.Request.Context(), actor, eventID, req.UserID, req.Notes)
	if err != nil {
		switch err {
		case registrations.ErrNotRegistered, registrations.ErrAlreadyAttended:
			response.Conflict(c, err.Error())
		case registrations.ErrNotOwner:
			response.Forbidden(c, err.Error())
		case registrations.ErrContention:
			response.Contention(c, err.Error(), 1)
		default:
			h.logger.Error("marking attendance", zap.Error(err))
			response.Internal(c, "something went wrong")
		}
		return
	}
	response.Created(c, att)
}

// List handles GET /events/:id/attendance (organizer/admin).
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("listing attendance", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

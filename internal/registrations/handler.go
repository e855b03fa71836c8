package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/eligibility"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
)

// Handler exposes the registration lifecycle over HTTP.
type Handler struct {
	service *Service
	repo    *Repository
	logger  *zap.Logger
}

// NewHandler creates a registration handler.
func NewHandler(service *Service, repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{service: service, repo: repo, logger: logger}
}

// contentionRetryAfterSec is the Retry-After hint sent on lock timeouts.
const contentionRetryAfterSec = 1

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrContention):
		response.Contention(c, err.Error(), contentionRetryAfterSec)
	case errors.Is(err, pgx.ErrNoRows):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrEventNotOpen),
		errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrAlreadyWaitlisted),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrAlreadyAttended),
		errors.Is(err, ErrScheduleClash):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotOwner),
		errors.Is(err, eligibility.ErrHostUniversityOnly),
		errors.Is(err, eligibility.ErrUniversityNotAllowed):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error("registration operation failed", zap.Error(err))
		response.Internal(c, "something went wrong")
	}
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	identity := auth.MustIdentity(c)

	result, err := h.service.Register(c.Request.Context(), identity, eventID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// Cancel handles DELETE /events/:id/register.
func (h *Handler) Cancel(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	identity := auth.MustIdentity(c)

	result, err := h.service.Cancel(c.Request.Context(), identity, eventID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// Mine handles GET /registrations/me.
func (h *Handler) Mine(c *gin.Context) {
	identity := auth.MustIdentity(c)
	list, err := h.repo.ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("listing user registrations", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

// ListForEvent handles GET /events/:id/registrations (organizer/admin).
// Optional ?status= filter.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	status := models.RegistrationStatus(c.Query("status"))
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID, status)
	if err != nil {
		h.logger.Error("listing event registrations", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

// Waitlist handles GET /events/:id/waitlist (organizer/admin).
func (h *Handler) Waitlist(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListWaitlist(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("listing waitlist", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

type setCapacityRequest struct {
	Capacity *int `json:"capacity"`
}

// SetCapacity handles PATCH /events/:id/capacity (organizer/admin).
// Raising capacity promotes waitlisted users in position order.
func (h *Handler) SetCapacity(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req setCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		response.BadRequest(c, "capacity must not be negative")
		return
	}

	promoted, err := h.service.SetCapacity(c.Request.Context(), auth.MustIdentity(c), eventID, req.Capacity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"capacity": req.Capacity, "promoted_user_ids": promoted})
}

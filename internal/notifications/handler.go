package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/pkg/response"
)

// Handler exposes a user's notification feed.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notification handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /notifications?limit=.
func (h *Handler) List(c *gin.Context) {
	identity := auth.MustIdentity(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.repo.ListByUser(c.Request.Context(), identity.UserID, limit)
	if err != nil {
		h.logger.Error("listing notifications", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	unread, err := h.repo.UnreadCount(c.Request.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("counting unread notifications", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, gin.H{"notifications": list, "unread_count": unread})
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	identity := auth.MustIdentity(c)
	if err := h.repo.MarkRead(c.Request.Context(), id, identity.UserID); err != nil {
		h.logger.Error("marking notification read", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.NoContent(c)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	identity := auth.MustIdentity(c)
	if err := h.repo.MarkAllRead(c.Request.Context(), identity.UserID); err != nil {
		h.logger.Error("marking notifications read", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.NoContent(c)
}

package events

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
	"github.com/evex-campus/backend/pkg/storage"
)

// RegistrantNotifier fans out event-level notices to registrants after
// the change has committed.
type RegistrantNotifier interface {
	NotifyEventCancelled(ctx context.Context, event *models.Event)
	NotifyEventUpdated(ctx context.Context, event *models.Event)
}

// Handler exposes event CRUD, lifecycle and media over HTTP.
type Handler struct {
	repo     *Repository
	s3       *storage.S3
	notifier RegistrantNotifier
	logger   *zap.Logger
}

// NewHandler creates an event handler. s3 may be nil when media storage
// is not configured; poster uploads then fail cleanly.
func NewHandler(repo *Repository, s3 *storage.S3, notifier RegistrantNotifier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, notifier: notifier, logger: logger}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrVenueClash), errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("event operation failed", zap.Error(err))
		response.Internal(c, "something went wrong")
	}
}

// canManage reports whether the identity may modify the event.
func canManage(identity auth.Identity, e *models.Event) bool {
	return identity.IsStaff || identity.Role == string(models.RoleAdmin) || e.OrganizerID == identity.UserID
}

type eventRequest struct {
	Title                string      `json:"title" binding:"required"`
	Description          string      `json:"description"`
	StartsAt             time.Time   `json:"starts_at" binding:"required"`
	VenueID              *uuid.UUID  `json:"venue_id"`
	Category             string      `json:"category"`
	Capacity             *int        `json:"capacity"`
	Visibility           string      `json:"visibility" binding:"required"`
	Publish              bool        `json:"publish"`
	AllowedUniversityIDs []uuid.UUID `json:"allowed_university_ids"`
}

// Create handles POST /events (organizer/admin). publish=true validates
// venue clashes immediately; otherwise the event starts as a draft.
func (h *Handler) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !models.ValidVisibility(models.EventVisibility(req.Visibility)) {
		response.BadRequest(c, "invalid visibility")
		return
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		response.BadRequest(c, "capacity must not be negative")
		return
	}
	identity := auth.MustIdentity(c)
	if identity.UniversityID == nil {
		response.BadRequest(c, "organizer has no university affiliation")
		return
	}

	status := models.EventDraft
	if req.Publish {
		status = models.EventPublished
	}
	event := &models.Event{
		Title:            req.Title,
		Description:      req.Description,
		StartsAt:         req.StartsAt,
		VenueID:          req.VenueID,
		OrganizerID:      identity.UserID,
		HostUniversityID: *identity.UniversityID,
		Capacity:         req.Capacity,
		Visibility:       models.EventVisibility(req.Visibility),
		Status:           status,
	}
	ctx := c.Request.Context()
	if req.Category != "" {
		cat, err := h.repo.GetOrCreateCategory(ctx, req.Category)
		if err != nil {
			h.writeError(c, err)
			return
		}
		event.CategoryID = &cat.ID
	}
	if err := h.repo.Create(ctx, event); err != nil {
		h.writeError(c, err)
		return
	}
	if len(req.AllowedUniversityIDs) > 0 {
		if err := h.repo.SetAllowedUniversities(ctx, event.ID, req.AllowedUniversityIDs); err != nil {
			h.writeError(c, err)
			return
		}
	}
	response.Created(c, event)
}

// List handles GET /events with search, category, university and date
// range filters. Only published events are listed.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	f.Search = c.Query("search")
	if v := c.Query("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid category_id")
			return
		}
		f.CategoryID = &id
	}
	if v := c.Query("university_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid university_id")
			return
		}
		f.UniversityID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &f.DateFrom, "to": &f.DateTo} {
		if v := c.Query(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				response.BadRequest(c, "invalid "+param+" timestamp")
				return
			}
			*dst = &ts
		}
	}
	list, err := h.repo.ListPublished(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id. Non-published events are visible only to
// their organizer and staff.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if event.Status != models.EventPublished {
		identity, ok := auth.IdentityFrom(c)
		if !ok || !canManage(identity, event) {
			response.NotFound(c, "event not found")
			return
		}
	}
	active, err := h.repo.ActiveCount(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	allowed, err := h.repo.AllowedUniversities(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{
		"event":                  event,
		"registered_count":       active,
		"allowed_university_ids": allowed,
	})
}

// Mine handles GET /organizer/events, drafts included.
func (h *Handler) Mine(c *gin.Context) {
	identity := auth.MustIdentity(c)
	list, err := h.repo.ListByOrganizer(c.Request.Context(), identity.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

// Update handles PUT /events/:id. Saving a published event re-runs venue
// clash validation and notifies active registrants of the change.
// Capacity is not editable here: raising it must promote waitlisted users
// under the event lock, so capacity changes go through
// PATCH /events/:id/capacity.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !models.ValidVisibility(models.EventVisibility(req.Visibility)) {
		response.BadRequest(c, "invalid visibility")
		return
	}
	if req.Capacity != nil {
		response.BadRequest(c, "capacity is changed via PATCH /events/:id/capacity")
		return
	}
	ctx := c.Request.Context()
	event, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	identity := auth.MustIdentity(c)
	if !canManage(identity, event) {
		response.Forbidden(c, "not your event")
		return
	}
	if event.Status == models.EventCancelled || event.Status == models.EventCompleted {
		response.Conflict(c, "event can no longer be edited")
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.StartsAt = req.StartsAt
	event.VenueID = req.VenueID
	event.Visibility = models.EventVisibility(req.Visibility)
	if req.Publish {
		event.Status = models.EventPublished
	}
	if req.Category != "" {
		cat, err := h.repo.GetOrCreateCategory(ctx, req.Category)
		if err != nil {
			h.writeError(c, err)
			return
		}
		event.CategoryID = &cat.ID
	}
	if err := h.repo.Update(ctx, event); err != nil {
		h.writeError(c, err)
		return
	}
	if req.AllowedUniversityIDs != nil {
		if err := h.repo.SetAllowedUniversities(ctx, event.ID, req.AllowedUniversityIDs); err != nil {
			h.writeError(c, err)
			return
		}
	}
	if event.Status == models.EventPublished {
		h.notifier.NotifyEventUpdated(ctx, event)
	}
	response.OK(c, event)
}

// Cancel handles DELETE /events/:id. Cancellation is the only removal:
// the row survives with status cancelled and registrants are notified.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	identity := auth.MustIdentity(c)
	if !canManage(identity, event) {
		response.Forbidden(c, "not your event")
		return
	}
	cancelled, err := h.repo.Cancel(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifier.NotifyEventCancelled(ctx, cancelled)
	response.OK(c, cancelled)
}

// Complete handles POST /events/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	identity := auth.MustIdentity(c)
	if !canManage(identity, event) {
		response.Forbidden(c, "not your event")
		return
	}
	completed, err := h.repo.Complete(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, completed)
}

// UploadPoster handles POST /events/:id/poster (multipart form, field "file").
func (h *Handler) UploadPoster(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "media storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	identity := auth.MustIdentity(c)
	if !canManage(identity, event) {
		response.Forbidden(c, "not your event")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if fileHeader.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer file.Close()

	key := storage.PosterKey(event.ID.String(), fileHeader.Filename)
	url, err := h.s3.Upload(ctx, key, contentType, file, fileHeader.Size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.repo.SetPosterKey(ctx, event.ID, key); err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"poster_key": key, "url": url})
}

// Categories handles GET /categories.
func (h *Handler) Categories(c *gin.Context) {
	list, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, list)
}

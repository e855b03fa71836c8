// Package venues manages event locations. Venues are deactivated rather
// than deleted so past events keep a resolvable location.
package venues

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
)

const uniqueViolation = "23505"

// ErrDuplicateVenue means a venue with that name already exists at the
// university.
var ErrDuplicateVenue = errors.New("venue already exists at this university")

// Repository persists venues.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a venue repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a venue. (name, university) is unique.
func (r *Repository) Create(ctx context.Context, v *models.Venue) error {
	features := v.Features
	if len(features) == 0 {
		features = json.RawMessage("{}")
	}
	const q = `INSERT INTO venues (id, name, university_id, capacity, features)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, is_active, created_at`
	err := r.pool.QueryRow(ctx, q, v.Name, v.UniversityID, v.Capacity, features).
		Scan(&v.ID, &v.IsActive, &v.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateVenue
	}
	return err
}

// GetByID returns a venue by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	var v models.Venue
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, university_id, capacity, features, is_active, created_at FROM venues WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.UniversityID, &v.Capacity, &v.Features, &v.IsActive, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUniversity returns a university's active venues, alphabetically.
func (r *Repository) ListByUniversity(ctx context.Context, universityID uuid.UUID) ([]models.Venue, error) {
	const q = `SELECT id, name, university_id, capacity, features, is_active, created_at
		FROM venues WHERE university_id = $1 AND is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, q, universityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Venue
	for rows.Next() {
		var v models.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.UniversityID, &v.Capacity, &v.Features, &v.IsActive,
			&v.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Deactivate hides a venue from listings. Existing events keep the reference.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE venues SET is_active = FALSE WHERE id = $1`, id)
	return err
}

// Handler exposes venue management over HTTP.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a venue handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

type createRequest struct {
	Name         string          `json:"name" binding:"required"`
	UniversityID *uuid.UUID      `json:"university_id"`
	Capacity     int             `json:"capacity"`
	Features     json.RawMessage `json:"features"`
}

// Create handles POST /venues (organizer/admin). Non-staff callers can
// only create venues at their own university.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	identity := auth.MustIdentity(c)
	universityID := req.UniversityID
	if universityID == nil || !identity.IsStaff {
		if identity.UniversityID == nil {
			response.BadRequest(c, "no university affiliation")
			return
		}
		universityID = identity.UniversityID
	}

	v := &models.Venue{
		Name:         req.Name,
		UniversityID: *universityID,
		Capacity:     req.Capacity,
		Features:     req.Features,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		if errors.Is(err, ErrDuplicateVenue) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("creating venue", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.Created(c, v)
}

// List handles GET /venues?university_id=.
func (h *Handler) List(c *gin.Context) {
	raw := c.Query("university_id")
	var universityID uuid.UUID
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid university_id")
			return
		}
		universityID = id
	} else {
		identity, ok := auth.IdentityFrom(c)
		if !ok || identity.UniversityID == nil {
			response.BadRequest(c, "university_id is required")
			return
		}
		universityID = *identity.UniversityID
	}
	list, err := h.repo.ListByUniversity(c.Request.Context(), universityID)
	if err != nil {
		h.logger.Error("listing venues", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

// Get handles GET /venues/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "venue not found")
			return
		}
		h.logger.Error("loading venue", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, v)
}

// Deactivate handles DELETE /venues/:id (admin).
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid venue id")
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		h.logger.Error("deactivating venue", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.NoContent(c)
}

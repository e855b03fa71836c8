// Package universities manages member institutions. Institutions are
// deactivated, never deleted, so historical events keep their host.
package universities

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
	"github.com/evex-campus/backend/pkg/storage"
)

const cols = `id, name, short_code, domain, logo_key, is_active, created_at, updated_at`

// Repository persists universities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a university repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a university.
func (r *Repository) Create(ctx context.Context, u *models.University) error {
	const q = `INSERT INTO universities (id, name, short_code, domain)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, is_active, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.Name, u.ShortCode, u.Domain).
		Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID returns a university by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.University, error) {
	var u models.University
	err := r.pool.QueryRow(ctx, `SELECT `+cols+` FROM universities WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.ShortCode, &u.Domain, &u.LogoKey, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns active universities, alphabetically.
func (r *Repository) List(ctx context.Context) ([]models.University, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cols+` FROM universities WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.University
	for rows.Next() {
		var u models.University
		if err := rows.Scan(&u.ID, &u.Name, &u.ShortCode, &u.Domain, &u.LogoKey, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Deactivate hides a university from listings without touching its events.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE universities SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// SetLogoKey stores the S3 object key of the uploaded logo.
func (r *Repository) SetLogoKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE universities SET logo_key = $1, updated_at = NOW() WHERE id = $2`, key, id)
	return err
}

// Handler exposes university management over HTTP.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a university handler. s3 may be nil.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

type createRequest struct {
	Name      string `json:"name" binding:"required"`
	ShortCode string `json:"short_code" binding:"required"`
	Domain    string `json:"domain"`
}

// Create handles POST /universities (admin).
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u := &models.University{Name: req.Name, ShortCode: req.ShortCode, Domain: req.Domain}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		h.logger.Error("creating university", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.Created(c, u)
}

// List handles GET /universities.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("listing universities", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, list)
}

// Get handles GET /universities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid university id")
		return
	}
	u, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "university not found")
			return
		}
		h.logger.Error("loading university", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, u)
}

// Deactivate handles DELETE /universities/:id (admin).
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid university id")
		return
	}
	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		h.logger.Error("deactivating university", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.NoContent(c)
}

// UploadLogo handles POST /universities/:id/logo (admin, multipart field "file").
func (h *Handler) UploadLogo(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "media storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid university id")
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
		h.logger.Error("opening upload", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	key := storage.LogoKey(id.String(), fileHeader.Filename)
	url, err := h.s3.Upload(ctx, key, contentType, file, fileHeader.Size)
	if err != nil {
		h.logger.Error("uploading logo", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	if err := h.repo.SetLogoKey(ctx, id, key); err != nil {
		h.logger.Error("saving logo key", zap.Error(err))
		response.Internal(c, "something went wrong")
		return
	}
	response.OK(c, gin.H{"logo_key": key, "url": url})
}

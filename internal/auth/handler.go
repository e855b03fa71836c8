package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/pkg/response"
	"github.com/evex-campus/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	FullName      string `json:"full_name" binding:"required"`
	Role          string `json:"role"` // optional, defaults to student
	UniversityID  string `json:"university_id"`
	StudentID     string `json:"student_id"`
	ContactNumber string `json:"contact_number"`
	Department    string `json:"department"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token   string            `json:"token"`
	User    models.UserPublic `json:"user"`
	Profile *models.Profile   `json:"profile,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. The user and their profile are
// created as one transactional step.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleStudent
	switch req.Role {
	case "", "student":
	case "organizer":
		role = models.RoleOrganizer
	case "admin":
		role = models.RoleAdmin
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	var universityID *uuid.UUID
	if req.UniversityID != "" {
		id, err := uuid.Parse(req.UniversityID)
		if err != nil {
			response.BadRequest(c, "invalid university_id")
			return
		}
		universityID = &id
	}
	// Students may join without a university; organizers and admins must
	// declare one so events have a host.
	if universityID == nil && role != models.RoleStudent {
		response.BadRequest(c, "university_id is required for organizers and admins")
		return
	}

	exists, err := h.repo.EmailExists(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("email lookup failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	if exists {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, role, CreateProfileParams{
		UniversityID:  universityID,
		StudentID:     req.StudentID,
		ContactNumber: req.ContactNumber,
		Department:    req.Department,
	})
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role), universityID, user.IsStaff)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	profile, err := h.repo.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("profile lookup failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to load profile")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role), profile.UniversityID, user.IsStaff)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic(), Profile: profile})
}

// Me handles GET /me. Returns the current user with profile.
func (h *Handler) Me(c *gin.Context) {
	ident := MustIdentity(c)
	user, err := h.repo.GetByID(c.Request.Context(), ident.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	profile, err := h.repo.GetProfile(c.Request.Context(), ident.UserID)
	if err != nil {
		response.Internal(c, "failed to load profile")
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic(), "profile": profile})
}

// UpdateMeRequest is the body for PATCH /me.
type UpdateMeRequest struct {
	FullName      string  `json:"full_name"`
	UniversityID  *string `json:"university_id"`
	StudentID     string  `json:"student_id"`
	ContactNumber string  `json:"contact_number"`
	Department    string  `json:"department"`
}

// UpdateMe handles PATCH /me.
func (h *Handler) UpdateMe(c *gin.Context) {
	ident := MustIdentity(c)
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), ident.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	profile, err := h.repo.GetProfile(c.Request.Context(), ident.UserID)
	if err != nil {
		response.Internal(c, "failed to load profile")
		return
	}

	fullName := user.FullName
	if req.FullName != "" {
		fullName = req.FullName
	}
	params := CreateProfileParams{
		UniversityID:  profile.UniversityID,
		StudentID:     profile.StudentID,
		ContactNumber: profile.ContactNumber,
		Department:    profile.Department,
	}
	if req.UniversityID != nil {
		if *req.UniversityID == "" {
			params.UniversityID = nil
		} else {
			id, err := uuid.Parse(*req.UniversityID)
			if err != nil {
				response.BadRequest(c, "invalid university_id")
				return
			}
			params.UniversityID = &id
		}
	}
	if req.StudentID != "" {
		params.StudentID = req.StudentID
	}
	if req.ContactNumber != "" {
		params.ContactNumber = req.ContactNumber
	}
	if req.Department != "" {
		params.Department = req.Department
	}

	if err := h.repo.UpdateProfile(c.Request.Context(), ident.UserID, fullName, params); err != nil {
		h.logger.Error("update profile failed", zap.Error(err))
		response.Internal(c, "failed to update profile")
		return
	}

	updated, err := h.repo.GetProfile(c.Request.Context(), ident.UserID)
	if err != nil {
		response.Internal(c, "failed to load profile")
		return
	}
	response.OK(c, gin.H{"profile": updated})
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evex-campus/backend/internal/models"
)

// ErrEmailTaken is returned when registering an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// Repository handles user and profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateProfileParams are the profile fields collected at signup.
type CreateProfileParams struct {
	UniversityID  *uuid.UUID
	StudentID     string
	ContactNumber string
	Department    string
}

// Create inserts the user and their profile in one transaction so that a
// user without a profile can never be observed.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role, p CreateProfileParams) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var u models.User
	const insertUser = `INSERT INTO users (id, email, password_hash, full_name, role, is_staff)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, email, password_hash, full_name, role, is_staff, created_at, updated_at`
	err = tx.QueryRow(ctx, insertUser, email, passwordHash, fullName, role, role == models.RoleAdmin).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	const insertProfile = `INSERT INTO profiles (user_id, university_id, student_id, contact_number, department)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, insertProfile, u.ID, p.UniversityID, p.StudentID, p.ContactNumber, p.Department); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, is_staff, created_at, updated_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, is_staff, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProfile returns the profile for a user. Every user has one; pgx.ErrNoRows
// here indicates an integrity problem rather than a missing-profile state.
func (r *Repository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const q = `SELECT user_id, university_id, student_id, contact_number, department, is_verified, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	var p models.Profile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.UniversityID, &p.StudentID, &p.ContactNumber, &p.Department, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile updates the mutable profile fields and the user's name.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, p CreateProfileParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE users SET full_name = $1, updated_at = NOW() WHERE id = $2`, fullName, userID); err != nil {
		return err
	}
	const q = `UPDATE profiles SET university_id = $1, student_id = $2, contact_number = $3, department = $4, updated_at = NOW()
		WHERE user_id = $5`
	if _, err := tx.Exec(ctx, q, p.UniversityID, p.StudentID, p.ContactNumber, p.Department, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EmailExists reports whether an account with the email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)`, email).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all users for admin views.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, full_name, role, created_at FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

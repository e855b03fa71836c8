package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller passed explicitly through core
// calls: who the user is, their university affiliation (nil when unset)
// and whether they hold staff privileges.
type Identity struct {
	UserID       uuid.UUID
	UniversityID *uuid.UUID
	Role         string
	IsStaff      bool
}

// Claims holds JWT claims including user ID, role and university.
type Claims struct {
	UserID       uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	UniversityID *uuid.UUID `json:"university_id,omitempty"`
	IsStaff      bool       `json:"is_staff"`
	jwt.RegisteredClaims
}

// Identity converts claims to the core Identity value.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		UniversityID: c.UniversityID,
		Role:         c.Role,
		IsStaff:      c.IsStaff,
	}
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate creates a new JWT for the user.
func (s *JWTService) Generate(userID uuid.UUID, email, role string, universityID *uuid.UUID, isStaff bool) (string, error) {
	claims := Claims{
		UserID:       userID,
		Email:        email,
		Role:         role,
		UniversityID: universityID,
		IsStaff:      isStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

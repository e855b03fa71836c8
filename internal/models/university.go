package models

import (
	"time"

	"github.com/google/uuid"
)

// University represents a member institution.
type University struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShortCode string    `json:"short_code"`
	Domain    string    `json:"domain,omitempty"`
	LogoKey   string    `json:"logo_key,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

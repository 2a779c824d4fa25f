package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenRecord is the single active credential pair for a user. Logins and
// refreshes overwrite it in place; logout deletes it. A JWT that no longer
// matches a stored record is effectively revoked.
type TokenRecord struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Token        string    `json:"token" db:"token"`
	RefreshToken string    `json:"refresh_token" db:"refresh_token"`
	UsageCount   int64     `json:"usage_count" db:"usage_count"`
	LastUsedAt   time.Time `json:"last_used_at" db:"last_used_at"`
}

type RefreshRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/model"
)

const tokenColumns = `id, user_id, token, refresh_token, usage_count, last_used_at`

type TokenRepository struct {
	db *Database
}

func NewTokenRepository(db *Database) *TokenRepository {
	return &TokenRepository{db: db}
}

// Upsert replaces a user's token pair in place, keeping exactly one active
// record per user. Logins and registrations both land here.
func (r *TokenRepository) Upsert(ctx context.Context, userID uuid.UUID, token, refreshToken string) (*model.TokenRecord, error) {
	var record model.TokenRecord
	query := `
		INSERT INTO tokens (user_id, token, refresh_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token,
		    refresh_token = EXCLUDED.refresh_token,
		    last_used_at = CURRENT_TIMESTAMP
		RETURNING ` + tokenColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, userID, token, refreshToken).StructScan(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert token: %w", err)
	}
	return &record, nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*model.TokenRecord, error) {
	var record model.TokenRecord
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token = $1`
	err := r.db.GetContext(ctx, &record, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return &record, nil
}

func (r *TokenRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	var record model.TokenRecord
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE refresh_token = $1`
	err := r.db.GetContext(ctx, &record, query, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &record, nil
}

// RotateAccessToken swaps in a fresh access token on refresh and bumps the
// usage counter.
func (r *TokenRepository) RotateAccessToken(ctx context.Context, id uuid.UUID, token string) (*model.TokenRecord, error) {
	var record model.TokenRecord
	query := `
		UPDATE tokens
		SET token = $1, usage_count = usage_count + 1, last_used_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING ` + tokenColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, token, id).StructScan(&record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to rotate access token: %w", err)
	}
	return &record, nil
}

// DeleteByToken revokes a session. The JWT itself stays valid until expiry;
// revocation is the missing record.
func (r *TokenRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("failed to delete token: %w", err)
	}
	return res.RowsAffected()
}

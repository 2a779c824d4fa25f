package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/model"
)

const noteColumns = `id, user_id, text, date, tokens_used, cost_usd, created_at, deleted_at`

type NoteRepository struct {
	db *Database
}

func NewNoteRepository(db *Database) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Insert(ctx context.Context, userID uuid.UUID, text string, date time.Time, tokensUsed *int, costUSD *float64) (*model.Note, error) {
	var note model.Note
	query := `
		INSERT INTO notes (user_id, text, date, tokens_used, cost_usd)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + noteColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, userID, text, date, tokensUsed, costUSD).StructScan(&note)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	return &note, nil
}

// SoftDelete stamps deleted_at rather than removing the row. Already
// deleted notes are not found.
func (r *NoteRepository) SoftDelete(ctx context.Context, noteID, userID uuid.UUID) (*model.Note, error) {
	var note model.Note
	query := `
		UPDATE notes SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING ` + noteColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, noteID, userID).StructScan(&note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to soft delete note: %w", err)
	}
	return &note, nil
}

func (r *NoteRepository) UpdateText(ctx context.Context, noteID, userID uuid.UUID, text string) (*model.Note, error) {
	var note model.Note
	query := `
		UPDATE notes SET text = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
		RETURNING ` + noteColumns + `
	`
	err := r.db.QueryRowxContext(ctx, query, text, noteID, userID).StructScan(&note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return &note, nil
}

func (r *NoteRepository) FindByDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]model.Note, error) {
	notes := []model.Note{}
	query := `
		SELECT ` + noteColumns + ` FROM notes
		WHERE user_id = $1 AND date = $2 AND deleted_at IS NULL
		ORDER BY created_at
	`
	err := r.db.SelectContext(ctx, &notes, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find notes by date: %w", err)
	}
	return notes, nil
}

func (r *NoteRepository) CountsByDate(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]model.NoteCountByDate, error) {
	counts := []model.NoteCountByDate{}
	query := `
		SELECT date, COUNT(*) AS count FROM notes
		WHERE user_id = $1
		  AND EXTRACT(YEAR FROM date) = $2
		  AND EXTRACT(MONTH FROM date) = $3
		  AND deleted_at IS NULL
		GROUP BY date
		ORDER BY date
	`
	err := r.db.SelectContext(ctx, &counts, query, userID, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to count notes by date: %w", err)
	}
	return counts, nil
}

func (r *NoteRepository) SearchText(ctx context.Context, userID uuid.UUID, text string) ([]model.Note, error) {
	notes := []model.Note{}
	query := `
		SELECT ` + noteColumns + ` FROM notes
		WHERE user_id = $1 AND text ILIKE '%' || $2 || '%' AND deleted_at IS NULL
		ORDER BY date DESC, created_at DESC
	`
	err := r.db.SelectContext(ctx, &notes, query, userID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	return notes, nil
}

// SumMonthlyCost totals the AI spend a user accrued in a calendar month.
// Spend is attributed by note creation time and survives soft deletion,
// since the provider was already paid.
func (r *NoteRepository) SumMonthlyCost(ctx context.Context, userID uuid.UUID, year int, month time.Month) (float64, error) {
	var sum float64
	query := `
		SELECT COALESCE(SUM(cost_usd), 0) FROM notes
		WHERE user_id = $1
		  AND EXTRACT(YEAR FROM created_at) = $2
		  AND EXTRACT(MONTH FROM created_at) = $3
	`
	err := r.db.GetContext(ctx, &sum, query, userID, year, int(month))
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly cost: %w", err)
	}
	return sum, nil
}

// SumTotalCost totals a user's lifetime AI spend.
func (r *NoteRepository) SumTotalCost(ctx context.Context, userID uuid.UUID) (float64, error) {
	var sum float64
	query := `SELECT COALESCE(SUM(cost_usd), 0) FROM notes WHERE user_id = $1`
	err := r.db.GetContext(ctx, &sum, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum total cost: %w", err)
	}
	return sum, nil
}

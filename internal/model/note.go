package model

import (
	"time"

	"github.com/google/uuid"
)

type Note struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Text       string     `json:"text" db:"text"`
	Date       time.Time  `json:"date" db:"date"`
	TokensUsed *int       `json:"tokens_used,omitempty" db:"tokens_used"`
	CostUSD    *float64   `json:"cost_usd,omitempty" db:"cost_usd"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

type NoteCreateRequest struct {
	Text string `json:"text"`
	// Date in YYYY-MM-DD form.
	Date string `json:"date"`
	// Prompt opts the text into AI rewriting.
	Prompt bool `json:"prompt"`
}

type NoteUpdateRequest struct {
	Text string `json:"text"`
}

type NoteCreated struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Date    string    `json:"date"`
	CostUSD float64   `json:"cost_usd"`
}

type NoteItem struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

type NoteResponse struct {
	Notes []NoteItem `json:"notes"`
}

type NoteCountByDate struct {
	Date  time.Time `json:"date" db:"date"`
	Count int       `json:"count" db:"count"`
}

type NoteCountsResponse struct {
	Counts []NoteCountByDate `json:"counts"`
}

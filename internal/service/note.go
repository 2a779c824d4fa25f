package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/llm"
	"github.com/dagbok-backend/internal/model"
)

// userStore and noteStore are the slices of the repositories the note flow
// needs; tests substitute in-memory fakes.
type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateCosts(ctx context.Context, id uuid.UUID, monthlyCost, totalCost float64) error
}

type noteStore interface {
	Insert(ctx context.Context, userID uuid.UUID, text string, date time.Time, tokensUsed *int, costUSD *float64) (*model.Note, error)
	SoftDelete(ctx context.Context, noteID, userID uuid.UUID) (*model.Note, error)
	UpdateText(ctx context.Context, noteID, userID uuid.UUID, text string) (*model.Note, error)
	FindByDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]model.Note, error)
	CountsByDate(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]model.NoteCountByDate, error)
	SearchText(ctx context.Context, userID uuid.UUID, text string) ([]model.Note, error)
	SumMonthlyCost(ctx context.Context, userID uuid.UUID, year int, month time.Month) (float64, error)
	SumTotalCost(ctx context.Context, userID uuid.UUID) (float64, error)
}

// NoteService owns the note lifecycle, including the AI-rewrite path: call
// the provider, price the call, consult the cost guard, and degrade to the
// raw text when the provider fails.
type NoteService struct {
	users    userStore
	notes    noteStore
	provider llm.Provider
	guard    *llm.CostGuard
}

func NewNoteService(users userStore, notes noteStore, provider llm.Provider, guard *llm.CostGuard) *NoteService {
	return &NoteService{
		users:    users,
		notes:    notes,
		provider: provider,
		guard:    guard,
	}
}

// Create saves a note for the date. With useAI the text goes through the
// provider first; provider failure falls back to the raw text, while a
// cost-limit breach rejects the request before anything is saved.
func (s *NoteService) Create(ctx context.Context, userID uuid.UUID, text string, date time.Time, useAI bool) (*model.NoteCreated, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	textToSave := text + signature(date, user.Name)
	var tokensUsed *int
	var costUSD *float64

	if useAI && s.provider != nil {
		result, err := s.provider.Chat(ctx, user.Model, user.Prompt, text)
		if err != nil {
			log.Printf("AI generation failed for user %s, falling back to original text: %v", userID, err)
		} else {
			callCost := llm.Cost(user.Model, result.PromptTokens, result.CompletionTokens)
			log.Printf("AI generation for user %s: %d tokens, USD: %.6f", userID, result.TotalTokens(), callCost)

			if err := s.guard.Check(ctx, userID, callCost); err != nil {
				var limitErr *llm.CostLimitError
				if errors.As(err, &limitErr) {
					return nil, err
				}
				// Accounting query failed; treat like a provider
				// failure and keep the raw text.
				log.Printf("Cost check failed for user %s, falling back to original text: %v", userID, err)
			} else {
				textToSave = result.Text + signature(date, user.Name)
				total := result.TotalTokens()
				tokensUsed = &total
				costUSD = &callCost
			}
		}
	}

	// The save must complete even if the client disconnected while the
	// provider call was in flight; no half-created notes.
	saveCtx := context.WithoutCancel(ctx)

	note, err := s.notes.Insert(saveCtx, userID, textToSave, date, tokensUsed, costUSD)
	if err != nil {
		return nil, err
	}

	if costUSD != nil && *costUSD > 0 {
		s.refreshCostAccumulators(saveCtx, userID)
	}

	created := &model.NoteCreated{
		ID:   note.ID,
		Text: note.Text,
		Date: note.Date.Format("2006-01-02"),
	}
	if note.CostUSD != nil {
		created.CostUSD = *note.CostUSD
	}
	return created, nil
}

func (s *NoteService) Delete(ctx context.Context, noteID, userID uuid.UUID) (*model.Note, error) {
	note, err := s.notes.SoftDelete(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("%w: note %s for user %s", ErrNotFound, noteID, userID)
	}
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, noteID, userID uuid.UUID, text string) (*model.Note, error) {
	note, err := s.notes.UpdateText(ctx, noteID, userID, text)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, fmt.Errorf("%w: note %s for user %s", ErrNotFound, noteID, userID)
	}
	return note, nil
}

func (s *NoteService) ByDate(ctx context.Context, userID uuid.UUID, date time.Time) (*model.NoteResponse, error) {
	notes, err := s.notes.FindByDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	return toNoteResponse(notes), nil
}

func (s *NoteService) CountsByMonth(ctx context.Context, userID uuid.UUID, year, month int) (*model.NoteCountsResponse, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrValidation, month)
	}
	if year < 1900 || year > 2100 {
		return nil, fmt.Errorf("%w: year must be between 1900 and 2100, got %d", ErrValidation, year)
	}

	counts, err := s.notes.CountsByDate(ctx, userID, year, time.Month(month))
	if err != nil {
		return nil, err
	}
	return &model.NoteCountsResponse{Counts: counts}, nil
}

func (s *NoteService) Search(ctx context.Context, userID uuid.UUID, text string) (*model.NoteResponse, error) {
	notes, err := s.notes.SearchText(ctx, userID, text)
	if err != nil {
		return nil, err
	}
	return toNoteResponse(notes), nil
}

// refreshCostAccumulators recomputes the user's denormalized spend fields
// from persisted notes. Failures are logged; the note is already saved.
func (s *NoteService) refreshCostAccumulators(ctx context.Context, userID uuid.UUID) {
	now := time.Now()

	monthly, err := s.notes.SumMonthlyCost(ctx, userID, now.Year(), now.Month())
	if err != nil {
		log.Printf("Failed to refresh monthly cost for user %s: %v", userID, err)
		return
	}

	total, err := s.notes.SumTotalCost(ctx, userID)
	if err != nil {
		log.Printf("Failed to refresh total cost for user %s: %v", userID, err)
		return
	}

	if err := s.users.UpdateCosts(ctx, userID, monthly, total); err != nil {
		log.Printf("Failed to update cost accumulators for user %s: %v", userID, err)
	}
}

func toNoteResponse(notes []model.Note) *model.NoteResponse {
	items := make([]model.NoteItem, 0, len(notes))
	for _, note := range notes {
		items = append(items, model.NoteItem{ID: note.ID, Text: note.Text})
	}
	return &model.NoteResponse{Notes: items}
}

func signature(date time.Time, name string) string {
	return fmt.Sprintf("\n\n***\n\n**%s**\n\n**%s**\n\nGenerated with ❤️ by dagbok.cloud\n", date.Format("2006-01-02"), name)
}

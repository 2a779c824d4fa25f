package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/auth"
	"github.com/dagbok-backend/internal/model"
)

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, req *model.RegisterRequest, prompt string) (*model.User, error)
	CreateDemo(ctx context.Context, prompt string) (*model.User, error)
	ValidatePassword(user *model.User, password string) bool
	UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) (*model.User, error)
	UpdateModel(ctx context.Context, id uuid.UUID, modelName string) (*model.User, error)
}

type tokenStore interface {
	Upsert(ctx context.Context, userID uuid.UUID, token, refreshToken string) (*model.TokenRecord, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*model.TokenRecord, error)
	RotateAccessToken(ctx context.Context, id uuid.UUID, token string) (*model.TokenRecord, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
}

// UserService implements registration, login, demo sessions, logout and
// profile updates on top of the user and token repositories.
type UserService struct {
	users      accountStore
	tokens     tokenStore
	codec      *auth.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewUserService(
	users accountStore,
	tokens tokenStore,
	codec *auth.Codec,
	accessTTL, refreshTTL time.Duration,
) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates the user and its initial token pair.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, *model.TokenRecord, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	user, err := s.users.Create(ctx, req, model.DefaultPrompt)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, record, nil
}

// Login verifies the password and rotates the stored token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, *model.TokenRecord, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !s.users.ValidatePassword(user, password) {
		return nil, nil, ErrInvalidCredentials
	}

	record, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, record, nil
}

// DemoLogin creates a throwaway DEMO account with a short session; the
// sweeper removes the account after the demo TTL.
func (s *UserService) DemoLogin(ctx context.Context) (*model.User, *model.TokenRecord, error) {
	user, err := s.users.CreateDemo(ctx, model.DefaultPrompt)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, record, nil
}

// Logout deletes the stored token record. A missing record is not an
// error; the session is gone either way.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if _, err := s.tokens.DeleteByToken(ctx, token); err != nil {
		return err
	}
	return nil
}

// Refresh rotates the access token. The caller must present the matching
// access/refresh pair currently on record and a still-valid refresh token.
func (s *UserService) Refresh(ctx context.Context, accessToken, refreshToken string) (string, error) {
	record, err := s.tokens.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrNotFound
	}

	if record.Token != accessToken {
		return "", ErrRefreshMismatch
	}

	email, err := s.codec.Verify(refreshToken)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	newAccess, err := s.codec.Issue(email, s.accessTTL)
	if err != nil {
		return "", err
	}

	if _, err := s.tokens.RotateAccessToken(ctx, record.ID, newAccess); err != nil {
		return "", err
	}

	return newAccess, nil
}

func (s *UserService) Profile(ctx context.Context, email string) (*model.UserProfile, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return toProfile(user), nil
}

func (s *UserService) UpdatePrompt(ctx context.Context, userID uuid.UUID, prompt string) (*model.UserProfile, error) {
	user, err := s.users.UpdatePrompt(ctx, userID, prompt)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return toProfile(user), nil
}

func (s *UserService) UpdateModel(ctx context.Context, userID uuid.UUID, modelName string) (*model.UserProfile, error) {
	if !model.IsKnownModel(modelName) {
		return nil, fmt.Errorf("%w: unknown model: %s", ErrValidation, modelName)
	}

	user, err := s.users.UpdateModel(ctx, userID, modelName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return toProfile(user), nil
}

func (s *UserService) issueTokens(ctx context.Context, user *model.User) (*model.TokenRecord, error) {
	access, err := s.codec.Issue(user.Email, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.codec.Issue(user.Email, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	record, err := s.tokens.Upsert(ctx, user.ID, access, refresh)
	if err != nil {
		return nil, err
	}

	log.Printf("Issued token pair for user %s", user.ID)
	return record, nil
}

func toProfile(user *model.User) *model.UserProfile {
	return &model.UserProfile{
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		Prompt:      user.Prompt,
		Model:       user.Model,
		MonthlyCost: user.MonthlyCost,
		TotalCost:   user.TotalCost,
	}
}

package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dagbok-backend/internal/model"
)

const userColumns = `id, email, password, name, role, prompt, model, monthly_cost, total_cost, created_at`

type UserRepository struct {
	db *Database
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, req *model.RegisterRequest, prompt string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user model.User
	query := `
		INSERT INTO users (email, password, name, role, prompt, model)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns + `
	`
	err = r.db.QueryRowxContext(ctx, query,
		req.Email, string(hashedPassword), req.Name, model.UserRoleUser, prompt, model.ModelGPT4oMini).
		StructScan(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// CreateDemo creates a throwaway DEMO-role account with a random email and
// password; the periodic sweep removes it after the demo TTL.
func (r *UserRepository) CreateDemo(ctx context.Context, prompt string) (*model.User, error) {
	suffix, err := randomHex(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate demo suffix: %w", err)
	}

	password, err := randomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate demo password: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user model.User
	query := `
		INSERT INTO users (email, password, name, role, prompt, model)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns + `
	`
	err = r.db.QueryRowxContext(ctx, query,
		"demo-"+suffix+"@demo.dagbok.cloud", string(hashedPassword), "Demo",
		model.UserRoleDemo, prompt, model.ModelMimoV2Flash).
		StructScan(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to create demo user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) ValidatePassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

func (r *UserRepository) UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) (*model.User, error) {
	var user model.User
	query := `UPDATE users SET prompt = $1 WHERE id = $2 RETURNING ` + userColumns
	err := r.db.QueryRowxContext(ctx, query, prompt, id).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateModel(ctx context.Context, id uuid.UUID, modelName string) (*model.User, error) {
	var user model.User
	query := `UPDATE users SET model = $1 WHERE id = $2 RETURNING ` + userColumns
	err := r.db.QueryRowxContext(ctx, query, modelName, id).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update model: %w", err)
	}
	return &user, nil
}

// UpdateCosts refreshes the denormalized spend accumulators after a priced
// call.
func (r *UserRepository) UpdateCosts(ctx context.Context, id uuid.UUID, monthlyCost, totalCost float64) error {
	query := `UPDATE users SET monthly_cost = $1, total_cost = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, monthlyCost, totalCost, id)
	if err != nil {
		return fmt.Errorf("failed to update costs: %w", err)
	}
	return nil
}

// DeleteDemoCreatedBefore removes expired DEMO accounts; tokens and notes
// go with them via cascade.
func (r *UserRepository) DeleteDemoCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM users WHERE role = $1 AND created_at < $2`
	res, err := r.db.ExecContext(ctx, query, model.UserRoleDemo, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete demo users: %w", err)
	}
	return res.RowsAffected()
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

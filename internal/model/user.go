package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser UserRole = "user"
	UserRoleDemo UserRole = "demo"
)

// Known OpenRouter model slugs. Anything else is rejected on update and
// priced at zero by the cost table.
const (
	ModelGPT4oMini   = "openai/gpt-4o-mini"
	ModelMimoV2Flash = "xiaomi/mimo-v2-flash:free"
)

// DefaultPrompt seeds a new user's system prompt for AI rewriting.
const DefaultPrompt = "You are a thoughtful writing assistant. Rewrite the user's daily note so it reads clearly, keeping its meaning, language and personal voice."

func IsKnownModel(model string) bool {
	switch model {
	case ModelGPT4oMini, ModelMimoV2Flash:
		return true
	}
	return false
}

type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	Password    string    `json:"-" db:"password"`
	Name        string    `json:"name" db:"name"`
	Role        UserRole  `json:"role" db:"role"`
	Prompt      string    `json:"prompt" db:"prompt"`
	Model       string    `json:"model" db:"model"`
	MonthlyCost float64   `json:"monthly_cost" db:"monthly_cost"`
	TotalCost   float64   `json:"total_cost" db:"total_cost"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserProfile struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	MonthlyCost float64 `json:"monthly_cost"`
	TotalCost   float64 `json:"total_cost"`
}

type UpdatePromptRequest struct {
	NewPrompt string `json:"newPrompt"`
}

type UpdateModelRequest struct {
	Model string `json:"model"`
}

// Principal is the authenticated identity attached to a request. It is
// rebuilt from the verified token on every request, never stored.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

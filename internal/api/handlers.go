package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"time"

	"github.com/dagbok-backend/internal/llm"
	"github.com/dagbok-backend/internal/middleware"
	"github.com/dagbok-backend/internal/model"
	"github.com/dagbok-backend/internal/service"
	"github.com/dagbok-backend/internal/storage"
)

// Handler contains all API handlers
type Handler struct {
	users *service.UserService
	notes *service.NoteService
	db    *storage.Database

	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration
	demoTTL      time.Duration
}

// NewHandler creates a new API handler
func NewHandler(
	users *service.UserService,
	notes *service.NoteService,
	db *storage.Database,
	cookieSecure bool,
	accessTTL, refreshTTL, demoTTL time.Duration,
) *Handler {
	return &Handler{
		users:        users,
		notes:        notes,
		db:           db,
		cookieSecure: cookieSecure,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		demoTTL:      demoTTL,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var limitErr *llm.CostLimitError
	switch {
	case errors.As(err, &limitErr):
		respondJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"message":     limitErr.Error(),
			"currentCost": limitErr.CurrentCost,
			"limit":       limitErr.Limit,
			"errorCode":   "MONTHLY_COST_LIMIT_EXCEEDED",
		})
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRefreshMismatch):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requirePrincipal returns the authenticated identity. A nil principal on a
// protected route is a wiring bug, not a client error.
func requirePrincipal(w http.ResponseWriter, r *http.Request) *model.Principal {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		log.Printf("BUG: no principal on protected path %s", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "missing authentication context")
	}
	return principal
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, record *model.TokenRecord, maxAge time.Duration) {
	h.setCookie(w, middleware.AccessTokenCookie, record.Token, int(maxAge.Seconds()))
	if record.RefreshToken != "" {
		h.setCookie(w, "refreshToken", record.RefreshToken, int(h.refreshTTL.Seconds()))
	}
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	h.setCookie(w, middleware.AccessTokenCookie, "", 0)
	h.setCookie(w, "refreshToken", "", 0)
}

// Auth handlers

// Register godoc
// @Summary Register a new user
// @Description Create a new account with email and password; sets auth cookies
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Registration details"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /user/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}
	if !isValidEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	log.Println("User register attempt")
	user, record, err := h.users.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setAuthCookies(w, record, h.refreshTTL)
	log.Printf("New user created: %s", user.ID)
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID.String(),
		"email": user.Email,
		"name":  user.Name,
	})
}

// Login godoc
// @Summary User login
// @Description Authenticate and set accessToken/refreshToken cookies
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /user/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	log.Println("User login attempt")
	_, record, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setAuthCookies(w, record, h.refreshTTL)
	log.Println("User logged in successfully")
	respondJSON(w, http.StatusOK, nil)
}

// Demo godoc
// @Summary Create a demo session
// @Description Creates a throwaway demo account with a short-lived cookie
// @Tags User
// @Produce json
// @Success 200
// @Router /user/demo [post]
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	log.Println("Demo session requested")
	_, record, err := h.users.DemoLogin(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, record.Token, int(h.demoTTL.Seconds()))
	log.Println("Demo session created")
	respondJSON(w, http.StatusOK, nil)
}

// Logout godoc
// @Summary Log out
// @Description Deletes the stored token record and clears cookies
// @Tags User
// @Success 200
// @Router /user/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AccessTokenCookie); err == nil && cookie.Value != "" {
		if err := h.users.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("Logout token cleanup failed: %v", err)
		}
	}

	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, nil)
}

// Refresh godoc
// @Summary Rotate the access token
// @Description Exchanges a valid access/refresh pair for a fresh access token
// @Tags Token
// @Accept json
// @Produce json
// @Param request body model.RefreshRequest true "Current token pair"
// @Success 200 {object} model.RefreshResponse
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Failure 409 {object} map[string]string "Pair mismatch"
// @Router /token/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Cookies are the default carriers; the body overrides for API clients.
	if req.Token == "" {
		if cookie, err := r.Cookie(middleware.AccessTokenCookie); err == nil {
			req.Token = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie("refreshToken"); err == nil {
			req.RefreshToken = cookie.Value
		}
	}

	if req.Token == "" || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "token and refreshToken are required")
		return
	}

	newAccess, err := h.users.Refresh(r.Context(), req.Token, req.RefreshToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, newAccess, int(h.refreshTTL.Seconds()))
	respondJSON(w, http.StatusOK, model.RefreshResponse{Token: newAccess})
}

// Me godoc
// @Summary Current user profile
// @Tags User
// @Produce json
// @Success 200 {object} model.UserProfile
// @Failure 401 {object} map[string]string
// @Router /user/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	profile, err := h.users.Profile(r.Context(), principal.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdatePrompt godoc
// @Summary Update the user's system prompt
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.UpdatePromptRequest true "New prompt"
// @Success 200 {object} model.UserProfile
// @Router /user/prompt [put]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var req model.UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPrompt == "" {
		respondError(w, http.StatusBadRequest, "newPrompt is required")
		return
	}

	profile, err := h.users.UpdatePrompt(r.Context(), principal.UserID, req.NewPrompt)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateModel godoc
// @Summary Select the user's AI model
// @Tags User
// @Accept json
// @Produce json
// @Param request body model.UpdateModelRequest true "Model slug"
// @Success 200 {object} model.UserProfile
// @Failure 400 {object} map[string]string "Unknown model"
// @Router /user/model [patch]
func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var req model.UpdateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.users.UpdateModel(r.Context(), principal.UserID, req.Model)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// Health godoc
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status godoc
// @Summary Service status including database connectivity
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	database := "up"
	if err := h.db.Ping(r.Context()); err != nil {
		database = "down"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": database,
	})
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

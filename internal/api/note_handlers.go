package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dagbok-backend/internal/model"
)

const dateLayout = "2006-01-02"

// CreateNote godoc
// @Summary Create a note
// @Description Saves a note for a day, optionally rewritten by the AI model
// @Tags Notes
// @Accept json
// @Produce json
// @Param request body model.NoteCreateRequest true "Note content"
// @Success 201 {object} model.NoteCreated
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 402 {object} map[string]interface{} "Monthly cost limit exceeded"
// @Router /api/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	var req model.NoteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	created, err := h.notes.Create(r.Context(), principal.UserID, req.Text, date, req.Prompt)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// DeleteNote godoc
// @Summary Delete a note
// @Description Soft-deletes a note owned by the current user
// @Tags Notes
// @Produce json
// @Param noteId path string true "Note ID"
// @Success 200 {object} model.Note
// @Failure 404 {object} map[string]string "Note not found"
// @Router /api/notes/{noteId} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	noteID, err := uuid.Parse(r.PathValue("noteId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	note, err := h.notes.Delete(r.Context(), noteID, principal.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// UpdateNote godoc
// @Summary Update a note's text
// @Tags Notes
// @Accept json
// @Produce json
// @Param noteId path string true "Note ID"
// @Param request body model.NoteUpdateRequest true "New text"
// @Success 200 {object} model.Note
// @Failure 404 {object} map[string]string "Note not found"
// @Router /api/notes/{noteId} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	noteID, err := uuid.Parse(r.PathValue("noteId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	var req model.NoteUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	note, err := h.notes.Update(r.Context(), noteID, principal.UserID, req.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, note)
}

// NotesByDate godoc
// @Summary List notes for a day
// @Tags Notes
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} model.NoteResponse
// @Router /api/notes/user [get]
func (h *Handler) NotesByDate(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	resp, err := h.notes.ByDate(r.Context(), principal.UserID, date)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// NoteCounts godoc
// @Summary Note counts per day for a month
// @Tags Notes
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} model.NoteCountsResponse
// @Router /api/notes/counts/{year}/{month} [get]
func (h *Handler) NoteCounts(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}

	resp, err := h.notes.CountsByMonth(r.Context(), principal.UserID, year, month)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// SearchNotes godoc
// @Summary Full-text search across the user's notes
// @Tags Notes
// @Produce json
// @Param text query string true "Search text"
// @Success 200 {object} model.NoteResponse
// @Router /api/notes/search [get]
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	principal := requirePrincipal(w, r)
	if principal == nil {
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		respondError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}

	resp, err := h.notes.Search(r.Context(), principal.UserID, text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/service"
)

// NoteHandler serves personal study notes. Strictly private: every route
// acts on the caller's own notes.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

// HandleCreate stores a new note for the caller.
//
// POST /api/notes
// Body: {"title": "...", "description": "..."}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), &model.Note{
		Title:       body.Title,
		Description: body.Description,
	}, email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// HandleList returns the caller's notes, newest-first.
//
// GET /api/notes
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notes, err := h.notes.ListByOwner(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// HandleUpdate edits one of the caller's notes.
//
// PATCH /api/notes/{id}
// Body: {"title": "...", "description": "..."}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.notes.Update(r.Context(), r.PathValue("id"), body.Title, body.Description, email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleDelete removes one of the caller's notes.
//
// DELETE /api/notes/{id}
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.notes.Delete(r.Context(), r.PathValue("id"), email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

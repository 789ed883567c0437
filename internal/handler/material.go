package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/auth"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/service"
)

// MaterialHandler serves tutor material management plus the admin
// moderation surface. Student-facing gated access lives on the booking
// routes.
type MaterialHandler struct {
	materials *service.MaterialService
	guard     *auth.Guard
	logger    *slog.Logger
}

func NewMaterialHandler(materials *service.MaterialService, guard *auth.Guard, logger *slog.Logger) *MaterialHandler {
	return &MaterialHandler{
		materials: materials,
		guard:     guard,
		logger:    logger,
	}
}

// HandleCreate uploads a material against one of the caller's sessions.
// Tutor only.
//
// POST /api/materials
// Body: {"sessionId": "...", "title": "...", "link": "..."}
func (h *MaterialHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		SessionID string `json:"sessionId"`
		Title     string `json:"title"`
		Link      string `json:"link"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	material, err := h.materials.Create(r.Context(), &model.Material{
		SessionID: body.SessionID,
		Title:     body.Title,
		Link:      body.Link,
	}, email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, material)
}

// HandleListMine returns the caller's own materials. Tutor only.
//
// GET /api/materials
func (h *MaterialHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	materials, err := h.materials.ListByTutor(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, materials)
}

// HandleListAll returns every material for admin moderation.
//
// GET /api/materials/all
func (h *MaterialHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	materials, err := h.materials.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, materials)
}

// HandleUpdate edits one of the caller's materials. Tutor only; ownership
// is checked in the service.
//
// PATCH /api/materials/{id}
// Body: {"title": "...", "link": "..."}
func (h *MaterialHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.materials.Update(r.Context(), r.PathValue("id"), body.Title, body.Link, email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleDelete removes one of the caller's materials. Tutor only.
//
// DELETE /api/materials/{id}
func (h *MaterialHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.materials.Delete(r.Context(), r.PathValue("id"), email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminDelete removes any material regardless of owner. Admin only.
//
// DELETE /api/materials/{id}/admin
func (h *MaterialHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	if err := h.materials.AdminDelete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/auth"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/service"
)

// UserHandler serves account endpoints: sign-in upsert, profile reads and
// updates, the tutor directory, and admin role management.
type UserHandler struct {
	users  *service.UserService
	guard  *auth.Guard
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, guard *auth.Guard, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		guard:  guard,
		logger: logger,
	}
}

// HandleSignIn upserts the caller's account on authentication.
//
// POST /api/users
// Body: {"name": "...", "photo": "..."}
//
// The email comes from the verified token, never the body. 201 on first
// sign-in, 200 on subsequent ones.
func (h *UserHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	var body struct {
		Name  string `json:"name"`
		Photo string `json:"photo"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, created, err := h.users.SignIn(r.Context(), email, body.Name, body.Photo)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, user)
}

// HandleGetByEmail returns an account. Callers can only read their own.
//
// GET /api/users/{email}
func (h *UserHandler) HandleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if err := h.guard.RequireSelf(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleGetRole returns only the caller's role, for client-side routing.
//
// GET /api/users/{email}/role
func (h *UserHandler) HandleGetRole(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if err := h.guard.RequireSelf(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.Role{"role": user.Role})
}

// HandleUpdateProfile updates the caller's own name and photo.
//
// PATCH /api/users/{email}
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if err := h.guard.RequireSelf(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Name  string `json:"name"`
		Photo string `json:"photo"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.UpdateProfile(r.Context(), email, body.Name, body.Photo); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleListTutors returns the public tutor directory.
//
// GET /api/tutors
func (h *UserHandler) HandleListTutors(w http.ResponseWriter, r *http.Request) {
	tutors, err := h.users.ListTutors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tutors)
}

// HandleSearch searches accounts by name or email substring. Admin only.
//
// GET /api/users?search=alice
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	users, err := h.users.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// HandleChangeRole sets a user's role by record id. Admin only.
//
// PATCH /api/users/{id}/role
// Body: {"role": "tutor"}
func (h *UserHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.ChangeRole(r.Context(), r.PathValue("id"), body.Role); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

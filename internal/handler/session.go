package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/auth"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/service"
)

// SessionHandler serves the session lifecycle: tutors propose, admins
// moderate, students review.
type SessionHandler struct {
	sessions *service.SessionService
	guard    *auth.Guard
	logger   *slog.Logger
}

func NewSessionHandler(sessions *service.SessionService, guard *auth.Guard, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		guard:    guard,
		logger:   logger,
	}
}

// HandleCreate registers a new session proposal. Tutor only; the session
// starts pending regardless of what the body claims.
//
// POST /api/sessions
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	var session model.StudySession
	if err := decodeJSON(r, &session); err != nil {
		writeError(w, err)
		return
	}

	email, _ := auth.EmailFromContext(r.Context())
	created, err := h.sessions.Create(r.Context(), &session, email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleList lists sessions.
//
// GET /api/sessions?status=...&tutorEmail=...
//
// Without query parameters this is the public approved-sessions listing.
// tutorEmail restricts to the caller's own sessions (any status); asking
// for non-approved sessions across tutors requires the admin role.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	tutorEmail := r.URL.Query().Get("tutorEmail")

	if tutorEmail != "" {
		if err := h.guard.RequireSelf(r.Context(), tutorEmail); err != nil {
			writeError(w, err)
			return
		}
	} else if status != "" && status != string(model.StatusApproved) {
		if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
			writeError(w, err)
			return
		}
	}

	sessions, err := h.sessions.List(r.Context(), status, tutorEmail)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// HandleGetByID returns a single session with its reviews. Public.
//
// GET /api/sessions/{id}
func (h *SessionHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// HandleApprove approves a pending session, setting its fee. Admin only.
//
// PATCH /api/sessions/{id}/approve
// Body: {"fee": "50"}
func (h *SessionHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Fee string `json:"fee"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Approve(r.Context(), r.PathValue("id"), body.Fee); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusApproved)})
}

// HandleReject rejects a pending session with a reason and feedback for the
// tutor. Admin only.
//
// PATCH /api/sessions/{id}/reject
// Body: {"rejectionReason": "...", "rejectionFeedback": "..."}
func (h *SessionHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		RejectionReason   string `json:"rejectionReason"`
		RejectionFeedback string `json:"rejectionFeedback"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Reject(r.Context(), r.PathValue("id"), body.RejectionReason, body.RejectionFeedback); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusRejected)})
}

// HandleResend sends the caller's rejected session back for approval.
// Tutor only; ownership is checked in the service.
//
// PATCH /api/sessions/{id}/resend
func (h *SessionHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleTutor); err != nil {
		writeError(w, err)
		return
	}

	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
		return
	}

	if err := h.sessions.Resend(r.Context(), r.PathValue("id"), email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusPending)})
}

// HandleUpdateFee changes an approved session's fee. Admin only.
//
// PATCH /api/sessions/{id}/fee
// Body: {"fee": "75"}
func (h *SessionHandler) HandleUpdateFee(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Fee string `json:"fee"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.UpdateFee(r.Context(), r.PathValue("id"), body.Fee); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// HandleDelete removes a session. Admin only.
//
// DELETE /api/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.RequireRole(r.Context(), model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddReview appends a review to a session and returns the session
// with its recomputed average. Any authenticated user.
//
// POST /api/sessions/{id}/reviews
// Body: {"studentName": "...", "reviewText": "...", "rating": 4.5}
func (h *SessionHandler) HandleAddReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StudentName string  `json:"studentName"`
		ReviewText  string  `json:"reviewText"`
		Rating      float64 `json:"rating"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessions.AddReview(r.Context(), r.PathValue("id"), body.StudentName, body.ReviewText, body.Rating)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

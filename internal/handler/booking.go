package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/auth"
	"github.com/sakif/knowloop/internal/service"
)

// BookingHandler serves enrollment endpoints. Every route acts on the
// caller's own bookings; the student email always comes from the verified
// identity, never from a parameter.
type BookingHandler struct {
	bookings *service.BookingService
	logger   *slog.Logger
}

func NewBookingHandler(bookings *service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// callerEmail extracts the verified identity or fails the request.
func callerEmail(r *http.Request) (string, error) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthenticated("valid authentication required")
	}
	return email, nil
}

// HandleBook enrolls the caller in a session.
//
// POST /api/booked-sessions
// Body: {"sessionId": "..."}
func (h *BookingHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	booking, err := h.bookings.Book(r.Context(), body.SessionID, email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// HandleList returns the caller's bookings, newest-first.
//
// GET /api/booked-sessions
func (h *BookingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bookings, err := h.bookings.ListByStudent(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

// HandleStatus reports whether the caller booked the session and whether
// the materials gate is open for them.
//
// GET /api/booked-sessions/{sessionId}/status
func (h *BookingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID := r.PathValue("sessionId")
	booked, err := h.bookings.IsBooked(r.Context(), sessionID, email)
	if err != nil {
		writeError(w, err)
		return
	}

	canAccess := false
	if booked {
		canAccess, err = h.bookings.CanAccessMaterials(r.Context(), sessionID, email)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"booked":             booked,
		"canAccessMaterials": canAccess,
	})
}

// HandleCancel removes the caller's unpaid booking. Paid bookings are
// completed purchases and cannot be cancelled.
//
// DELETE /api/booked-sessions/{sessionId}
func (h *BookingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.bookings.Cancel(r.Context(), r.PathValue("sessionId"), email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMaterials returns the materials of every session the access gate
// opens for the caller: booked, and free or paid for.
//
// GET /api/booked-sessions/materials
func (h *BookingHandler) HandleMaterials(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	materials, err := h.bookings.AccessibleMaterials(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, materials)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/knowloop/internal/service"
)

// PaymentHandler serves the paid-booking flow: intent creation, payment
// confirmation, and the caller's transaction history.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// HandleCreateIntent creates a payment intent for a session's fee. The
// amount is taken from the stored session, not the request.
//
// POST /api/payments/intent
// Body: {"sessionId": "..."}
func (h *PaymentHandler) HandleCreateIntent(w http.ResponseWriter, r *http.Request) {
	if _, err := callerEmail(r); err != nil {
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

	clientSecret, err := h.payments.CreateIntent(r.Context(), body.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": clientSecret})
}

// HandleConfirm records a completed payment in the ledger and marks the
// caller's booking paid.
//
// POST /api/payments/confirm
// Body: {"sessionId": "...", "paymentRef": "pi_..."}
func (h *PaymentHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		SessionID  string `json:"sessionId"`
		PaymentRef string `json:"paymentRef"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.payments.Confirm(r.Context(), body.SessionID, email, body.PaymentRef)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// HandleListTransactions returns the caller's payment history, newest-first.
//
// GET /api/payments/transactions
func (h *PaymentHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	transactions, err := h.payments.ListTransactions(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

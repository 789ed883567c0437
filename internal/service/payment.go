package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/payment"
	"github.com/sakif/knowloop/internal/repository"
)

// PaymentService drives the paid-booking flow: it creates payment intents
// for priced sessions and, once the client confirms, records the ledger
// entry and unlocks the booking.
type PaymentService struct {
	gateway      payment.IntentCreator
	sessions     repository.SessionRepository
	bookings     repository.BookingRepository
	transactions repository.TransactionRepository
	logger       *slog.Logger
}

func NewPaymentService(
	gateway payment.IntentCreator,
	sessions repository.SessionRepository,
	bookings repository.BookingRepository,
	transactions repository.TransactionRepository,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:      gateway,
		sessions:     sessions,
		bookings:     bookings,
		transactions: transactions,
		logger:       logger,
	}
}

// CreateIntent creates a payment intent for the session's fee and returns
// the client secret. The amount always comes from the stored session, never
// from the request, so a client cannot pay a made-up price.
func (s *PaymentService) CreateIntent(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", apperror.ValidationFailed("sessionId", "session ID is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	amountMinor, err := feeToMinorUnits(session.Fee)
	if err != nil {
		return "", err
	}
	if amountMinor <= 0 {
		return "", apperror.Conflict("session is free, no payment required")
	}

	clientSecret, err := s.gateway.CreateIntent(ctx, amountMinor)
	if err != nil {
		s.logger.Error("failed to create payment intent",
			slog.String("session", sessionID),
			slog.String("error", err.Error()),
		)
		return "", apperror.Upstream("creating payment intent", err)
	}

	s.logger.Info("payment intent created",
		slog.String("session", sessionID),
		slog.Int64("amountMinor", amountMinor),
	)

	return clientSecret, nil
}

// Confirm records the completed payment in the ledger and flips the booking
// to paid. paymentRef is the processor's reference for the charge.
func (s *PaymentService) Confirm(ctx context.Context, sessionID, studentEmail, paymentRef string) (*model.Transaction, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("sessionId", "session ID is required")
	}
	if strings.TrimSpace(paymentRef) == "" {
		return nil, apperror.ValidationFailed("paymentRef", "payment reference is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.SetPaymentStatus(ctx, sessionID, studentEmail, model.PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("marking booking paid: %w", err)
	}
	if !updated {
		return nil, apperror.NotFound("booking", sessionID)
	}

	tx := &model.Transaction{
		StudentEmail: studentEmail,
		SessionID:    sessionID,
		SessionTitle: session.Title,
		Amount:       session.Fee,
		PaymentRef:   paymentRef,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	s.logger.Info("payment confirmed",
		slog.String("session", sessionID),
		slog.String("student", studentEmail),
		slog.String("paymentRef", paymentRef),
	)

	return tx, nil
}

// ListTransactions returns the student's ledger entries, newest-first.
func (s *PaymentService) ListTransactions(ctx context.Context, studentEmail string) ([]model.Transaction, error) {
	if studentEmail == "" {
		return nil, apperror.ValidationFailed("studentEmail", "student email is required")
	}

	transactions, err := s.transactions.ListByStudent(ctx, studentEmail)
	if err != nil {
		s.logger.Error("failed to list transactions",
			slog.String("student", studentEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return transactions, nil
}

// feeToMinorUnits converts a stored fee string to cents. The "Free"
// sentinel and "0" both map to zero.
func feeToMinorUnits(fee string) (int64, error) {
	if strings.EqualFold(strings.TrimSpace(fee), model.FreeFee) {
		return 0, nil
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(fee), 64)
	if err != nil {
		return 0, apperror.ValidationFailed("fee", fmt.Sprintf("invalid fee %q", fee))
	}
	if amount < 0 {
		return 0, apperror.ValidationFailed("fee", "fee cannot be negative")
	}

	return int64(math.Round(amount * 100)), nil
}

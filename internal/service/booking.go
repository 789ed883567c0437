package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

// BookingService manages a student's enrollment in sessions and gates
// access to paid content.
type BookingService struct {
	bookings  repository.BookingRepository
	sessions  repository.SessionRepository
	materials repository.MaterialRepository
	logger    *slog.Logger
}

func NewBookingService(
	bookings repository.BookingRepository,
	sessions repository.SessionRepository,
	materials repository.MaterialRepository,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		sessions:  sessions,
		materials: materials,
		logger:    logger,
	}
}

// Book enrolls the student in a session. The session snapshot (title, tutor)
// is denormalized into the booking at creation time. Every booking starts
// unpaid — free sessions open the materials gate through the fee check, not
// through payment status, which keeps them cancellable. Booking the same
// session twice is a conflict.
func (s *BookingService) Book(ctx context.Context, sessionID, studentEmail string) (*model.BookedSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("sessionId", "session ID is required")
	}
	if studentEmail == "" {
		return nil, apperror.ValidationFailed("studentEmail", "student email is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusApproved {
		return nil, apperror.Conflict("session is not open for booking")
	}
	if session.TutorEmail == studentEmail {
		return nil, apperror.Conflict("tutors cannot book their own session")
	}

	booking := &model.BookedSession{
		SessionID:     sessionID,
		SessionTitle:  session.Title,
		StudentEmail:  studentEmail,
		TutorEmail:    session.TutorEmail,
		PaymentStatus: model.PaymentUnpaid,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("session booked",
		slog.String("session", sessionID),
		slog.String("student", studentEmail),
		slog.String("paymentStatus", string(booking.PaymentStatus)),
	)

	return booking, nil
}

// IsBooked reports whether the student has booked the session.
func (s *BookingService) IsBooked(ctx context.Context, sessionID, studentEmail string) (bool, error) {
	_, err := s.bookings.GetBySessionAndStudent(ctx, sessionID, studentEmail)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByStudent returns the student's bookings, newest-first.
func (s *BookingService) ListByStudent(ctx context.Context, studentEmail string) ([]model.BookedSession, error) {
	if studentEmail == "" {
		return nil, apperror.ValidationFailed("studentEmail", "student email is required")
	}

	bookings, err := s.bookings.ListByStudent(ctx, studentEmail)
	if err != nil {
		s.logger.Error("failed to list bookings",
			slog.String("student", studentEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	return bookings, nil
}

// Cancel removes the student's booking, but only while it is unpaid. A paid
// booking is a completed purchase and stays on the books.
func (s *BookingService) Cancel(ctx context.Context, sessionID, studentEmail string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return apperror.ValidationFailed("sessionId", "session ID is required")
	}

	deleted, err := s.bookings.DeleteUnpaid(ctx, sessionID, studentEmail)
	if err != nil {
		return fmt.Errorf("cancelling booking: %w", err)
	}
	if !deleted {
		// Either no booking exists or it is already paid; tell them apart.
		if _, err := s.bookings.GetBySessionAndStudent(ctx, sessionID, studentEmail); err != nil {
			return err
		}
		return apperror.Conflict("paid bookings cannot be cancelled")
	}

	s.logger.Info("booking cancelled",
		slog.String("session", sessionID),
		slog.String("student", studentEmail),
	)
	return nil
}

// MarkPaid flips the booking to paid after a confirmed payment.
func (s *BookingService) MarkPaid(ctx context.Context, sessionID, studentEmail string) error {
	updated, err := s.bookings.SetPaymentStatus(ctx, sessionID, studentEmail, model.PaymentPaid)
	if err != nil {
		return fmt.Errorf("marking booking paid: %w", err)
	}
	if !updated {
		return apperror.NotFound("booking", sessionID)
	}

	s.logger.Info("booking marked paid",
		slog.String("session", sessionID),
		slog.String("student", studentEmail),
	)
	return nil
}

// CanAccessMaterials is the access gate for paid content: the student must
// hold a booking for the session, and the session must be free or the
// booking paid for. The session lookup always runs first — a booking whose
// session has since been deleted is dangling and never grants access,
// whatever its payment status.
func (s *BookingService) CanAccessMaterials(ctx context.Context, sessionID, studentEmail string) (bool, error) {
	booking, err := s.bookings.GetBySessionAndStudent(ctx, sessionID, studentEmail)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if session.Free() {
		return true, nil
	}
	return booking.PaymentStatus == model.PaymentPaid, nil
}

// AccessibleMaterials returns the materials of every session the access
// gate opens for the student.
func (s *BookingService) AccessibleMaterials(ctx context.Context, studentEmail string) ([]model.Material, error) {
	if studentEmail == "" {
		return nil, apperror.ValidationFailed("studentEmail", "student email is required")
	}

	bookings, err := s.bookings.ListByStudent(ctx, studentEmail)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	sessionIDs := make([]string, 0, len(bookings))
	for _, booking := range bookings {
		ok, err := s.CanAccessMaterials(ctx, booking.SessionID, studentEmail)
		if err != nil {
			return nil, err
		}
		if ok {
			sessionIDs = append(sessionIDs, booking.SessionID)
		}
	}

	materials, err := s.materials.ListBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("listing accessible materials: %w", err)
	}

	return materials, nil
}

// Package service contains the business logic layer.
//
// Handlers parse HTTP and run the authorization guard; services enforce the
// domain rules and orchestrate repositories; repositories talk to storage.
// Services accept primitives and models, never HTTP types, and return
// apperror domain errors for the handler layer to translate.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

// Rating bounds accepted by the review aggregator.
const (
	MinRating = 1
	MaxRating = 5
)

// SessionService is the session lifecycle engine. It owns the approval
// state machine and the fee-setting rules, plus the review aggregator.
type SessionService struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
}

func NewSessionService(sessions repository.SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		logger:   logger,
	}
}

// Create registers a tutor's session proposal.
//
// Contract: the stored session always starts pending with empty reviews and
// a zero average, whatever the client sent. Fee defaults to "0" when the
// tutor left it blank.
func (s *SessionService) Create(ctx context.Context, session *model.StudySession, tutorEmail string) (*model.StudySession, error) {
	session.Title = strings.TrimSpace(session.Title)
	if session.Title == "" {
		return nil, apperror.ValidationFailed("title", "session title is required")
	}
	if tutorEmail == "" {
		return nil, apperror.ValidationFailed("tutorEmail", "tutor email is required")
	}

	// The tutor owns the session from here on; the email comes from the
	// verified identity, not the request body.
	session.TutorEmail = tutorEmail
	session.Status = model.StatusPending
	if session.Fee == "" {
		session.Fee = "0"
	}
	session.Reviews = []model.Review{}
	session.AverageRating = 0
	session.RejectionReason = ""
	session.RejectionFeedback = ""

	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Error("failed to create session",
			slog.String("tutor", tutorEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session created",
		slog.String("id", session.ID),
		slog.String("tutor", tutorEmail),
	)

	return session, nil
}

// GetByID retrieves a session by id.
func (s *SessionService) GetByID(ctx context.Context, id string) (*model.StudySession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "session ID is required")
	}

	return s.sessions.GetByID(ctx, id)
}

// List returns sessions filtered by status and/or tutor. An empty status
// means approved only (the public default); "all" lists every status.
func (s *SessionService) List(ctx context.Context, status, tutorEmail string) ([]model.StudySession, error) {
	filter := repository.SessionFilter{TutorEmail: tutorEmail}

	switch status {
	case "", string(model.StatusApproved):
		filter.Status = model.StatusApproved
	case "all":
		filter.All = true
	case string(model.StatusPending):
		filter.Status = model.StatusPending
	case string(model.StatusRejected):
		filter.Status = model.StatusRejected
	default:
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", status))
	}

	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	return sessions, nil
}

// Approve transitions pending → approved and sets the admin-supplied fee,
// overriding whatever the tutor proposed.
func (s *SessionService) Approve(ctx context.Context, id, fee string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "session ID is required")
	}
	if strings.TrimSpace(fee) == "" {
		return apperror.ValidationFailed("fee", "fee is required")
	}

	updated, err := s.sessions.Approve(ctx, id, fee)
	if err != nil {
		return fmt.Errorf("approving session %s: %w", id, err)
	}
	if !updated {
		return s.transitionConflict(ctx, id, "only pending sessions can be approved")
	}

	s.logger.Info("session approved",
		slog.String("id", id),
		slog.String("fee", fee),
	)
	return nil
}

// Reject transitions pending → rejected, recording the reason and feedback
// for the tutor.
func (s *SessionService) Reject(ctx context.Context, id, reason, feedback string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "session ID is required")
	}

	updated, err := s.sessions.Reject(ctx, id, reason, feedback)
	if err != nil {
		return fmt.Errorf("rejecting session %s: %w", id, err)
	}
	if !updated {
		return s.transitionConflict(ctx, id, "only pending sessions can be rejected")
	}

	s.logger.Info("session rejected", slog.String("id", id))
	return nil
}

// Resend flips the caller's rejected session back to pending so an admin
// reviews it again. Only the owning tutor may resend, and only from the
// rejected state.
func (s *SessionService) Resend(ctx context.Context, id, tutorEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "session ID is required")
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if session.TutorEmail != tutorEmail {
		return apperror.Forbidden("forbidden access")
	}

	updated, err := s.sessions.MarkPending(ctx, id)
	if err != nil {
		return fmt.Errorf("resending session %s: %w", id, err)
	}
	if !updated {
		return apperror.Conflict("session not found or already pending")
	}

	s.logger.Info("session resent for approval",
		slog.String("id", id),
		slog.String("tutor", tutorEmail),
	)
	return nil
}

// UpdateFee mutates the fee in place. Status is untouched.
func (s *SessionService) UpdateFee(ctx context.Context, id, fee string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "session ID is required")
	}
	if strings.TrimSpace(fee) == "" {
		return apperror.ValidationFailed("price", "price is required")
	}

	if err := s.sessions.UpdateFee(ctx, id, fee); err != nil {
		return err
	}

	s.logger.Info("session fee updated",
		slog.String("id", id),
		slog.String("fee", fee),
	)
	return nil
}

// Delete removes a session entirely. Admin-only at the handler layer.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "session ID is required")
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("session deleted", slog.String("id", id))
	return nil
}

// AddReview appends a review and returns the session with its recomputed
// average rating. Ratings outside [1, 5] are rejected up front instead of
// poisoning the average.
func (s *SessionService) AddReview(ctx context.Context, sessionID, studentName, reviewText string, rating float64) (*model.StudySession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("id", "session ID is required")
	}
	if strings.TrimSpace(studentName) == "" {
		return nil, apperror.ValidationFailed("studentName", "student name is required")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}

	session, err := s.sessions.AppendReview(ctx, sessionID, model.Review{
		StudentName: studentName,
		ReviewText:  reviewText,
		Rating:      rating,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review added",
		slog.String("session", sessionID),
		slog.Float64("rating", rating),
		slog.Float64("averageRating", session.AverageRating),
	)

	return session, nil
}

// transitionConflict distinguishes a missing session from one in the wrong
// state after a conditional update matched nothing.
func (s *SessionService) transitionConflict(ctx context.Context, id, message string) error {
	if _, err := s.sessions.GetByID(ctx, id); err != nil {
		return err
	}
	return apperror.Conflict(message)
}

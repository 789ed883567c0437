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

// NoteService manages a student's personal notes. Notes are strictly
// private: every operation checks the caller owns the note.
type NoteService struct {
	notes  repository.NoteRepository
	logger *slog.Logger
}

func NewNoteService(notes repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{
		notes:  notes,
		logger: logger,
	}
}

// Create stores a new note for the caller.
func (s *NoteService) Create(ctx context.Context, note *model.Note, ownerEmail string) (*model.Note, error) {
	note.Title = strings.TrimSpace(note.Title)
	if note.Title == "" {
		return nil, apperror.ValidationFailed("title", "note title is required")
	}
	if ownerEmail == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	note.Email = ownerEmail
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("owner", ownerEmail),
	)

	return note, nil
}

// ListByOwner returns the caller's notes, newest-first.
func (s *NoteService) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Note, error) {
	if ownerEmail == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	notes, err := s.notes.ListByEmail(ctx, ownerEmail)
	if err != nil {
		s.logger.Error("failed to list notes",
			slog.String("owner", ownerEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	return notes, nil
}

// Update edits the caller's own note.
func (s *NoteService) Update(ctx context.Context, id, title, description, ownerEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "note ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return apperror.ValidationFailed("title", "note title is required")
	}

	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.Email != ownerEmail {
		return apperror.Forbidden("forbidden access")
	}

	if err := s.notes.Update(ctx, id, title, description); err != nil {
		return err
	}

	s.logger.Info("note updated", slog.String("id", id))
	return nil
}

// Delete removes the caller's own note.
func (s *NoteService) Delete(ctx context.Context, id, ownerEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "note ID is required")
	}

	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if note.Email != ownerEmail {
		return apperror.Forbidden("forbidden access")
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("note deleted", slog.String("id", id))
	return nil
}

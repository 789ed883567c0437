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

// MaterialService manages tutor-uploaded study materials. Tutors own their
// materials; admins can list and remove anything.
type MaterialService struct {
	materials repository.MaterialRepository
	sessions  repository.SessionRepository
	logger    *slog.Logger
}

func NewMaterialService(
	materials repository.MaterialRepository,
	sessions repository.SessionRepository,
	logger *slog.Logger,
) *MaterialService {
	return &MaterialService{
		materials: materials,
		sessions:  sessions,
		logger:    logger,
	}
}

// Create uploads a material against one of the caller's own sessions.
func (s *MaterialService) Create(ctx context.Context, material *model.Material, tutorEmail string) (*model.Material, error) {
	material.Title = strings.TrimSpace(material.Title)
	if material.Title == "" {
		return nil, apperror.ValidationFailed("title", "material title is required")
	}
	if strings.TrimSpace(material.SessionID) == "" {
		return nil, apperror.ValidationFailed("sessionId", "session ID is required")
	}

	session, err := s.sessions.GetByID(ctx, material.SessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorEmail != tutorEmail {
		return nil, apperror.Forbidden("forbidden access")
	}

	material.TutorEmail = tutorEmail
	if err := s.materials.Create(ctx, material); err != nil {
		return nil, err
	}

	s.logger.Info("material created",
		slog.String("id", material.ID),
		slog.String("session", material.SessionID),
		slog.String("tutor", tutorEmail),
	)

	return material, nil
}

// ListByTutor returns the caller's own materials.
func (s *MaterialService) ListByTutor(ctx context.Context, tutorEmail string) ([]model.Material, error) {
	if tutorEmail == "" {
		return nil, apperror.ValidationFailed("tutorEmail", "tutor email is required")
	}

	materials, err := s.materials.ListByTutor(ctx, tutorEmail)
	if err != nil {
		s.logger.Error("failed to list materials",
			slog.String("tutor", tutorEmail),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing materials: %w", err)
	}

	return materials, nil
}

// ListAll returns every material in the system, for admin moderation.
func (s *MaterialService) ListAll(ctx context.Context) ([]model.Material, error) {
	materials, err := s.materials.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list all materials", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing all materials: %w", err)
	}

	return materials, nil
}

// Update edits the title and link of one of the caller's own materials.
func (s *MaterialService) Update(ctx context.Context, id, title, link, tutorEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "material ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return apperror.ValidationFailed("title", "material title is required")
	}

	material, err := s.materials.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if material.TutorEmail != tutorEmail {
		return apperror.Forbidden("forbidden access")
	}

	if err := s.materials.Update(ctx, id, title, link); err != nil {
		return err
	}

	s.logger.Info("material updated", slog.String("id", id))
	return nil
}

// Delete removes one of the caller's own materials.
func (s *MaterialService) Delete(ctx context.Context, id, tutorEmail string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "material ID is required")
	}

	material, err := s.materials.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if material.TutorEmail != tutorEmail {
		return apperror.Forbidden("forbidden access")
	}

	if err := s.materials.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("material deleted",
		slog.String("id", id),
		slog.String("tutor", tutorEmail),
	)
	return nil
}

// AdminDelete removes any material regardless of owner.
func (s *MaterialService) AdminDelete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "material ID is required")
	}

	if err := s.materials.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("material removed by admin", slog.String("id", id))
	return nil
}

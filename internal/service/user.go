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

// UserService manages accounts, roles, and the tutor directory.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// SignIn upserts the account on every authentication: first sign-in creates
// the record as a student, subsequent ones only refresh last_login. The
// existing role always survives, so an admin demoting themselves by logging
// in again is impossible.
func (s *UserService) SignIn(ctx context.Context, email, name, photo string) (*model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, apperror.ValidationFailed("email", "email is required")
	}

	user := &model.User{
		Email: email,
		Name:  name,
		Photo: photo,
	}

	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		s.logger.Error("failed to upsert user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("signing in user: %w", err)
	}

	if created {
		s.logger.Info("user registered", slog.String("email", email))
		return user, true, nil
	}

	// Returning visitor: reload the stored record so the response carries
	// the real role and profile, not what the client just sent.
	stored, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("loading user after sign-in: %w", err)
	}

	return stored, false, nil
}

// GetByEmail retrieves an account by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	return s.users.GetByEmail(ctx, email)
}

// UpdateProfile changes the caller's display name and photo. Email and role
// are immutable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, email, name, photo string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if strings.TrimSpace(name) == "" {
		return apperror.ValidationFailed("name", "name is required")
	}

	if err := s.users.UpdateProfile(ctx, email, name, photo); err != nil {
		return err
	}

	s.logger.Info("profile updated", slog.String("email", email))
	return nil
}

// ListTutors returns every account with the tutor role, for the public
// tutor directory.
func (s *UserService) ListTutors(ctx context.Context) ([]model.User, error) {
	tutors, err := s.users.ListByRole(ctx, model.RoleTutor)
	if err != nil {
		s.logger.Error("failed to list tutors", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tutors: %w", err)
	}

	return tutors, nil
}

// Search finds accounts by case-insensitive substring on name or email.
// An empty query returns an empty result rather than the whole table.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.User{}, nil
	}

	users, err := s.users.Search(ctx, query)
	if err != nil {
		s.logger.Error("failed to search users",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching users: %w", err)
	}

	return users, nil
}

// ChangeRole sets a user's role by record id. Admin-only at the handler
// layer; the role value itself is validated here.
func (s *UserService) ChangeRole(ctx context.Context, id string, role model.Role) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "user ID is required")
	}
	if !role.Valid() {
		return apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return err
	}

	s.logger.Info("user role changed",
		slog.String("id", id),
		slog.String("role", string(role)),
	)
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
)

// RoleResolver looks up the role recorded for an email. Implemented by the
// user repository; the guard is otherwise side-effect free.
type RoleResolver interface {
	RoleByEmail(ctx context.Context, email string) (model.Role, error)
}

// Guard composes the verified caller identity with the stored role into
// allow/deny decisions. Every mutating or sensitive-read operation runs one
// of these checks before touching storage.
type Guard struct {
	roles RoleResolver
}

func NewGuard(roles RoleResolver) *Guard {
	return &Guard{roles: roles}
}

// RequireSelf allows the operation only when the caller is acting on their
// own resources. Returns ErrForbidden on mismatch.
func (g *Guard) RequireSelf(ctx context.Context, targetEmail string) error {
	caller, ok := EmailFromContext(ctx)
	if !ok {
		return apperror.Unauthenticated("valid authentication required")
	}
	if caller != targetEmail {
		return apperror.Forbidden("forbidden access")
	}
	return nil
}

// RequireRole allows the operation only when the caller's stored role
// matches. An absent user record maps to Forbidden, not NotFound, so the
// response does not leak whether an account exists.
func (g *Guard) RequireRole(ctx context.Context, role model.Role) error {
	caller, ok := EmailFromContext(ctx)
	if !ok {
		return apperror.Unauthenticated("valid authentication required")
	}

	got, err := g.roles.RoleByEmail(ctx, caller)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Forbidden("forbidden access")
		}
		return fmt.Errorf("auth: resolving role for %s: %w", caller, err)
	}

	if got != role {
		return apperror.Forbidden("forbidden access")
	}
	return nil
}

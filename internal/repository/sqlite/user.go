package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository on the users table.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert creates the user on first sign-in, or refreshes last_login when
// the email is already known. Email is the identity key — the unique
// constraint makes repeated sign-ins idempotent.
func (u *UserStore) Upsert(ctx context.Context, user *model.User) (bool, error) {
	var existingID string
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, user.Email,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("sqlite: looking up user %s: %w", user.Email, err)
	}

	now := time.Now()

	if existingID != "" {
		user.ID = existingID
		user.LastLogin = now
		_, err = u.db.conn.ExecContext(ctx,
			`UPDATE users SET last_login = ? WHERE id = ?`,
			user.LastLogin, user.ID,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: refreshing last_login for %s: %w", user.Email, err)
		}
		return false, nil
	}

	user.ID = xid.New().String()
	if user.Role == "" {
		user.Role = model.RoleStudent
	}
	user.LastLogin = now
	user.CreatedAt = now

	_, err = u.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, photo, role, last_login, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.Photo, user.Role,
		user.LastLogin, user.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	return true, nil
}

// GetByEmail retrieves a user record. Returns apperror.ErrNotFound when no
// account exists for that email.
func (u *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User

	err := u.db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, photo, role, last_login, created_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Photo, &user.Role, &user.LastLogin, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}

	return &user, nil
}

// RoleByEmail is the lookup behind the authorization guard.
func (u *UserStore) RoleByEmail(ctx context.Context, email string) (model.Role, error) {
	var role model.Role

	err := u.db.conn.QueryRowContext(ctx,
		`SELECT role FROM users WHERE email = ?`, email,
	).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("user", email)
		}
		return "", fmt.Errorf("sqlite: getting role for %s: %w", email, err)
	}

	return role, nil
}

// UpdateProfile sets the self-service fields (name, photo).
func (u *UserStore) UpdateProfile(ctx context.Context, email, name, photo string) error {
	result, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, photo = ? WHERE email = ?`,
		name, photo, email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile for %s: %w", email, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", email)
	}

	return nil
}

// UpdateRole changes a user's role. Admin-only at the service layer.
func (u *UserStore) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating role for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// ListByRole returns all users holding the given role (e.g. the public
// tutor directory).
func (u *UserStore) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := u.db.conn.QueryContext(ctx,
		`SELECT id, email, name, photo, role, last_login, created_at
		 FROM users WHERE role = ? ORDER BY name`,
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users by role %s: %w", role, err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// Search matches users whose name or email contains the query,
// case-insensitive. An empty query returns everyone.
func (u *UserStore) Search(ctx context.Context, query string) ([]model.User, error) {
	pattern := "%" + query + "%"
	rows, err := u.db.conn.QueryContext(ctx,
		`SELECT id, email, name, photo, role, last_login, created_at
		 FROM users
		 WHERE name LIKE ? COLLATE NOCASE OR email LIKE ? COLLATE NOCASE
		 ORDER BY name`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users %q: %w", query, err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Photo, &u.Role, &u.LastLogin, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

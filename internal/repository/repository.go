// Package repository declares the storage interfaces the services depend
// on. The sqlite subpackage implements them; tests substitute in-memory
// mocks. Services never import a concrete storage package.
package repository

import (
	"context"

	"github.com/sakif/knowloop/internal/model"
)

// SessionFilter narrows a session listing. The zero value lists approved
// sessions only, matching the public default. All=true lists every status
// (admin-facing). TutorEmail restricts to one tutor's sessions.
type SessionFilter struct {
	TutorEmail string
	Status     model.SessionStatus
	All        bool
}

type UserRepository interface {
	// Upsert creates the user on first sign-in or refreshes last_login on
	// subsequent ones. Reports whether a new record was created.
	Upsert(ctx context.Context, user *model.User) (created bool, err error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	RoleByEmail(ctx context.Context, email string) (model.Role, error)
	UpdateProfile(ctx context.Context, email, name, photo string) error
	UpdateRole(ctx context.Context, id string, role model.Role) error
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	// Search matches name or email by case-insensitive substring.
	Search(ctx context.Context, query string) ([]model.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.StudySession) error
	GetByID(ctx context.Context, id string) (*model.StudySession, error)
	// List returns sessions ascending by registration start date.
	List(ctx context.Context, filter SessionFilter) ([]model.StudySession, error)
	// Approve sets status=approved and the admin-supplied fee in one
	// write, only while the session is pending. Reports false when the
	// conditional update matched no row (missing or not pending).
	Approve(ctx context.Context, id, fee string) (bool, error)
	// Reject sets status=rejected and records reason and feedback, only
	// while the session is pending.
	Reject(ctx context.Context, id, reason, feedback string) (bool, error)
	// MarkPending flips a rejected session back to pending. Reports false
	// when the session was not in the rejected state.
	MarkPending(ctx context.Context, id string) (bool, error)
	UpdateFee(ctx context.Context, id, fee string) error
	Delete(ctx context.Context, id string) error
	// AppendReview appends the review and recomputes the average rating in
	// a single transaction, returning the updated session.
	AppendReview(ctx context.Context, id string, review model.Review) (*model.StudySession, error)
}

type BookingRepository interface {
	// Create inserts a booking. Returns apperror.ErrConflict when the
	// (sessionID, studentEmail) pair is already booked.
	Create(ctx context.Context, booking *model.BookedSession) error
	GetBySessionAndStudent(ctx context.Context, sessionID, studentEmail string) (*model.BookedSession, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]model.BookedSession, error)
	// DeleteUnpaid removes the booking only while it is unpaid. Reports
	// whether a row was deleted; a paid booking is left untouched.
	DeleteUnpaid(ctx context.Context, sessionID, studentEmail string) (bool, error)
	// SetPaymentStatus updates the booking's payment status. Reports
	// whether a matching booking existed.
	SetPaymentStatus(ctx context.Context, sessionID, studentEmail string, status model.PaymentStatus) (bool, error)
}

type MaterialRepository interface {
	Create(ctx context.Context, material *model.Material) error
	GetByID(ctx context.Context, id string) (*model.Material, error)
	Update(ctx context.Context, id, title, link string) error
	Delete(ctx context.Context, id string) error
	// Listings are sorted newest-first by creation time.
	ListByTutor(ctx context.Context, tutorEmail string) ([]model.Material, error)
	ListAll(ctx context.Context) ([]model.Material, error)
	ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]model.Material, error)
}

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id string) (*model.Note, error)
	ListByEmail(ctx context.Context, email string) ([]model.Note, error)
	Update(ctx context.Context, id, title, description string) error
	Delete(ctx context.Context, id string) error
}

type TransactionRepository interface {
	// Create appends a ledger entry. Entries are never updated or deleted.
	Create(ctx context.Context, tx *model.Transaction) error
	// ListByStudent returns entries newest-first by date.
	ListByStudent(ctx context.Context, studentEmail string) ([]model.Transaction, error)
}

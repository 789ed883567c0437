package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

var _ repository.BookingRepository = (*BookingStore)(nil)

// BookingStore implements repository.BookingRepository on the
// booked_sessions table.
type BookingStore struct {
	db *DB
}

func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{db: db}
}

// Create inserts a booking. The unique index on (session_id, student_email)
// is the real duplicate guard — the service's pre-insert existence check is
// advisory, and a concurrent double-book loses here and surfaces as a
// Conflict.
func (b *BookingStore) Create(ctx context.Context, booking *model.BookedSession) error {
	booking.ID = xid.New().String()
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = model.PaymentUnpaid
	}
	booking.BookedAt = time.Now()

	_, err := b.db.conn.ExecContext(ctx,
		`INSERT INTO booked_sessions
		 (id, session_id, session_title, student_email, tutor_email, payment_status, booked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.SessionID, booking.SessionTitle,
		booking.StudentEmail, booking.TutorEmail, booking.PaymentStatus,
		booking.BookedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("session already booked")
		}
		return fmt.Errorf("sqlite: creating booking: %w", err)
	}

	return nil
}

// GetBySessionAndStudent looks up the booking for a (session, student)
// pair. Returns apperror.ErrNotFound when the student has no booking.
func (b *BookingStore) GetBySessionAndStudent(ctx context.Context, sessionID, studentEmail string) (*model.BookedSession, error) {
	var booking model.BookedSession

	err := b.db.conn.QueryRowContext(ctx,
		`SELECT id, session_id, session_title, student_email, tutor_email, payment_status, booked_at
		 FROM booked_sessions WHERE session_id = ? AND student_email = ?`,
		sessionID, studentEmail,
	).Scan(
		&booking.ID, &booking.SessionID, &booking.SessionTitle, &booking.StudentEmail,
		&booking.TutorEmail, &booking.PaymentStatus, &booking.BookedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("booking", sessionID)
		}
		return nil, fmt.Errorf("sqlite: getting booking %s/%s: %w", sessionID, studentEmail, err)
	}

	return &booking, nil
}

// ListByStudent returns all of a student's bookings, newest first.
func (b *BookingStore) ListByStudent(ctx context.Context, studentEmail string) ([]model.BookedSession, error) {
	rows, err := b.db.conn.QueryContext(ctx,
		`SELECT id, session_id, session_title, student_email, tutor_email, payment_status, booked_at
		 FROM booked_sessions WHERE student_email = ?
		 ORDER BY booked_at DESC`,
		studentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookings for %s: %w", studentEmail, err)
	}
	defer rows.Close()

	bookings := make([]model.BookedSession, 0)
	for rows.Next() {
		var b model.BookedSession
		if err := rows.Scan(
			&b.ID, &b.SessionID, &b.SessionTitle, &b.StudentEmail,
			&b.TutorEmail, &b.PaymentStatus, &b.BookedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookings: %w", err)
	}

	return bookings, nil
}

// DeleteUnpaid removes the booking only while it is unpaid. The payment
// guard lives in the WHERE clause so a paid booking is never deleted, even
// if payment confirmation races the cancellation.
func (b *BookingStore) DeleteUnpaid(ctx context.Context, sessionID, studentEmail string) (bool, error) {
	result, err := b.db.conn.ExecContext(ctx,
		`DELETE FROM booked_sessions
		 WHERE session_id = ? AND student_email = ? AND payment_status = ?`,
		sessionID, studentEmail, model.PaymentUnpaid,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: cancelling booking %s/%s: %w", sessionID, studentEmail, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// SetPaymentStatus updates the matching booking's payment status.
func (b *BookingStore) SetPaymentStatus(ctx context.Context, sessionID, studentEmail string, status model.PaymentStatus) (bool, error) {
	result, err := b.db.conn.ExecContext(ctx,
		`UPDATE booked_sessions SET payment_status = ?
		 WHERE session_id = ? AND student_email = ?`,
		status, sessionID, studentEmail,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating payment status %s/%s: %w", sessionID, studentEmail, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

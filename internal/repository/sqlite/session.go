package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore implements repository.SessionRepository on the sessions
// table, with reviews embedded as JSON.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, title, tutor_name, tutor_email, description,
	registration_start_date, registration_end_date, class_start_date,
	class_end_date, duration, fee, status, rejection_reason,
	rejection_feedback, reviews, average_rating, created_at`

// Create inserts a new session. The caller (the lifecycle engine) has
// already forced status=pending, fee default, and empty reviews.
func (s *SessionStore) Create(ctx context.Context, session *model.StudySession) error {
	session.ID = xid.New().String()
	session.CreatedAt = time.Now()

	reviewsJSON, err := json.Marshal(session.Reviews)
	if err != nil {
		return fmt.Errorf("sqlite: encoding reviews: %w", err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.TutorName, session.TutorEmail,
		session.Description, session.RegistrationStartDate,
		session.RegistrationEndDate, session.ClassStartDate,
		session.ClassEndDate, session.Duration, session.Fee, session.Status,
		session.RejectionReason, session.RejectionFeedback,
		string(reviewsJSON), session.AverageRating, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}

	return nil
}

// GetByID retrieves a session with its embedded reviews.
func (s *SessionStore) GetByID(ctx context.Context, id string) (*model.StudySession, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	)

	session, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	return session, nil
}

// List returns sessions ascending by registration start date (earliest
// registration first, ties in insertion order via rowid).
func (s *SessionStore) List(ctx context.Context, filter repository.SessionFilter) ([]model.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := make([]any, 0, 2)

	if filter.TutorEmail != "" {
		query += ` AND tutor_email = ?`
		args = append(args, filter.TutorEmail)
	}
	if !filter.All {
		status := filter.Status
		if status == "" {
			status = model.StatusApproved
		}
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY registration_start_date ASC, rowid ASC`

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.StudySession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning session row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating sessions: %w", err)
	}

	return sessions, nil
}

// Approve sets status=approved and the admin-supplied fee in one write.
// The pending guard in the WHERE clause keeps the state machine closed:
// only pending → approved is reachable.
func (s *SessionStore) Approve(ctx context.Context, id, fee string) (bool, error) {
	return s.transitionSession(ctx, id,
		`UPDATE sessions SET status = ?, fee = ? WHERE id = ? AND status = ?`,
		model.StatusApproved, fee, id, model.StatusPending,
	)
}

// Reject sets status=rejected and records the reason and feedback, only
// while the session is pending.
func (s *SessionStore) Reject(ctx context.Context, id, reason, feedback string) (bool, error) {
	return s.transitionSession(ctx, id,
		`UPDATE sessions
		 SET status = ?, rejection_reason = ?, rejection_feedback = ?
		 WHERE id = ? AND status = ?`,
		model.StatusRejected, reason, feedback, id, model.StatusPending,
	)
}

// MarkPending flips a rejected session back to pending. False means the
// session was missing or not rejected.
func (s *SessionStore) MarkPending(ctx context.Context, id string) (bool, error) {
	return s.transitionSession(ctx, id,
		`UPDATE sessions SET status = ?, rejection_reason = '', rejection_feedback = ''
		 WHERE id = ? AND status = ?`,
		model.StatusPending, id, model.StatusRejected,
	)
}

// transitionSession runs a conditional status UPDATE and reports whether a
// row matched. Keeping the status guard in the WHERE clause makes each
// transition atomic — two racing admins cannot produce an edge the state
// machine does not allow.
func (s *SessionStore) transitionSession(ctx context.Context, id, query string, args ...any) (bool, error) {
	result, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("sqlite: transitioning session %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateFee mutates the fee in place without touching status.
func (s *SessionStore) UpdateFee(ctx context.Context, id, fee string) error {
	return s.updateSession(ctx, id,
		`UPDATE sessions SET fee = ? WHERE id = ?`, fee, id,
	)
}

// Delete removes a session. Bookings referencing it become dangling and
// are denied by the access gate.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("session", id)
	}

	return nil
}

// AppendReview appends a review and recomputes the average rating inside a
// single transaction, so concurrent reviewers cannot lose each other's
// writes. The average is the mean over all ratings rounded to one decimal.
func (s *SessionStore) AppendReview(ctx context.Context, id string, review model.Review) (*model.StudySession, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning review transaction: %w", err)
	}
	defer tx.Rollback()

	var reviewsJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT reviews FROM sessions WHERE id = ?`, id,
	).Scan(&reviewsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: reading reviews for session %s: %w", id, err)
	}

	var reviews []model.Review
	if err := json.Unmarshal([]byte(reviewsJSON), &reviews); err != nil {
		return nil, fmt.Errorf("sqlite: decoding reviews for session %s: %w", id, err)
	}

	reviews = append(reviews, review)

	var total float64
	for _, r := range reviews {
		total += r.Rating
	}
	average := math.Round(total/float64(len(reviews))*10) / 10

	updated, err := json.Marshal(reviews)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding reviews for session %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET reviews = ?, average_rating = ? WHERE id = ?`,
		string(updated), average, id,
	); err != nil {
		return nil, fmt.Errorf("sqlite: updating reviews for session %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing review for session %s: %w", id, err)
	}

	return s.GetByID(ctx, id)
}

// updateSession runs an UPDATE and maps zero affected rows to NotFound.
func (s *SessionStore) updateSession(ctx context.Context, id, query string, args ...any) error {
	result, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating session %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("session", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.StudySession, error) {
	var s model.StudySession
	var reviewsJSON string

	err := row.Scan(
		&s.ID, &s.Title, &s.TutorName, &s.TutorEmail, &s.Description,
		&s.RegistrationStartDate, &s.RegistrationEndDate, &s.ClassStartDate,
		&s.ClassEndDate, &s.Duration, &s.Fee, &s.Status, &s.RejectionReason,
		&s.RejectionFeedback, &reviewsJSON, &s.AverageRating, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(reviewsJSON), &s.Reviews); err != nil {
		return nil, fmt.Errorf("decoding reviews for session %s: %w", s.ID, err)
	}

	return &s, nil
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

var _ repository.TransactionRepository = (*TransactionStore)(nil)

// TransactionStore implements repository.TransactionRepository on the
// transactions table. The ledger is append-only: there is deliberately no
// update or delete.
type TransactionStore struct {
	db *DB
}

func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (t *TransactionStore) Create(ctx context.Context, tx *model.Transaction) error {
	tx.ID = xid.New().String()
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}

	_, err := t.db.conn.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, student_email, session_id, session_title, amount, payment_ref, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.StudentEmail, tx.SessionID, tx.SessionTitle,
		tx.Amount, tx.PaymentRef, tx.Date,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording transaction: %w", err)
	}

	return nil
}

// ListByStudent returns a student's ledger entries newest-first.
func (t *TransactionStore) ListByStudent(ctx context.Context, studentEmail string) ([]model.Transaction, error) {
	rows, err := t.db.conn.QueryContext(ctx,
		`SELECT id, student_email, session_id, session_title, amount, payment_ref, date
		 FROM transactions WHERE student_email = ?
		 ORDER BY date DESC`,
		studentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions for %s: %w", studentEmail, err)
	}
	defer rows.Close()

	transactions := make([]model.Transaction, 0)
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.StudentEmail, &tx.SessionID, &tx.SessionTitle,
			&tx.Amount, &tx.PaymentRef, &tx.Date,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning transaction row: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating transactions: %w", err)
	}

	return transactions, nil
}

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

var _ repository.NoteRepository = (*NoteStore)(nil)

// NoteStore implements repository.NoteRepository on the notes table.
type NoteStore struct {
	db *DB
}

func NewNoteStore(db *DB) *NoteStore {
	return &NoteStore{db: db}
}

func (n *NoteStore) Create(ctx context.Context, note *model.Note) error {
	note.ID = xid.New().String()
	note.CreatedAt = time.Now()

	_, err := n.db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, email, title, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		note.ID, note.Email, note.Title, note.Description, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	return nil
}

func (n *NoteStore) GetByID(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note

	err := n.db.conn.QueryRowContext(ctx,
		`SELECT id, email, title, description, created_at FROM notes WHERE id = ?`,
		id,
	).Scan(&note.ID, &note.Email, &note.Title, &note.Description, &note.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", id, err)
	}

	return &note, nil
}

func (n *NoteStore) ListByEmail(ctx context.Context, email string) ([]model.Note, error) {
	rows, err := n.db.conn.QueryContext(ctx,
		`SELECT id, email, title, description, created_at
		 FROM notes WHERE email = ? ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes for %s: %w", email, err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var note model.Note
		if err := rows.Scan(
			&note.ID, &note.Email, &note.Title, &note.Description, &note.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

func (n *NoteStore) Update(ctx context.Context, id, title, description string) error {
	result, err := n.db.conn.ExecContext(ctx,
		`UPDATE notes SET title = ?, description = ? WHERE id = ?`,
		title, description, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}

func (n *NoteStore) Delete(ctx context.Context, id string) error {
	result, err := n.db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}

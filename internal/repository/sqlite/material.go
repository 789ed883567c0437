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

var _ repository.MaterialRepository = (*MaterialStore)(nil)

// MaterialStore implements repository.MaterialRepository on the materials
// table.
type MaterialStore struct {
	db *DB
}

func NewMaterialStore(db *DB) *MaterialStore {
	return &MaterialStore{db: db}
}

const materialColumns = `id, session_id, tutor_email, title, link, created_at`

func (m *MaterialStore) Create(ctx context.Context, material *model.Material) error {
	material.ID = xid.New().String()
	material.CreatedAt = time.Now()

	_, err := m.db.conn.ExecContext(ctx,
		`INSERT INTO materials (`+materialColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		material.ID, material.SessionID, material.TutorEmail,
		material.Title, material.Link, material.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating material: %w", err)
	}

	return nil
}

func (m *MaterialStore) GetByID(ctx context.Context, id string) (*model.Material, error) {
	var material model.Material

	err := m.db.conn.QueryRowContext(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = ?`, id,
	).Scan(&material.ID, &material.SessionID, &material.TutorEmail,
		&material.Title, &material.Link, &material.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("material", id)
		}
		return nil, fmt.Errorf("sqlite: getting material %s: %w", id, err)
	}

	return &material, nil
}

func (m *MaterialStore) Update(ctx context.Context, id, title, link string) error {
	result, err := m.db.conn.ExecContext(ctx,
		`UPDATE materials SET title = ?, link = ? WHERE id = ?`,
		title, link, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating material %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("material", id)
	}

	return nil
}

func (m *MaterialStore) Delete(ctx context.Context, id string) error {
	result, err := m.db.conn.ExecContext(ctx, `DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting material %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("material", id)
	}

	return nil
}

func (m *MaterialStore) ListByTutor(ctx context.Context, tutorEmail string) ([]model.Material, error) {
	rows, err := m.db.conn.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials
		 WHERE tutor_email = ? ORDER BY created_at DESC`,
		tutorEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing materials for %s: %w", tutorEmail, err)
	}
	defer rows.Close()

	return scanMaterials(rows)
}

func (m *MaterialStore) ListAll(ctx context.Context) ([]model.Material, error) {
	rows, err := m.db.conn.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing all materials: %w", err)
	}
	defer rows.Close()

	return scanMaterials(rows)
}

// ListBySessionIDs returns materials for the given sessions, newest first.
// Used by the access gate after it has filtered a student's bookings.
func (m *MaterialStore) ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]model.Material, error) {
	if len(sessionIDs) == 0 {
		return []model.Material{}, nil
	}

	placeholders := strings.Repeat("?,", len(sessionIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}

	rows, err := m.db.conn.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials
		 WHERE session_id IN (`+placeholders+`)
		 ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing materials by sessions: %w", err)
	}
	defer rows.Close()

	return scanMaterials(rows)
}

func scanMaterials(rows *sql.Rows) ([]model.Material, error) {
	materials := make([]model.Material, 0)
	for rows.Next() {
		var m model.Material
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.TutorEmail, &m.Title, &m.Link, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning material row: %w", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating materials: %w", err)
	}
	return materials, nil
}

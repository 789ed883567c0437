// Package sqlite implements the repository interfaces on SQLite via the
// pure-Go modernc.org/sqlite driver (no CGo, cross-compiles cleanly).
//
// Six collections back the marketplace: users, sessions, booked_sessions,
// materials, notes, transactions. Reviews live embedded on the session row
// as a JSON column so an append and the recomputed average commit together.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB pool and implements every repository interface. The
// server owns the lifecycle: opened at startup, closed on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens the database, applies pragmas, and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Flushes the WAL and releases the file
// lock; always deferred next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				email      TEXT NOT NULL UNIQUE,
				name       TEXT NOT NULL DEFAULT '',
				photo      TEXT NOT NULL DEFAULT '',
				role       TEXT NOT NULL DEFAULT 'student',
				last_login DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
		`},
		{"sessions", `
			CREATE TABLE IF NOT EXISTS sessions (
				id                      TEXT PRIMARY KEY,
				title                   TEXT NOT NULL,
				tutor_name              TEXT NOT NULL DEFAULT '',
				tutor_email             TEXT NOT NULL,
				description             TEXT NOT NULL DEFAULT '',
				registration_start_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				registration_end_date   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				class_start_date        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				class_end_date          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				duration                TEXT NOT NULL DEFAULT '',
				fee                     TEXT NOT NULL DEFAULT '0',
				status                  TEXT NOT NULL DEFAULT 'pending',
				rejection_reason        TEXT NOT NULL DEFAULT '',
				rejection_feedback      TEXT NOT NULL DEFAULT '',
				reviews                 TEXT NOT NULL DEFAULT '[]',
				average_rating          REAL NOT NULL DEFAULT 0,
				created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
			CREATE INDEX IF NOT EXISTS idx_sessions_tutor_email ON sessions(tutor_email);
			CREATE INDEX IF NOT EXISTS idx_sessions_reg_start ON sessions(registration_start_date);
		`},
		{"booked_sessions", `
			CREATE TABLE IF NOT EXISTS booked_sessions (
				id             TEXT PRIMARY KEY,
				session_id     TEXT NOT NULL,
				session_title  TEXT NOT NULL DEFAULT '',
				student_email  TEXT NOT NULL,
				tutor_email    TEXT NOT NULL DEFAULT '',
				payment_status TEXT NOT NULL DEFAULT 'unpaid',
				booked_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_session_student
				ON booked_sessions(session_id, student_email);
			CREATE INDEX IF NOT EXISTS idx_bookings_student ON booked_sessions(student_email);
		`},
		{"materials", `
			CREATE TABLE IF NOT EXISTS materials (
				id          TEXT PRIMARY KEY,
				session_id  TEXT NOT NULL,
				tutor_email TEXT NOT NULL,
				title       TEXT NOT NULL,
				link        TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_materials_session ON materials(session_id);
			CREATE INDEX IF NOT EXISTS idx_materials_tutor ON materials(tutor_email);
		`},
		{"notes", `
			CREATE TABLE IF NOT EXISTS notes (
				id          TEXT PRIMARY KEY,
				email       TEXT NOT NULL,
				title       TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_notes_email ON notes(email);
		`},
		{"transactions", `
			CREATE TABLE IF NOT EXISTS transactions (
				id            TEXT PRIMARY KEY,
				student_email TEXT NOT NULL,
				session_id    TEXT NOT NULL,
				session_title TEXT NOT NULL DEFAULT '',
				amount        TEXT NOT NULL,
				payment_ref   TEXT NOT NULL DEFAULT '',
				date          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_student_date
				ON transactions(student_email, date);
		`},
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", stmt.name, err)
		}
	}

	return nil
}

package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/trivia-journey/game/session/migrations"
)

// SQLitePersistence implements SessionPersistence on a single SQLite table
type SQLitePersistence struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLitePersistence opens (or creates) the database at path and applies
// the schema migrations
func NewSQLitePersistence(path string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases live per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLitePersistence{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts a snapshot row
func (sp *SQLitePersistence) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if !validID(snap.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, snap.ID)
	}

	payload, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = sp.db.Exec(`
		INSERT INTO session_snapshots (id, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		snap.ID, string(payload), snap.CreatedAt.UTC(), sp.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load reads and decodes a snapshot row
func (sp *SQLitePersistence) Load(id string) (*Snapshot, error) {
	var payload string
	err := sp.db.QueryRow(`SELECT payload FROM session_snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap, err := DecodeSnapshot([]byte(payload), sp.now())
	if err != nil {
		return nil, err
	}
	snap.ID = id
	snap.State.SessionID = id
	return snap, nil
}

// Delete removes a snapshot row
func (sp *SQLitePersistence) Delete(id string) error {
	res, err := sp.db.Exec(`DELETE FROM session_snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs, most recently saved first
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM session_snapshots ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return ids, nil
}

// Exists checks if a snapshot row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM session_snapshots WHERE id = ?`, id).Scan(&one)
	return err == nil
}

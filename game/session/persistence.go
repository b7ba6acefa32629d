package session

// SessionPersistence defines the interface for persisting session snapshots
type SessionPersistence interface {
	// Save persists a snapshot, replacing any previous one with the same ID
	Save(snap *Snapshot) error

	// Load retrieves a snapshot by ID. A missing snapshot fails with
	// ErrSessionNotFound, an unreadable one with ErrPersistenceCorrupt.
	Load(id string) (*Snapshot, error)

	// Delete removes a snapshot
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a snapshot exists in storage
	Exists(id string) bool
}

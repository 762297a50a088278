// Package store persists conversation state as flat key-value documents
// backed by SQLite. Each key holds one JSON document: the full session
// collection, the settings record, and the provider credential. A schema
// version row is checked at open time and migrations run before any read.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/clearway-ai/chat-gateway/internal/model"
)

const (
	// SchemaVersion is the current on-disk schema version.
	SchemaVersion = 1

	keySessions = "chat_sessions"
	keySettings = "chat_settings"
	keyAPIKey   = "provider_api_key"
)

// Store is the persistent key-value store.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path, creates the schema if needed
// and runs any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS schema_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version int
	err := s.db.Get(&version, "SELECT version FROM schema_meta WHERE id = 1")
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database, stamp the current version.
		if _, err := s.db.Exec("INSERT INTO schema_meta (id, version) VALUES (1, ?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to stamp schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > SchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if version < SchemaVersion {
		if err := s.migrate(version); err != nil {
			return err
		}
	}
	return nil
}

// migrate upgrades the on-disk schema from the given version to
// SchemaVersion, one step at a time.
func (s *Store) migrate(from int) error {
	for v := from; v < SchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("no migration from schema version %d", v)
		}
		if err := step(s.db); err != nil {
			return fmt.Errorf("migration from version %d failed: %w", v, err)
		}
		if _, err := s.db.Exec("UPDATE schema_meta SET version = ? WHERE id = 1", v+1); err != nil {
			return fmt.Errorf("failed to advance schema version: %w", err)
		}
	}
	return nil
}

// migrations maps a schema version to the step that upgrades it to the next
// one. Version 1 is the first versioned layout, so the map starts empty.
var migrations = map[int]func(*sqlx.DB) error{}

func (s *Store) getDoc(key string, v any) (bool, error) {
	var raw string
	err := s.db.Get(&raw, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putDoc(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	query := "INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := s.db.Exec(query, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteKey(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetSessions returns all persisted sessions, empty when none exist.
func (s *Store) GetSessions() ([]model.Session, error) {
	var sessions []model.Session
	if _, err := s.getDoc(keySessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveSessions replaces the persisted session collection.
func (s *Store) SaveSessions(sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	return s.putDoc(keySessions, sessions)
}

// SaveSession upserts one session within the collection.
func (s *Store) SaveSession(session model.Session) error {
	sessions, err := s.GetSessions()
	if err != nil {
		return err
	}
	found := false
	for i := range sessions {
		if sessions[i].ID == session.ID {
			sessions[i] = session
			found = true
			break
		}
	}
	if !found {
		sessions = append(sessions, session)
	}
	return s.SaveSessions(sessions)
}

// DeleteSession removes one session from the collection.
func (s *Store) DeleteSession(id string) error {
	sessions, err := s.GetSessions()
	if err != nil {
		return err
	}
	remaining := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			remaining = append(remaining, sess)
		}
	}
	return s.SaveSessions(remaining)
}

// DeleteAllSessions clears the persisted session collection.
func (s *Store) DeleteAllSessions() error {
	return s.SaveSessions(nil)
}

// GetSettings returns the persisted settings, or defaults when none exist.
func (s *Store) GetSettings() (model.Settings, error) {
	settings := model.DefaultSettings()
	if _, err := s.getDoc(keySettings, &settings); err != nil {
		return model.Settings{}, err
	}
	if settings.ContextWindow <= 0 {
		settings.ContextWindow = model.DefaultContextWindow
	}
	return settings, nil
}

// SaveSettings persists the settings record.
func (s *Store) SaveSettings(settings model.Settings) error {
	return s.putDoc(keySettings, settings)
}

// GetAPIKey returns the stored provider credential, empty when unset.
func (s *Store) GetAPIKey() (string, error) {
	var key string
	if _, err := s.getDoc(keyAPIKey, &key); err != nil {
		return "", err
	}
	return key, nil
}

// SaveAPIKey stores the provider credential.
func (s *Store) SaveAPIKey(key string) error {
	return s.putDoc(keyAPIKey, key)
}

// RemoveAPIKey deletes the stored provider credential.
func (s *Store) RemoveAPIKey() error {
	return s.deleteKey(keyAPIKey)
}

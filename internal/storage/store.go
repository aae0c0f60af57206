// Package storage persists rooms and their combat snapshots in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// RoomRow represents a room in the database.
type RoomRow struct {
	ID        string
	CreatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			id         TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			room_id        TEXT PRIMARY KEY REFERENCES rooms(id),
			schema_version INTEGER NOT NULL,
			state_json     TEXT NOT NULL,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// CreateRoom inserts a new room.
func (s *Store) CreateRoom(id string) error {
	_, err := s.db.Exec("INSERT INTO rooms (id) VALUES (?)", id)
	return err
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(id string) (*RoomRow, error) {
	row := s.db.QueryRow("SELECT id, created_at FROM rooms WHERE id = ?", id)
	var rr RoomRow
	if err := row.Scan(&rr.ID, &rr.CreatedAt); err != nil {
		return nil, err
	}
	return &rr, nil
}

// ListRooms returns all rooms, newest first.
func (s *Store) ListRooms() ([]RoomRow, error) {
	rows, err := s.db.Query("SELECT id, created_at FROM rooms ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []RoomRow
	for rows.Next() {
		var rr RoomRow
		if err := rows.Scan(&rr.ID, &rr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rr)
	}
	return result, rows.Err()
}

// SaveSnapshot upserts the serialized session state for a room.
func (s *Store) SaveSnapshot(roomID string, schemaVersion int, stateJSON []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (room_id, schema_version, state_json, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`, roomID, schemaVersion, string(stateJSON))
	return err
}

// GetSnapshot retrieves the serialized session state for a room.
func (s *Store) GetSnapshot(roomID string) ([]byte, error) {
	var stateJSON string
	err := s.db.QueryRow("SELECT state_json FROM snapshots WHERE room_id = ?", roomID).Scan(&stateJSON)
	if err != nil {
		return nil, err
	}
	return []byte(stateJSON), nil
}

// DeleteRoom removes a room and its snapshot.
func (s *Store) DeleteRoom(id string) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE room_id = ?", id)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("DELETE FROM rooms WHERE id = ?", id)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

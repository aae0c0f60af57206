package room

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arena/internal/command"
	"arena/internal/game"
	"arena/internal/storage"
)

// ErrRoomNotFound is returned for unknown room ids. An unknown id is an
// error, never a silently fabricated room.
var ErrRoomNotFound = errors.New("room not found")

// DefaultGrace is how long a lobby slot stays reserved for a
// connection-lost player before it is freed.
const DefaultGrace = 5 * time.Second

// Manager owns all active rooms.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	store  *storage.Store
	router *command.Router
	log    zerolog.Logger

	tick  time.Duration // flow simulated second
	grace time.Duration // lobby connection-lost grace
}

// NewManager creates a room manager.
func NewManager(store *storage.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		store:  store,
		router: command.NewRouter(),
		log:    logger,
		tick:   time.Second,
		grace:  DefaultGrace,
	}
}

// SetTimers overrides the flow tick and the connection-lost grace period.
// Tests shrink both.
func (m *Manager) SetTimers(tick, grace time.Duration) {
	m.tick = tick
	m.grace = grace
}

// Create makes a new room and persists it with an initial snapshot.
func (m *Manager) Create(cfg game.Config) (*Room, error) {
	id := generateCode()
	if err := m.store.CreateRoom(id); err != nil {
		return nil, fmt.Errorf("persist room: %w", err)
	}
	sess := game.NewSession(id, cfg)
	r := New(sess, m.router, m.persistRoom, m.tick, m.log)
	if err := m.saveSnapshot(r); err != nil {
		if derr := m.store.DeleteRoom(id); derr != nil {
			m.log.Error().Err(derr).Str("room", id).Msg("roll back room row")
		}
		return nil, fmt.Errorf("snapshot room: %w", err)
	}
	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()
	return r, nil
}

// Get returns a room by id.
func (m *Manager) Get(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return r, nil
}

// Info summarizes a room for the lobby listing.
type Info struct {
	ID        string     `json:"id"`
	PlayerNum int        `json:"playerNum"`
	Occupied  int        `json:"occupied"`
	Phase     game.Phase `json:"phase"`
	InCombat  bool       `json:"inCombat"`
}

// List returns info for all active rooms.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.rooms))
	for _, r := range m.rooms {
		r.Locked(func(g *game.Session) {
			occupied := 0
			for _, slot := range g.Slots {
				if slot.Occupy != game.Empty {
					occupied++
				}
			}
			infos = append(infos, Info{
				ID:        g.ID,
				PlayerNum: g.Config.PlayerNum,
				Occupied:  occupied,
				Phase:     g.Phase,
				InCombat:  g.InCombat,
			})
		})
	}
	return infos
}

// Remove deletes a room from memory and storage, stopping its flow.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if ok {
		r.StopFlow()
	}
	if err := m.store.DeleteRoom(id); err != nil {
		m.log.Error().Err(err).Str("room", id).Msg("delete room")
	}
}

// Restore loads rooms from the database on startup.
func (m *Manager) Restore() error {
	rows, err := m.store.ListRooms()
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	for _, row := range rows {
		data, err := m.store.GetSnapshot(row.ID)
		if errors.Is(err, sql.ErrNoRows) {
			m.log.Warn().Str("room", row.ID).Msg("skipping room: no snapshot")
			continue
		}
		if err != nil {
			return fmt.Errorf("load snapshot %s: %w", row.ID, err)
		}
		sess, err := game.RestoreSession(data)
		if err != nil {
			m.log.Warn().Err(err).Str("room", row.ID).Msg("skipping room: bad snapshot")
			continue
		}
		r := New(sess, m.router, m.persistRoom, m.tick, m.log)
		m.mu.Lock()
		m.rooms[row.ID] = r
		m.mu.Unlock()
	}
	return nil
}

// SaveAll snapshots every room; called on shutdown.
func (m *Manager) SaveAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rooms {
		m.persistRoom(r)
	}
}

// SweepLoop periodically clears expired connection-lost slots across all
// rooms until ctx is cancelled.
func (m *Manager) SweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			rooms := make([]*Room, 0, len(m.rooms))
			for _, r := range m.rooms {
				rooms = append(rooms, r)
			}
			m.mu.RUnlock()
			for _, r := range rooms {
				r.SweepExpired(m.grace)
			}
		}
	}
}

func (m *Manager) persistRoom(r *Room) {
	if err := m.saveSnapshot(r); err != nil {
		m.log.Error().Err(err).Str("room", r.ID).Msg("save snapshot")
	}
}

func (m *Manager) saveSnapshot(r *Room) error {
	var data []byte
	var err error
	r.Locked(func(g *game.Session) {
		data, err = g.Snapshot()
	})
	if err != nil {
		return err
	}
	return m.store.SaveSnapshot(r.ID, game.SnapshotSchemaVersion, data)
}

func generateCode() string {
	b := make([]byte, 3) // 6 hex chars
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()[:6]
	}
	return hex.EncodeToString(b)
}

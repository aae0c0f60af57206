package game

import (
	"encoding/json"
	"fmt"

	"arena/internal/board"
)

// SnapshotSchemaVersion guards forward compatibility of persisted state.
// Bump it whenever the snapshot shape changes.
const SnapshotSchemaVersion = 1

// Snapshot is the explicit persistence schema for a session, decoupled
// from the in-memory representation.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	ID            string         `json:"id"`
	Config        Config         `json:"config"`
	Phase         Phase          `json:"phase"`
	Round         int            `json:"round"`
	InCombat      bool           `json:"in_combat"`
	Slots         []slotSnapshot `json:"slots"`
}

type slotSnapshot struct {
	Index     int        `json:"index"`
	Info      *UserInfo  `json:"info,omitempty"`
	Character *Character `json:"character,omitempty"`
	Team      int        `json:"team"`
	Occupy    int        `json:"occupy"`
	HP        int        `json:"hp"`
	Pos       string     `json:"pos,omitempty"`
}

// Snapshot serializes the session for persistence.
func (g *Session) Snapshot() ([]byte, error) {
	snap := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		ID:            g.ID,
		Config:        g.Config,
		Phase:         g.Phase,
		Round:         g.Round,
		InCombat:      g.InCombat,
		Slots:         make([]slotSnapshot, len(g.Slots)),
	}
	for i, slot := range g.Slots {
		ss := slotSnapshot{
			Index:     slot.Index,
			Info:      slot.Info,
			Character: slot.Character,
			Team:      slot.Team,
			Occupy:    int(slot.Occupy),
			HP:        slot.HP,
		}
		if slot.Pos != nil {
			ss.Pos = slot.Pos.String()
		}
		snap.Slots[i] = ss
	}
	return json.Marshal(snap)
}

// RestoreSession rebuilds a session from a snapshot. Bots come back ready;
// humans must confirm readiness again after a restart.
func RestoreSession(data []byte) (*Session, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d not supported", snap.SchemaVersion)
	}
	g := NewSession(snap.ID, snap.Config)
	g.Phase = snap.Phase
	g.Round = snap.Round
	g.InCombat = snap.InCombat
	for _, ss := range snap.Slots {
		if ss.Index < 0 || ss.Index >= len(g.Slots) {
			return nil, fmt.Errorf("snapshot slot index %d out of range", ss.Index)
		}
		slot := &PlayerSlot{
			Index:     ss.Index,
			Info:      ss.Info,
			Character: ss.Character,
			Team:      ss.Team,
			Occupy:    OccupyState(ss.Occupy),
			HP:        ss.HP,
		}
		if ss.Pos != "" {
			cell, err := board.Parse(ss.Pos)
			if err != nil {
				return nil, fmt.Errorf("snapshot slot %d: %w", ss.Index, err)
			}
			slot.Pos = &cell
		}
		slot.Ready = slot.IsBot()
		g.Slots[ss.Index] = slot
	}
	return g, nil
}

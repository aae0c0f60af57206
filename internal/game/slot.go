package game

import (
	"fmt"
	"strings"
	"time"

	"arena/internal/board"
)

// OccupyState is the tri-state occupancy of a slot.
type OccupyState int

const (
	Empty OccupyState = iota
	Occupied
	ConnectionLost
)

func (o OccupyState) String() string {
	switch o {
	case Empty:
		return "empty"
	case Occupied:
		return "occupied"
	case ConnectionLost:
		return "connection-lost"
	default:
		return "unknown"
	}
}

// UserInfo identifies the human or bot holding a slot.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsBot bool   `json:"isBot,omitempty"`
}

// PlayerSlot is a fixed, index-addressed seat in a room. Index is its
// identity and never changes; everything else tracks the occupant.
type PlayerSlot struct {
	Index     int         `json:"index"`
	Info      *UserInfo   `json:"info"`
	Character *Character  `json:"character"`
	Ready     bool        `json:"ready"`
	Team      int         `json:"team"` // 0=white, 1=blue
	Occupy    OccupyState `json:"occupy"`
	HP        int         `json:"hp"`
	Pos       *board.Cell `json:"pos"`

	// At most one pending declaration per round, overwritten on resubmission.
	Action *Action `json:"-"`
}

// IsBot reports whether the slot is held by a bot.
func (s *PlayerSlot) IsBot() bool {
	if s.Info == nil {
		return false
	}
	return s.Info.IsBot || strings.HasPrefix(s.Info.ID, "bot_")
}

// Participant reports whether the slot takes part in combat: it has a
// character and is not empty. Connection-lost slots stay in the fight.
func (s *PlayerSlot) Participant() bool {
	return s.Occupy != Empty && s.Character != nil
}

func emptySlot(idx int) *PlayerSlot {
	return &PlayerSlot{Index: idx}
}

// teamFor derives a slot's team from its position: the first half of the
// slots is team 1 (blue), the second half team 0 (white). Fixed for the
// slot, not the occupant.
func teamFor(slotIdx, playerNum int) int {
	if slotIdx < playerNum/2 {
		return 1
	}
	return 0
}

// AddPlayer fills a slot with a human identity. Idempotent for the owner:
// rejoining an occupied or connection-lost slot with the same identity
// succeeds, the latter restoring the slot and clearing its grace timer.
func (g *Session) AddPlayer(slotIdx int, info UserInfo) error {
	slot, err := g.slot(slotIdx)
	if err != nil {
		return err
	}
	sameUser := slot.Info != nil && slot.Info.ID == info.ID

	switch slot.Occupy {
	case Occupied:
		if sameUser {
			return nil
		}
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotOccupied)
	case ConnectionLost:
		if sameUser {
			slot.Occupy = Occupied
			delete(g.LostSince, slotIdx)
			return nil
		}
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotReserved)
	}

	ch := DefaultCharacter()
	g.Slots[slotIdx] = &PlayerSlot{
		Index:     slotIdx,
		Info:      &info,
		Character: &ch,
		Ready:     false,
		Team:      teamFor(slotIdx, g.Config.PlayerNum),
		Occupy:    Occupied,
		HP:        ch.BaseHP,
	}
	delete(g.LostSince, slotIdx)
	return nil
}

// AddBot fills an empty slot with a bot. Bots are always ready.
func (g *Session) AddBot(slotIdx int) error {
	slot, err := g.slot(slotIdx)
	if err != nil {
		return err
	}
	if slot.Occupy != Empty {
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotOccupied)
	}
	ch := BotCharacter(slotIdx)
	g.Slots[slotIdx] = &PlayerSlot{
		Index:     slotIdx,
		Info:      &UserInfo{ID: fmt.Sprintf("bot_%d", slotIdx+1), Name: ch.Name, IsBot: true},
		Character: &ch,
		Ready:     true,
		Team:      teamFor(slotIdx, g.Config.PlayerNum),
		Occupy:    Occupied,
		HP:        ch.BaseHP,
	}
	delete(g.LostSince, slotIdx)
	return nil
}

// RemovePlayer resets a slot to empty.
func (g *Session) RemovePlayer(slotIdx int) error {
	slot, err := g.slot(slotIdx)
	if err != nil {
		return err
	}
	if slot.Occupy == Empty {
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotEmpty)
	}
	g.Slots[slotIdx] = emptySlot(slotIdx)
	delete(g.LostSince, slotIdx)
	return nil
}

// SetConnectionLost marks a slot connection-lost, forces ready off and
// records the timestamp for the grace sweep.
func (g *Session) SetConnectionLost(slotIdx int) error {
	slot, err := g.slot(slotIdx)
	if err != nil {
		return err
	}
	if slot.Occupy == Empty {
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotEmpty)
	}
	slot.Occupy = ConnectionLost
	slot.Ready = false
	g.LostSince[slotIdx] = g.now()
	return nil
}

// ClearExpiredConnectionLost empties every slot whose connection-lost
// timestamp is at least duration old. Mid-combat the grace period is
// unlimited: removing a participant would corrupt turn bookkeeping, so
// nothing is cleared while InCombat is set. Returns the cleared indices.
func (g *Session) ClearExpiredConnectionLost(duration time.Duration) []int {
	if g.InCombat {
		return nil
	}
	now := g.now()
	var cleared []int
	for idx, since := range g.LostSince {
		if now.Sub(since) < duration {
			continue
		}
		if g.Slots[idx].Occupy == ConnectionLost {
			g.Slots[idx] = emptySlot(idx)
			cleared = append(cleared, idx)
		}
		delete(g.LostSince, idx)
	}
	return cleared
}

// SetReady toggles the ready flag. Only the owning, non-bot identity may
// do so, and only while the slot is occupied or connection-lost.
func (g *Session) SetReady(slotIdx int, userID string, ready bool) error {
	slot, err := g.slot(slotIdx)
	if err != nil {
		return err
	}
	if slot.Info == nil || slot.Info.ID != userID {
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrNotSlotOwner)
	}
	if slot.Occupy == Empty {
		return fmt.Errorf("slot %d: %w", slotIdx+1, ErrSlotEmpty)
	}
	if slot.IsBot() {
		return ErrBotAlwaysReady
	}
	slot.Ready = ready
	return nil
}

// AllReady reports whether every slot is occupied with a character and
// either ready or a bot. This is the sole gate for kickoff.
func (g *Session) AllReady() bool {
	for _, slot := range g.Slots {
		if slot.Occupy != Occupied || slot.Character == nil {
			return false
		}
		if !slot.IsBot() && !slot.Ready {
			return false
		}
	}
	return true
}

// SlotByUserID returns the slot index held by a user, or -1.
func (g *Session) SlotByUserID(userID string) int {
	for _, slot := range g.Slots {
		if slot.Info != nil && slot.Info.ID == userID {
			return slot.Index
		}
	}
	return -1
}

func (g *Session) slot(idx int) (*PlayerSlot, error) {
	if idx < 0 || idx >= len(g.Slots) {
		return nil, fmt.Errorf("slot %d: %w", idx+1, ErrInvalidSlot)
	}
	return g.Slots[idx], nil
}

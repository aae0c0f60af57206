// Package game implements the combat session: slot lifecycle, the phase
// state machine and the action declaration/resolution engine for one room.
//
// A Session is not safe for concurrent use; the room layer serializes all
// access behind its mutex.
package game

import (
	"errors"
	"math/rand"
	"time"
)

var (
	ErrInvalidSlot    = errors.New("invalid slot")
	ErrSlotOccupied   = errors.New("slot is already occupied")
	ErrSlotReserved   = errors.New("slot is reserved for a reconnecting player")
	ErrSlotEmpty      = errors.New("slot is empty")
	ErrNotSlotOwner   = errors.New("you don't own this slot")
	ErrBotAlwaysReady = errors.New("bots are always ready")
	ErrNotParticipant = errors.New("combat commands are for combat participants only")
	ErrWrongPhase     = errors.New("command not available in the current phase")
)

// Phase is one state of the combat flow.
type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhasePosition    Phase = "position_declaration"
	PhaseAction      Phase = "action_declaration"
	PhaseResolution  Phase = "resolution"
	PhaseWrapUp      Phase = "wrap_up"
)

// Config is the per-session tuning passed at construction.
type Config struct {
	PlayerNum int `json:"playerNum"` // 4 to 8
	OffsetSec int `json:"offsetSec"` // pre-phase countdown
	PhaseSec  int `json:"phaseSec"`  // declaration input window
	MaxRounds int `json:"maxRounds"`
}

// DefaultConfig mirrors the defaults the lobby creates rooms with.
func DefaultConfig() Config {
	return Config{PlayerNum: 4, OffsetSec: 3, PhaseSec: 10, MaxRounds: 100}
}

func (c Config) normalized() Config {
	if c.PlayerNum < 4 {
		c.PlayerNum = 4
	}
	if c.PlayerNum > 8 {
		c.PlayerNum = 8
	}
	if c.OffsetSec <= 0 {
		c.OffsetSec = 3
	}
	if c.PhaseSec <= 0 {
		c.PhaseSec = 10
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 100
	}
	return c
}

// Session is the combat state for one room: the slots, the board occupancy
// implied by them, and the phase bookkeeping the flow runner advances.
type Session struct {
	ID     string
	Config Config

	Slots     []*PlayerSlot
	Phase     Phase
	Round     int
	InCombat  bool
	LostSince map[int]time.Time

	rng *rand.Rand
	now func() time.Time
}

// NewSession creates a session with empty slots in the preparation phase.
func NewSession(id string, cfg Config) *Session {
	cfg = cfg.normalized()
	g := &Session{
		ID:        id,
		Config:    cfg,
		Phase:     PhasePreparation,
		LostSince: make(map[int]time.Time),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	g.Slots = make([]*PlayerSlot, cfg.PlayerNum)
	for i := range g.Slots {
		g.Slots[i] = emptySlot(i)
	}
	return g
}

// SeedRNG replaces the session's random source. Tests use this to make
// shuffles and butting relocations reproducible.
func (g *Session) SeedRNG(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// SetClock replaces the session's time source for tests.
func (g *Session) SetClock(now func() time.Time) {
	g.now = now
}

// CheckDefeat reports which team is fully defeated: every occupied slot on
// that team has HP <= 0. ok is false when both teams still have a
// survivor, or when neither side has any participants.
func (g *Session) CheckDefeat() (team int, ok bool) {
	alive := [2]bool{}
	present := [2]bool{}
	for _, slot := range g.Slots {
		if slot.Occupy != Occupied || slot.Character == nil {
			continue
		}
		present[slot.Team] = true
		if slot.HP > 0 {
			alive[slot.Team] = true
		}
	}
	switch {
	case present[0] && !alive[0]:
		return 0, true
	case present[1] && !alive[1]:
		return 1, true
	}
	return 0, false
}

// SlotView is the wire form of one slot for players_list broadcasts.
type SlotView struct {
	Index     int        `json:"index"`
	Info      *UserInfo  `json:"info"`
	Character *Character `json:"character"`
	Ready     bool       `json:"ready"`
	Team      int        `json:"team"`
	Occupy    string     `json:"occupy"`
	HP        int        `json:"hp"`
	Pos       string     `json:"pos,omitempty"`
}

// View renders the slots for broadcast.
func (g *Session) View() []SlotView {
	views := make([]SlotView, len(g.Slots))
	for i, slot := range g.Slots {
		v := SlotView{
			Index:     slot.Index,
			Info:      slot.Info,
			Character: slot.Character,
			Ready:     slot.Ready,
			Team:      slot.Team,
			Occupy:    slot.Occupy.String(),
			HP:        slot.HP,
		}
		if slot.Pos != nil {
			v.Pos = slot.Pos.String()
		}
		views[i] = v
	}
	return views
}

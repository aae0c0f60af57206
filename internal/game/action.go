package game

import "arena/internal/board"

// ActionKind is the sealed set of declarations a participant can make.
type ActionKind string

const (
	KindPosition ActionKind = "position"
	KindAttack   ActionKind = "attack"
	KindSkill    ActionKind = "skill"
)

// Attack types a participant can declare during an action phase.
const (
	AttackMelee  = "melee"
	AttackRanged = "ranged"
	AttackStay   = "stay"
)

// Action is one declaration for the current round. A later submission for
// the same slot silently replaces the earlier one.
type Action struct {
	SlotIndex   int         `json:"slotIndex"`
	Round       int         `json:"round"`
	Kind        ActionKind  `json:"kind"`
	Destination *board.Cell `json:"destination,omitempty"`
	AttackType  string      `json:"attackType,omitempty"`
	Skill       string      `json:"skill,omitempty"`
	Target      string      `json:"target,omitempty"`
	// Priority ordering is not computed yet; 0 means undecided and ties
	// are shuffled at resolution.
	Priority int  `json:"priority"`
	Resolved bool `json:"resolved"`
}

// Submit upserts a declaration for its slot. Resubmission within a round
// replaces the pending action without error.
func (g *Session) Submit(a Action) {
	a.Round = g.Round
	slot := g.Slots[a.SlotIndex]
	slot.Action = &a
}

// ClearActions drops every pending declaration. Called on entry to each
// action declaration phase.
func (g *Session) ClearActions() {
	for _, slot := range g.Slots {
		slot.Action = nil
	}
}

// SubmissionFlag is one entry of the public, content-free submission
// status broadcast: which slots have declared this round, never what.
type SubmissionFlag struct {
	SlotIndex int  `json:"slotIndex"`
	Submitted bool `json:"submitted"`
}

// SubmissionStatus reports the per-slot submitted flags for broadcast.
func (g *Session) SubmissionStatus() []SubmissionFlag {
	flags := make([]SubmissionFlag, len(g.Slots))
	for i, slot := range g.Slots {
		flags[i] = SubmissionFlag{SlotIndex: i, Submitted: slot.Action != nil}
	}
	return flags
}

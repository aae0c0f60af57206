package game

import (
	"fmt"
	"sort"

	"arena/internal/board"
)

// AutoFillPositions synthesizes a destination for every combat participant
// that has not declared one: a random cell in the slot's own team zone.
// Collisions with other declarations are left for ResolvePositions.
func (g *Session) AutoFillPositions() {
	for _, slot := range g.Slots {
		if !slot.Participant() {
			continue
		}
		if slot.Action != nil && slot.Action.Destination != nil {
			continue
		}
		cell, ok := board.RandomZoneCell(g.rng, slot.Team, nil)
		if !ok {
			continue
		}
		g.Submit(Action{SlotIndex: slot.Index, Kind: KindPosition, Destination: &cell})
	}
}

// AutoFillActions gives every participant without a declaration a "stay"
// action so resolution always covers the full roster.
func (g *Session) AutoFillActions() {
	for _, slot := range g.Slots {
		if !slot.Participant() || slot.Action != nil {
			continue
		}
		g.Submit(Action{SlotIndex: slot.Index, Kind: KindAttack, AttackType: AttackStay})
	}
}

// resolutionOrder returns the participants' pending actions in acting
// order. With every priority at 0 the order is shuffled uniformly so an
// unpopulated priority model doesn't bias ties toward low slot indices;
// otherwise higher priority acts first.
func (g *Session) resolutionOrder() []*Action {
	var actions []*Action
	allZero := true
	for _, slot := range g.Slots {
		if !slot.Participant() || slot.Action == nil {
			continue
		}
		if slot.Action.Priority != 0 {
			allZero = false
		}
		actions = append(actions, slot.Action)
	}
	if allZero {
		g.rng.Shuffle(len(actions), func(i, j int) {
			actions[i], actions[j] = actions[j], actions[i]
		})
		return actions
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
	return actions
}

// ResolvePositions commits every declared (or auto-filled) destination to
// the slots' positions, resolving butting collisions. After it returns no
// two participants share a cell and every participant stands inside its
// own team zone. Each step yields a narration line for broadcast.
func (g *Session) ResolvePositions() []string {
	claimed := make(map[board.Cell]bool)
	var lines []string

	for _, action := range g.resolutionOrder() {
		slot := g.Slots[action.SlotIndex]
		action.Resolved = true
		if action.Destination == nil {
			continue
		}
		dest := *action.Destination

		if !claimed[dest] {
			claimed[dest] = true
			slot.Pos = &dest
			lines = append(lines, fmt.Sprintf("%s takes position %s.", g.slotName(slot), dest))
			continue
		}

		// Butting: the cell is contested. Relocate to a random free
		// adjacent cell inside the mover's own zone, falling back to any
		// free cell in the zone.
		moved, ok := g.relocate(dest, slot.Team, claimed)
		if !ok {
			lines = append(lines, fmt.Sprintf("%s found no free cell near %s and holds back.", g.slotName(slot), dest))
			continue
		}
		claimed[moved] = true
		slot.Pos = &moved
		lines = append(lines, fmt.Sprintf("%s butts heads at %s and is pushed to %s.", g.slotName(slot), dest, moved))
	}
	return lines
}

func (g *Session) relocate(contested board.Cell, team int, claimed map[board.Cell]bool) (board.Cell, bool) {
	var candidates []board.Cell
	for _, n := range contested.Neighbors() {
		if n.Team() == team && !claimed[n] {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) > 0 {
		return candidates[g.rng.Intn(len(candidates))], true
	}
	return board.RandomZoneCell(g.rng, team, claimed)
}

// ResolveActions processes the round's declared actions in acting order.
// Damage, skill effects and priority math are not in yet, so resolution
// narrates the declarations and marks them resolved.
func (g *Session) ResolveActions() []string {
	var lines []string
	for _, action := range g.resolutionOrder() {
		slot := g.Slots[action.SlotIndex]
		action.Resolved = true
		switch {
		case action.Kind == KindSkill:
			lines = append(lines, fmt.Sprintf("%s uses %s.", g.slotName(slot), action.Skill))
		case action.AttackType == AttackStay:
			lines = append(lines, fmt.Sprintf("%s holds position.", g.slotName(slot)))
		default:
			lines = append(lines, fmt.Sprintf("%s declares a %s attack.", g.slotName(slot), action.AttackType))
		}
	}
	return lines
}

func (g *Session) slotName(slot *PlayerSlot) string {
	if slot.Info != nil && slot.Info.Name != "" {
		return slot.Info.Name
	}
	if slot.Character != nil && slot.Character.Name != "" {
		return slot.Character.Name
	}
	return fmt.Sprintf("Slot %d", slot.Index+1)
}

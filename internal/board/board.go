// Package board holds the pure coordinate math for the 4x4 combat grid.
//
// Rows are labeled Y(0), X(1), A(2), B(3); columns are 1-4 (0-based
// internally). Rows Y and X belong to team 1, rows A and B to team 0.
// X and A face each other as the front rows.
package board

import (
	"fmt"
	"math/rand"
)

const (
	Rows = 4
	Cols = 4
)

var rowLabels = [Rows]byte{'Y', 'X', 'A', 'B'}

// Cell is one grid square, stored as 0-based row/column.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Parse converts a position string like "X2" into a Cell.
func Parse(pos string) (Cell, error) {
	if len(pos) != 2 {
		return Cell{}, fmt.Errorf("invalid position %q", pos)
	}
	row := -1
	for i, label := range rowLabels {
		if pos[0] == label {
			row = i
			break
		}
	}
	col := int(pos[1] - '1')
	if row < 0 || col < 0 || col >= Cols {
		return Cell{}, fmt.Errorf("invalid position %q", pos)
	}
	return Cell{Row: row, Col: col}, nil
}

// String renders a Cell back into its label form, e.g. "A3".
func (c Cell) String() string {
	if !c.InBounds() {
		return "??"
	}
	return fmt.Sprintf("%c%d", rowLabels[c.Row], c.Col+1)
}

// InBounds reports whether the cell lies on the grid.
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Rows && c.Col >= 0 && c.Col < Cols
}

// Team returns the team that owns the cell's row band: rows Y/X are
// team 1, rows A/B are team 0.
func (c Cell) Team() int {
	if c.Row <= 1 {
		return 1
	}
	return 0
}

// FrontRow reports whether the cell sits on a front row (X or A).
func (c Cell) FrontRow() bool {
	return c.Row == 1 || c.Row == 2
}

// BackRow reports whether the cell sits on a back row (Y or B).
func (c Cell) BackRow() bool {
	return c.Row == 0 || c.Row == 3
}

// Neighbors returns the 8-neighbor adjacency of a cell, bounded to the grid.
func (c Cell) Neighbors() []Cell {
	out := make([]Cell, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Cell{Row: c.Row + dr, Col: c.Col + dc}
			if n.InBounds() {
				out = append(out, n)
			}
		}
	}
	return out
}

// TeamZone enumerates the 8 cells of a team's row band.
func TeamZone(team int) []Cell {
	start := 2
	if team == 1 {
		start = 0
	}
	cells := make([]Cell, 0, 2*Cols)
	for r := start; r < start+2; r++ {
		for c := 0; c < Cols; c++ {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	return cells
}

// FreeZoneCells enumerates the cells of a team's zone that are not claimed.
func FreeZoneCells(team int, claimed map[Cell]bool) []Cell {
	var free []Cell
	for _, c := range TeamZone(team) {
		if !claimed[c] {
			free = append(free, c)
		}
	}
	return free
}

// RandomZoneCell picks a uniformly random cell from a team's zone that is
// not claimed. Returns false when the zone is full.
func RandomZoneCell(rng *rand.Rand, team int, claimed map[Cell]bool) (Cell, bool) {
	free := FreeZoneCells(team, claimed)
	if len(free) == 0 {
		return Cell{}, false
	}
	return free[rng.Intn(len(free))], true
}

// CheckMove validates a single-step move: Chebyshev distance 1, destination
// inside the mover's own team zone, destination unoccupied.
func CheckMove(from, to Cell, team int, occupied map[Cell]bool) error {
	if !to.InBounds() {
		return fmt.Errorf("%s is off the board", to)
	}
	rd, cd := from.Row-to.Row, from.Col-to.Col
	if rd < 0 {
		rd = -rd
	}
	if cd < 0 {
		cd = -cd
	}
	if rd > 1 || cd > 1 {
		return fmt.Errorf("%s is too far from %s", to, from)
	}
	if rd == 0 && cd == 0 {
		return fmt.Errorf("already at %s", to)
	}
	if to.Team() != team {
		return fmt.Errorf("%s belongs to the other team", to)
	}
	if occupied[to] {
		return fmt.Errorf("%s is already taken", to)
	}
	return nil
}

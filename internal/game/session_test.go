package game

import "testing"

func TestNewSessionDefaults(t *testing.T) {
	g := NewSession("room1", Config{})
	if len(g.Slots) != 4 {
		t.Fatalf("slots = %d, want 4", len(g.Slots))
	}
	if g.Phase != PhasePreparation {
		t.Fatalf("phase = %s, want preparation", g.Phase)
	}
	if g.InCombat || g.Round != 0 {
		t.Fatal("fresh session must be out of combat at round 0")
	}
	for i, slot := range g.Slots {
		if slot.Index != i {
			t.Fatalf("slot %d has index %d", i, slot.Index)
		}
		if slot.Occupy != Empty {
			t.Fatalf("slot %d not empty", i)
		}
	}
}

func TestConfigClamping(t *testing.T) {
	g := NewSession("x", Config{PlayerNum: 12})
	if g.Config.PlayerNum != 8 {
		t.Fatalf("playerNum = %d, want clamped to 8", g.Config.PlayerNum)
	}
	g = NewSession("x", Config{PlayerNum: 2})
	if g.Config.PlayerNum != 4 {
		t.Fatalf("playerNum = %d, want clamped to 4", g.Config.PlayerNum)
	}
}

func TestCheckDefeat(t *testing.T) {
	g := combatSession(t)

	// Both teams alive: no decision.
	if _, ok := g.CheckDefeat(); ok {
		t.Fatal("no team should be defeated yet")
	}

	// Scenario: all of team 0 reaches 0 HP while team 1 has a survivor;
	// team 0 is defeated.
	g.Slots[2].HP = 0
	g.Slots[3].HP = 0
	team, ok := g.CheckDefeat()
	if !ok || team != 0 {
		t.Fatalf("defeat = (%d, %v), want (0, true)", team, ok)
	}

	// Connection-lost slots don't count toward survival.
	g.Slots[2].HP = 100
	g.Slots[2].Occupy = ConnectionLost
	team, ok = g.CheckDefeat()
	if !ok || team != 0 {
		t.Fatalf("defeat = (%d, %v), want (0, true) ignoring lost slot", team, ok)
	}
}

func TestCheckDefeatEmptyBoard(t *testing.T) {
	g := newTestSession()
	if _, ok := g.CheckDefeat(); ok {
		t.Fatal("an empty room has no defeated team")
	}
}

func TestView(t *testing.T) {
	g := combatSession(t)
	g.Slots[0].Pos = cell(t, "X1")
	views := g.View()
	if len(views) != 4 {
		t.Fatalf("views = %d, want 4", len(views))
	}
	if views[0].Pos != "X1" {
		t.Fatalf("view pos = %q, want X1", views[0].Pos)
	}
	if views[1].Pos != "" {
		t.Fatalf("view pos = %q, want empty", views[1].Pos)
	}
	if views[2].Occupy != "occupied" {
		t.Fatalf("occupy = %q, want occupied", views[2].Occupy)
	}
}

package game

import (
	"errors"
	"testing"
	"time"
)

func newTestSession() *Session {
	g := NewSession("test", Config{PlayerNum: 4})
	g.SeedRNG(1)
	return g
}

func user(id string) UserInfo {
	return UserInfo{ID: id, Name: id}
}

func TestAddPlayer(t *testing.T) {
	g := newTestSession()
	if err := g.AddPlayer(0, user("alice")); err != nil {
		t.Fatalf("add player: %v", err)
	}
	slot := g.Slots[0]
	if slot.Occupy != Occupied {
		t.Fatalf("occupy = %v, want occupied", slot.Occupy)
	}
	if slot.Ready {
		t.Fatal("new player must not be ready")
	}
	if slot.Character == nil {
		t.Fatal("expected a character template")
	}
	if slot.HP != slot.Character.BaseHP {
		t.Fatalf("hp = %d, want base %d", slot.HP, slot.Character.BaseHP)
	}
}

func TestAddPlayerTeams(t *testing.T) {
	// First half of the slots is team 1, second half team 0.
	g := newTestSession()
	for i := 0; i < 4; i++ {
		if err := g.AddPlayer(i, user(string(rune('a'+i)))); err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
	}
	wantTeams := []int{1, 1, 0, 0}
	for i, want := range wantTeams {
		if g.Slots[i].Team != want {
			t.Fatalf("slot %d team = %d, want %d", i, g.Slots[i].Team, want)
		}
	}
}

func TestAddPlayerOccupied(t *testing.T) {
	g := newTestSession()
	g.AddPlayer(0, user("alice"))

	if err := g.AddPlayer(0, user("bob")); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}
	// Same identity is an idempotent no-op.
	if err := g.AddPlayer(0, user("alice")); err != nil {
		t.Fatalf("rejoin own slot: %v", err)
	}
}

func TestReconnectRestoresSlot(t *testing.T) {
	g := newTestSession()
	g.AddPlayer(0, user("alice"))
	if err := g.SetConnectionLost(0); err != nil {
		t.Fatalf("set connection lost: %v", err)
	}
	if g.Slots[0].Occupy != ConnectionLost {
		t.Fatalf("occupy = %v, want connection-lost", g.Slots[0].Occupy)
	}
	if g.Slots[0].Ready {
		t.Fatal("ready must be forced off on connection loss")
	}
	if _, ok := g.LostSince[0]; !ok {
		t.Fatal("expected a grace timestamp")
	}

	// A stranger cannot take a reserved slot.
	if err := g.AddPlayer(0, user("bob")); !errors.Is(err, ErrSlotReserved) {
		t.Fatalf("expected ErrSlotReserved, got %v", err)
	}
	// The owner reconnects; the grace timer is cleared.
	if err := g.AddPlayer(0, user("alice")); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if g.Slots[0].Occupy != Occupied {
		t.Fatalf("occupy = %v, want occupied", g.Slots[0].Occupy)
	}
	if _, ok := g.LostSince[0]; ok {
		t.Fatal("grace timestamp must be cleared on reconnect")
	}
}

func TestAddBot(t *testing.T) {
	g := newTestSession()
	if err := g.AddBot(2); err != nil {
		t.Fatalf("add bot: %v", err)
	}
	slot := g.Slots[2]
	if !slot.IsBot() {
		t.Fatal("expected a bot")
	}
	if !slot.Ready {
		t.Fatal("bots are always ready")
	}
	if slot.Info.ID != "bot_3" {
		t.Fatalf("bot id = %q, want bot_3", slot.Info.ID)
	}
	if err := g.AddBot(2); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}
}

func TestRemovePlayer(t *testing.T) {
	g := newTestSession()
	g.AddPlayer(0, user("alice"))
	if err := g.RemovePlayer(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if g.Slots[0].Occupy != Empty {
		t.Fatal("slot should be empty after removal")
	}
	if err := g.RemovePlayer(0); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", err)
	}
}

func TestSetConnectionLostEmptySlot(t *testing.T) {
	g := newTestSession()
	if err := g.SetConnectionLost(0); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", err)
	}
}

func TestSetReady(t *testing.T) {
	g := newTestSession()
	g.AddPlayer(0, user("alice"))

	if err := g.SetReady(0, "bob", true); !errors.Is(err, ErrNotSlotOwner) {
		t.Fatalf("expected ErrNotSlotOwner, got %v", err)
	}
	if err := g.SetReady(0, "alice", true); err != nil {
		t.Fatalf("set ready: %v", err)
	}
	if !g.Slots[0].Ready {
		t.Fatal("expected ready")
	}

	g.AddBot(1)
	if err := g.SetReady(1, "bot_2", false); !errors.Is(err, ErrBotAlwaysReady) {
		t.Fatalf("expected ErrBotAlwaysReady, got %v", err)
	}
}

func TestAllReady(t *testing.T) {
	g := newTestSession()
	if g.AllReady() {
		t.Fatal("empty room must not be all-ready")
	}
	g.AddPlayer(0, user("alice"))
	g.AddPlayer(1, user("bob"))
	g.AddBot(2)
	g.AddBot(3)
	if g.AllReady() {
		t.Fatal("humans not ready yet")
	}
	g.SetReady(0, "alice", true)
	g.SetReady(1, "bob", true)
	if !g.AllReady() {
		t.Fatal("expected all-ready")
	}
	// Flipping any one non-bot slot breaks the gate.
	g.SetReady(1, "bob", false)
	if g.AllReady() {
		t.Fatal("not all-ready after unready")
	}
	g.SetReady(1, "bob", true)
	// A connection-lost slot also breaks it.
	g.SetConnectionLost(0)
	if g.AllReady() {
		t.Fatal("not all-ready with a connection-lost slot")
	}
}

func TestClearExpiredConnectionLostInLobby(t *testing.T) {
	// Scenario: slot loses connection pre-combat; after the grace period
	// with no rejoin, the slot is reset to empty.
	g := newTestSession()
	now := time.Now()
	g.SetClock(func() time.Time { return now })

	g.AddPlayer(2, user("carol"))
	g.SetConnectionLost(2)

	if cleared := g.ClearExpiredConnectionLost(5 * time.Second); len(cleared) != 0 {
		t.Fatalf("cleared %v before grace elapsed", cleared)
	}

	now = now.Add(5 * time.Second)
	cleared := g.ClearExpiredConnectionLost(5 * time.Second)
	if len(cleared) != 1 || cleared[0] != 2 {
		t.Fatalf("cleared = %v, want [2]", cleared)
	}
	if g.Slots[2].Occupy != Empty {
		t.Fatal("slot should be empty after grace expiry")
	}
	if len(g.LostSince) != 0 {
		t.Fatal("grace timers should be gone")
	}
}

func TestClearExpiredConnectionLostInCombat(t *testing.T) {
	// Scenario: mid-combat the grace period is unlimited; the slot stays
	// connection-lost however long the player is gone.
	g := newTestSession()
	now := time.Now()
	g.SetClock(func() time.Time { return now })

	g.AddPlayer(2, user("carol"))
	g.InCombat = true
	g.SetConnectionLost(2)

	now = now.Add(30 * time.Second)
	if cleared := g.ClearExpiredConnectionLost(5 * time.Second); len(cleared) != 0 {
		t.Fatalf("cleared %v during combat", cleared)
	}
	if g.Slots[2].Occupy != ConnectionLost {
		t.Fatal("slot must stay connection-lost during combat")
	}
}

func TestSlotByUserID(t *testing.T) {
	g := newTestSession()
	g.AddPlayer(1, user("alice"))
	if idx := g.SlotByUserID("alice"); idx != 1 {
		t.Fatalf("idx = %d, want 1", idx)
	}
	if idx := g.SlotByUserID("nobody"); idx != -1 {
		t.Fatalf("idx = %d, want -1", idx)
	}
}

func TestInvalidSlotIndex(t *testing.T) {
	g := newTestSession()
	if err := g.AddPlayer(-1, user("alice")); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if err := g.AddPlayer(4, user("alice")); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"arena/internal/game"
	"arena/internal/room"
	"arena/internal/storage"
)

// setupTestEnv spins up a full server over an in-memory store.
func setupTestEnv(t *testing.T) (*httptest.Server, *room.Manager) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := room.NewManager(store, zerolog.Nop())
	mgr.SetTimers(time.Millisecond, 50*time.Millisecond)
	ts := httptest.NewServer(New(mgr, zerolog.Nop()))
	t.Cleanup(ts.Close)
	return ts, mgr
}

func wsURL(ts *httptest.Server, roomID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/rooms/" + roomID + "/ws"
}

// dialAndJoin opens a websocket, performs the join handshake and returns
// the connection along with the guest identity the server issued.
func dialAndJoin(t *testing.T, ctx context.Context, ts *httptest.Server, roomID, name string) (*websocket.Conn, game.UserInfo) {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(ts, roomID), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	payload, _ := json.Marshal(joinPayload{Name: name})
	env, _ := json.Marshal(room.Envelope{Type: "join", Payload: payload})
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		t.Fatalf("send join: %v", err)
	}

	welcome := waitForEnvelope(t, ctx, conn, "welcome")
	var wp welcomePayload
	if err := json.Unmarshal(welcome.Payload, &wp); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	return conn, wp.User
}

// dialAndRejoin opens a websocket reusing a previously issued identity,
// the way a returning player reclaims their slot.
func dialAndRejoin(t *testing.T, ctx context.Context, ts *httptest.Server, roomID string, user game.UserInfo) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(ts, roomID), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	payload, _ := json.Marshal(joinPayload{Name: user.Name, ID: user.ID})
	env, _ := json.Marshal(room.Envelope{Type: "join", Payload: payload})
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		t.Fatalf("send join: %v", err)
	}

	welcome := waitForEnvelope(t, ctx, conn, "welcome")
	var wp welcomePayload
	if err := json.Unmarshal(welcome.Payload, &wp); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if wp.User.ID != user.ID {
		t.Fatalf("server issued %q, want the supplied identity %q", wp.User.ID, user.ID)
	}
	return conn
}

// waitForSlot polls one slot until cond holds.
func waitForSlot(t *testing.T, rm *room.Room, idx int, cond func(*game.PlayerSlot) bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ok := false
		rm.Locked(func(g *game.Session) { ok = cond(g.Slots[idx]) })
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func sendChat(t *testing.T, ctx context.Context, conn *websocket.Conn, content string) {
	t.Helper()
	payload, _ := json.Marshal(chatPayload{Content: content})
	env, _ := json.Marshal(room.Envelope{Type: "chat", Payload: payload})
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		t.Fatalf("send chat: %v", err)
	}
}

func readEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn) room.Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env room.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

// waitForEnvelope reads frames until one of the given type arrives.
func waitForEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) room.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for {
		env := readEnvelope(t, ctx, conn)
		if env.Type == msgType {
			return env
		}
	}
}

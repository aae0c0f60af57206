package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"arena/internal/game"
	"arena/internal/room"
)

type joinPayload struct {
	Name string `json:"name"`
	// ID, when set, is a previously issued guest identity. Reusing it lets
	// a returning player reclaim their connection-lost slot.
	ID string `json:"id,omitempty"`
}

type welcomePayload struct {
	User game.UserInfo `json:"user"`
	Room string        `json:"room"`
}

type chatPayload struct {
	Content string `json:"content"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rm, err := s.manager.Get(id)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		s.log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()

	// First message must be a join; it binds a guest identity to the
	// connection. OAuth identities would plug in here.
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg room.Envelope
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendWSError(ctx, conn, "first message must be a join")
		return
	}
	var join joinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.Name == "" {
		sendWSError(ctx, conn, "invalid join payload")
		return
	}

	userID := join.ID
	if userID == "" {
		userID = "guest_" + uuid.NewString()
	}
	user := game.UserInfo{ID: userID, Name: join.Name}
	clientID := uuid.NewString()
	send := make(chan []byte, 64)

	welcome, _ := json.Marshal(welcomePayload{User: user, Room: rm.ID})
	env, _ := json.Marshal(room.Envelope{Type: "welcome", Payload: welcome})
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		return
	}

	rm.Attach(clientID, user, send)
	defer rm.Detach(clientID)

	// Writer goroutine: drain room events to the socket. A write failure
	// just ends this connection; the room prunes it via Detach.
	go func() {
		for data := range send {
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}()

	// Reader loop
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg room.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSError(ctx, conn, "invalid message")
			continue
		}
		switch msg.Type {
		case "chat":
			var cp chatPayload
			if err := json.Unmarshal(msg.Payload, &cp); err != nil {
				sendWSError(ctx, conn, "invalid chat payload")
				continue
			}
			rm.HandleChat(user, cp.Content)
		default:
			sendWSError(ctx, conn, "unknown message type: "+msg.Type)
		}
	}

	s.log.Info().Str("room", id).Str("user", user.ID).Msg("connection closed")
}

func sendWSError(ctx context.Context, conn *websocket.Conn, message string) {
	p, _ := json.Marshal(errorPayload{Message: message})
	msg, _ := json.Marshal(room.Envelope{Type: "error", Payload: p})
	conn.Write(ctx, websocket.MessageText, msg)
}

// Package room ties one combat session to its connections: it serializes
// all session access behind a mutex, fans events out to every client, and
// supervises the single phase-flow task.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arena/internal/command"
	"arena/internal/game"
)

// Envelope is the JSON wire form of every event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type client struct {
	id   string
	user game.UserInfo
	send chan []byte
}

// Room owns one session. The session mutex closes the race between
// command handlers and the flow task: both mutate only while holding it.
type Room struct {
	ID string

	mu      sync.Mutex // guards session
	session *game.Session

	cmu     sync.RWMutex // guards clients
	clients map[string]*client

	router *command.Router

	flowMu      sync.Mutex
	flowRunning bool
	flowCancel  context.CancelFunc

	persist func(*Room)
	tick    time.Duration
	log     zerolog.Logger
}

// New creates a room around a session. persist may be nil; it is invoked
// for the kickoff snapshot.
func New(sess *game.Session, router *command.Router, persist func(*Room), tick time.Duration, logger zerolog.Logger) *Room {
	if tick <= 0 {
		tick = time.Second
	}
	return &Room{
		ID:      sess.ID,
		session: sess,
		clients: make(map[string]*client),
		router:  router,
		persist: persist,
		tick:    tick,
		log:     logger.With().Str("room", sess.ID).Logger(),
	}
}

// Locked runs fn with exclusive access to the session. Tests and the
// manager use it; fn must not call back into the room.
func (r *Room) Locked(fn func(*game.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.session)
}

// Attach registers a connection's outbound channel under a client id.
func (r *Room) Attach(clientID string, user game.UserInfo, send chan []byte) {
	r.cmu.Lock()
	r.clients[clientID] = &client{id: clientID, user: user, send: send}
	r.cmu.Unlock()
	r.broadcastRoster()
}

// Detach removes a connection. If its user holds a slot and no other
// connection of theirs remains, the slot goes connection-lost rather than
// empty, preserving mid-combat bookkeeping.
func (r *Room) Detach(clientID string) {
	r.cmu.Lock()
	c, ok := r.clients[clientID]
	if !ok {
		r.cmu.Unlock()
		return
	}
	delete(r.clients, clientID)
	// Closing under the write lock: Event sends hold the read lock, so no
	// send can race the close. Ends the connection's writer goroutine.
	close(c.send)
	stillHere := false
	for _, other := range r.clients {
		if other.user.ID == c.user.ID {
			stillHere = true
			break
		}
	}
	r.cmu.Unlock()
	if stillHere {
		return
	}

	changed := false
	r.mu.Lock()
	if idx := r.session.SlotByUserID(c.user.ID); idx >= 0 {
		if err := r.session.SetConnectionLost(idx); err == nil {
			changed = true
		}
	}
	r.mu.Unlock()
	if changed {
		r.log.Info().Str("user", c.user.ID).Msg("player connection lost")
		r.broadcastRoster()
	}
}

// Event implements game.Notifier. Chat payloads tagged secret or error go
// only to the connections of their target user; everything else is
// room-wide. Slow clients drop the message rather than block the flow.
func (r *Room) Event(msgType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("event", msgType).Msg("marshal event")
		return
	}
	data, _ := json.Marshal(Envelope{Type: msgType, Payload: body})

	var target string
	if chat, ok := payload.(game.ChatPayload); ok {
		if (chat.Sort == game.SortSecret || chat.Sort == game.SortError) && chat.UserID != "" {
			target = chat.UserID
		}
	}

	r.cmu.RLock()
	defer r.cmu.RUnlock()
	for _, c := range r.clients {
		if target != "" && c.user.ID != target {
			continue
		}
		select {
		case c.send <- data:
		default:
			// drop message if buffer full
		}
	}
}

// HandleChat processes one chat-style input from a user: plain text is
// echoed to the room, slash commands are dispatched to the router. The
// sender gets a private acknowledgement or error; the room only ever sees
// the content-free submission status.
func (r *Room) HandleChat(user game.UserInfo, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	name, args, isCommand := command.Parse(content)
	if !isCommand {
		r.Event(game.EventChat, game.ChatPayload{
			Content: content,
			Sender:  user.Name,
			Sort:    game.SortUser,
		})
		return
	}

	ctx := &command.Context{
		User: user,
		Raw:  content,
		Name: name,
		Args: args,
	}
	r.mu.Lock()
	ctx.Session = r.session
	res, err := r.router.Dispatch(ctx)
	r.mu.Unlock()

	if err != nil {
		msg := err.Error()
		if errors.Is(err, command.ErrUnknownCommand) {
			msg = "Unknown command. Try again."
		}
		r.Event(game.EventChat, game.ChatPayload{Content: msg, Sort: game.SortError, UserID: user.ID})
		return
	}

	if res.Private != "" {
		r.Event(game.EventChat, game.ChatPayload{
			Content: res.Private,
			Sender:  user.Name,
			Sort:    game.SortSecret,
			UserID:  user.ID,
		})
	}
	if res.Public != "" {
		r.Event(game.EventChat, game.ChatPayload{Content: res.Public, Sort: game.SortSystem})
	}
	if res.SubmissionChanged {
		r.broadcastSubmissions()
	}
	if res.RosterChanged {
		r.broadcastRoster()
		r.TriggerFlow()
	}
}

// TriggerFlow starts the phase-flow task when the kickoff gate holds and
// no flow is already running. Concurrent triggers are no-ops.
func (r *Room) TriggerFlow() {
	r.mu.Lock()
	ready := r.session.AllReady() && !r.session.InCombat
	r.mu.Unlock()
	if !ready {
		return
	}

	r.flowMu.Lock()
	defer r.flowMu.Unlock()
	if r.flowRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.flowRunning = true
	r.flowCancel = cancel

	flow := game.NewFlow(r.session, game.FlowDeps{
		Locker: &r.mu,
		Notify: r,
		Tick:   r.tick,
		Persist: func() {
			if r.persist != nil {
				r.persist(r)
			}
		},
	})

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				// Committed phase state stays consistent; the flow simply
				// stops until the next trigger.
				r.log.Error().Interface("panic", rec).Msg("phase flow panicked")
			}
			r.flowMu.Lock()
			r.flowRunning = false
			r.flowCancel = nil
			r.flowMu.Unlock()
		}()
		if err := flow.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Msg("phase flow failed")
		}
	}()
}

// StopFlow cancels a running flow task, if any.
func (r *Room) StopFlow() {
	r.flowMu.Lock()
	defer r.flowMu.Unlock()
	if r.flowCancel != nil {
		r.flowCancel()
	}
}

// FlowRunning reports whether a flow task is active.
func (r *Room) FlowRunning() bool {
	r.flowMu.Lock()
	defer r.flowMu.Unlock()
	return r.flowRunning
}

// SweepExpired clears connection-lost slots older than grace (lobby only;
// mid-combat slots are never swept) and broadcasts the roster on change.
func (r *Room) SweepExpired(grace time.Duration) bool {
	r.mu.Lock()
	cleared := r.session.ClearExpiredConnectionLost(grace)
	r.mu.Unlock()
	if len(cleared) == 0 {
		return false
	}
	r.log.Info().Ints("slots", cleared).Msg("cleared expired connection-lost slots")
	r.broadcastRoster()
	return true
}

func (r *Room) broadcastRoster() {
	r.mu.Lock()
	views := r.session.View()
	r.mu.Unlock()
	r.Event(game.EventPlayersList, struct {
		Players []game.SlotView `json:"players"`
	}{views})
}

func (r *Room) broadcastSubmissions() {
	r.mu.Lock()
	flags := r.session.SubmissionStatus()
	r.mu.Unlock()
	r.Event(game.EventSubmissionUpdate, struct {
		Submitted []game.SubmissionFlag `json:"submitted"`
	}{flags})
}

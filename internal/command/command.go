// Package command routes chat-style slash commands to phase-aware
// handlers. Input starting with "/" is a command; anything else is plain
// chat and never reaches the router.
package command

import (
	"errors"
	"strings"

	"arena/internal/game"
)

var ErrUnknownCommand = errors.New("unknown command")

// Context carries one command invocation. The caller holds the room lock
// for the whole Validate/Run pair, so handlers may mutate the session.
type Context struct {
	User    game.UserInfo
	Session *game.Session
	Raw     string
	Name    string
	Args    []string
}

// SlotIndex resolves the sender's slot, or -1 if they hold none.
func (c *Context) SlotIndex() int {
	return c.Session.SlotByUserID(c.User.ID)
}

// Result is what a successful command reports back.
type Result struct {
	// Private is acknowledged only to the sender (fog of war: nobody else
	// may see what was declared).
	Private string
	// Public, if set, is broadcast to the room as a system message.
	Public string
	// SubmissionChanged asks the caller to broadcast the content-free
	// per-slot submitted flags.
	SubmissionChanged bool
	// RosterChanged asks the caller to broadcast the players list and
	// re-evaluate the kickoff gate.
	RosterChanged bool
}

// Handler is one registered command. Validate rejects the invocation
// without side effects; Run performs it.
type Handler interface {
	Validate(ctx *Context) error
	Run(ctx *Context) (Result, error)
}

// Router maps command names to handlers.
type Router struct {
	handlers map[string]Handler
}

// NewRouter returns a router with the full command set registered.
func NewRouter() *Router {
	r := &Router{handlers: make(map[string]Handler)}
	r.Register("join", joinCommand{})
	r.Register("leave", leaveCommand{})
	r.Register("bot", botCommand{})
	r.Register("ready", readyCommand{ready: true})
	r.Register("unready", readyCommand{ready: false})
	r.Register("pos", positionCommand{})
	r.Register("melee", attackCommand{attackType: game.AttackMelee})
	r.Register("ranged", attackCommand{attackType: game.AttackRanged})
	r.Register("stay", attackCommand{attackType: game.AttackStay})
	r.Register("skill", skillCommand{})
	return r
}

// Register adds a handler under a name. Later registrations replace
// earlier ones.
func (r *Router) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Parse splits chat input into a command name and args. ok is false for
// plain chat (no leading slash).
func Parse(content string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(content, "/") {
		return "", nil, false
	}
	fields := strings.Fields(content[1:])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Dispatch validates and runs a parsed command against the session.
func (r *Router) Dispatch(ctx *Context) (Result, error) {
	h, ok := r.handlers[ctx.Name]
	if !ok {
		return Result{}, ErrUnknownCommand
	}
	if err := h.Validate(ctx); err != nil {
		return Result{}, err
	}
	return h.Run(ctx)
}

// requireParticipant is shared by the combat-phase commands.
func requireParticipant(ctx *Context, phase game.Phase) error {
	if ctx.Session.Phase != phase {
		return game.ErrWrongPhase
	}
	if ctx.SlotIndex() < 0 {
		return game.ErrNotParticipant
	}
	return nil
}

package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Event types pushed out through the Notifier. Room-scoped unless a
// payload carries a target user.
const (
	EventPlayersList      = "players_list"
	EventCombatStarted    = "combat_started"
	EventCombatCountdown  = "combat_countdown"
	EventOffsetTimer      = "offset_timer"
	EventPhaseTimer       = "phase_timer"
	EventSubmissionUpdate = "action_submission_update"
	EventChat             = "chat"
)

// Chat message visibility tags.
const (
	SortSystem = "system"
	SortSecret = "secret"
	SortError  = "error"
	SortUser   = "user"
)

// TimerPayload is the body of countdown events.
type TimerPayload struct {
	Seconds int `json:"seconds"`
}

// ChatPayload is a chat-style event. Secret and error sorts are only
// delivered to the connection owning UserID.
type ChatPayload struct {
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
	Sort    string `json:"sort"`
	UserID  string `json:"userId,omitempty"`
}

// Notifier pushes JSON events to every connection in the room.
type Notifier interface {
	Event(msgType string, payload any)
}

// FlowDeps wires the flow runner to its collaborators.
type FlowDeps struct {
	// Locker guards the session. The runner holds it for every mutation
	// and releases it across countdown sleeps.
	Locker sync.Locker
	Notify Notifier
	// Persist, if set, snapshots the session at kickoff.
	Persist func()
	// Tick is the length of one simulated second. Tests shrink it.
	Tick time.Duration
}

// Flow drives one session through the combat phases. Exactly one flow
// runs per session at a time (the room enforces single-flight); it is the
// only writer of Phase, Round and InCombat.
type Flow struct {
	g    *Session
	deps FlowDeps
}

// NewFlow creates a runner for the session.
func NewFlow(g *Session, deps FlowDeps) *Flow {
	if deps.Tick <= 0 {
		deps.Tick = time.Second
	}
	if deps.Notify == nil {
		deps.Notify = noopNotifier{}
	}
	return &Flow{g: g, deps: deps}
}

type noopNotifier struct{}

func (noopNotifier) Event(string, any) {}

// Run advances the session from preparation through wrap-up. It returns
// early (nil) when the kickoff gate fails, and ctx.Err() when cancelled.
// Committed phase/round state stays consistent on any exit: every mutation
// happens atomically under the locker.
func (f *Flow) Run(ctx context.Context) error {
	if err := f.countdown(ctx, EventCombatCountdown, f.g.Config.OffsetSec); err != nil {
		return err
	}
	if !f.kickoff() {
		return nil
	}

	if err := f.countdown(ctx, EventOffsetTimer, f.g.Config.OffsetSec); err != nil {
		return err
	}
	f.enterPositionDeclaration()
	if err := f.phaseWindow(ctx); err != nil {
		return err
	}
	f.resolvePositions()

	defeated, decided := 0, false
	for i := 0; i < f.g.Config.MaxRounds; i++ {
		if err := f.countdown(ctx, EventOffsetTimer, f.g.Config.OffsetSec); err != nil {
			return err
		}
		f.enterActionDeclaration()
		if err := f.phaseWindow(ctx); err != nil {
			return err
		}
		if err := f.countdown(ctx, EventOffsetTimer, f.g.Config.OffsetSec); err != nil {
			return err
		}
		f.resolveActions()
		if defeated, decided = f.checkDefeat(); decided {
			break
		}
	}

	if err := f.countdown(ctx, EventOffsetTimer, f.g.Config.OffsetSec); err != nil {
		return err
	}
	f.wrapUp(defeated, decided)
	return nil
}

// kickoff re-checks the all-ready gate and opens combat. The snapshot at
// this point is the one-time combat backup.
func (f *Flow) kickoff() bool {
	ready := false
	f.locked(func() {
		if !f.g.AllReady() {
			return
		}
		f.g.InCombat = true
		ready = true
	})
	if !ready {
		return false
	}
	if f.deps.Persist != nil {
		f.deps.Persist()
	}
	f.system(fmt.Sprintf("Combat %s begins.", f.g.ID))
	f.deps.Notify.Event(EventCombatStarted, struct{}{})
	return true
}

func (f *Flow) enterPositionDeclaration() {
	f.locked(func() {
		f.g.Phase = PhasePosition
		f.g.ClearActions()
	})
	f.system("Position declaration phase. Declare your starting position.")
	f.notifySubmissions()
}

func (f *Flow) resolvePositions() {
	var lines []string
	var roster []string
	f.locked(func() {
		f.g.AutoFillPositions()
		lines = f.g.ResolvePositions()
		for _, slot := range f.g.Slots {
			if !slot.Participant() || slot.Pos == nil {
				continue
			}
			roster = append(roster, fmt.Sprintf("%s: %s", f.g.slotName(slot), slot.Pos))
		}
	})
	for _, line := range lines {
		f.system(line)
	}
	f.system("Position declaration is over. Starting positions:\n" + strings.Join(roster, "\n"))
}

// enterActionDeclaration starts a new round: the counter increments here
// and pending declarations reset.
func (f *Flow) enterActionDeclaration() {
	var round int
	f.locked(func() {
		f.g.Round++
		round = f.g.Round
		f.g.Phase = PhaseAction
		f.g.ClearActions()
	})
	f.system(fmt.Sprintf("Round %d declaration phase.", round))
	f.system("Declare your skills and actions.")
	f.notifySubmissions()
}

func (f *Flow) resolveActions() {
	var round int
	var lines []string
	f.locked(func() {
		f.g.Phase = PhaseResolution
		round = f.g.Round
		f.g.AutoFillActions()
		lines = f.g.ResolveActions()
	})
	f.system(fmt.Sprintf("Round %d resolution phase. Calculating.", round))
	for _, line := range lines {
		f.system(line)
	}
}

func (f *Flow) checkDefeat() (int, bool) {
	var team int
	var ok bool
	f.locked(func() {
		team, ok = f.g.CheckDefeat()
	})
	return team, ok
}

func (f *Flow) wrapUp(defeated int, decided bool) {
	f.locked(func() {
		f.g.Phase = PhaseWrapUp
		f.g.InCombat = false
	})
	if !decided {
		f.system("Combat is over. All rounds exhausted, the battle ends in a draw.")
		return
	}
	// The winner is the opposite team of the defeated one.
	f.system(fmt.Sprintf("Combat is over. Team %s wins.", teamName(1-defeated)))
}

func teamName(team int) string {
	if team == 1 {
		return "blue"
	}
	return "white"
}

// countdown broadcasts a descending timer every simulated second, ending
// with an explicit zero.
func (f *Flow) countdown(ctx context.Context, event string, seconds int) error {
	for i := 0; i < seconds; i++ {
		f.deps.Notify.Event(event, TimerPayload{Seconds: seconds - i})
		if err := f.sleep(ctx); err != nil {
			return err
		}
	}
	f.deps.Notify.Event(event, TimerPayload{Seconds: 0})
	return nil
}

// phaseWindow is the player-input window: it ticks every simulated second
// but only broadcasts every tenth, plus a final zero.
func (f *Flow) phaseWindow(ctx context.Context) error {
	seconds := f.g.Config.PhaseSec
	for i := 0; i < seconds; i++ {
		if err := f.sleep(ctx); err != nil {
			return err
		}
		if i%10 == 0 {
			f.deps.Notify.Event(EventPhaseTimer, TimerPayload{Seconds: seconds - i})
		}
	}
	f.deps.Notify.Event(EventPhaseTimer, TimerPayload{Seconds: 0})
	return nil
}

func (f *Flow) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.deps.Tick):
		return nil
	}
}

func (f *Flow) locked(fn func()) {
	f.deps.Locker.Lock()
	defer f.deps.Locker.Unlock()
	fn()
}

func (f *Flow) system(content string) {
	f.deps.Notify.Event(EventChat, ChatPayload{Content: content, Sort: SortSystem})
}

func (f *Flow) notifySubmissions() {
	var flags []SubmissionFlag
	f.locked(func() {
		flags = f.g.SubmissionStatus()
	})
	f.deps.Notify.Event(EventSubmissionUpdate, struct {
		Submitted []SubmissionFlag `json:"submitted"`
	}{flags})
}

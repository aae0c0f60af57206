package command

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"arena/internal/board"
	"arena/internal/game"
)

var (
	errInCombat     = errors.New("preparation commands are unavailable during combat")
	errMissingSlot  = errors.New("slot number required, e.g. /join 2")
	errMissingCell  = errors.New("destination required, e.g. /pos X2")
	errMissingSkill = errors.New("skill name required, e.g. /skill Medikit")
)

// --- preparation commands ---

type joinCommand struct{}

func (joinCommand) Validate(ctx *Context) error {
	idx, err := slotArg(ctx)
	if err != nil {
		return err
	}
	if ctx.Session.InCombat {
		// Mid-combat the only permitted join is a participant reclaiming
		// their own connection-lost slot.
		slot := ctx.Session.Slots[idx]
		if slot.Occupy != game.ConnectionLost || slot.Info == nil || slot.Info.ID != ctx.User.ID {
			return errInCombat
		}
	}
	return nil
}

func (joinCommand) Run(ctx *Context) (Result, error) {
	idx, err := slotArg(ctx)
	if err != nil {
		return Result{}, err
	}
	if held := ctx.SlotIndex(); held >= 0 && held != idx {
		return Result{}, fmt.Errorf("you are already in slot %d", held+1)
	}
	if err := ctx.Session.AddPlayer(idx, ctx.User); err != nil {
		return Result{}, err
	}
	return Result{
		Private:       fmt.Sprintf("Joined slot %d.", idx+1),
		RosterChanged: true,
	}, nil
}

type leaveCommand struct{}

func (leaveCommand) Validate(ctx *Context) error {
	if ctx.Session.InCombat {
		return errInCombat
	}
	return nil
}

func (leaveCommand) Run(ctx *Context) (Result, error) {
	idx := ctx.SlotIndex()
	if len(ctx.Args) > 0 {
		parsed, err := slotArg(ctx)
		if err != nil {
			return Result{}, err
		}
		// Anyone may remove a bot; humans only remove themselves.
		if !ctx.Session.Slots[parsed].IsBot() && parsed != idx {
			return Result{}, game.ErrNotSlotOwner
		}
		idx = parsed
	}
	if idx < 0 {
		return Result{}, errors.New("you are not in any slot")
	}
	if err := ctx.Session.RemovePlayer(idx); err != nil {
		return Result{}, err
	}
	return Result{
		Private:       fmt.Sprintf("Left slot %d.", idx+1),
		RosterChanged: true,
	}, nil
}

type botCommand struct{}

func (botCommand) Validate(ctx *Context) error {
	if ctx.Session.InCombat {
		return errInCombat
	}
	if _, err := slotArg(ctx); err != nil {
		return err
	}
	return nil
}

func (botCommand) Run(ctx *Context) (Result, error) {
	idx, err := slotArg(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Session.AddBot(idx); err != nil {
		return Result{}, err
	}
	return Result{
		Private:       fmt.Sprintf("Bot added to slot %d.", idx+1),
		RosterChanged: true,
	}, nil
}

type readyCommand struct {
	ready bool
}

func (c readyCommand) Validate(ctx *Context) error {
	if ctx.Session.InCombat {
		return errInCombat
	}
	if ctx.SlotIndex() < 0 {
		return errors.New("join a slot first")
	}
	return nil
}

func (c readyCommand) Run(ctx *Context) (Result, error) {
	idx := ctx.SlotIndex()
	if err := ctx.Session.SetReady(idx, ctx.User.ID, c.ready); err != nil {
		return Result{}, err
	}
	state := "ready"
	if !c.ready {
		state = "not ready"
	}
	return Result{
		Private:       fmt.Sprintf("You are %s.", state),
		RosterChanged: true,
	}, nil
}

// --- combat commands ---

type positionCommand struct{}

func (positionCommand) Validate(ctx *Context) error {
	if err := requireParticipant(ctx, game.PhasePosition); err != nil {
		return err
	}
	if len(ctx.Args) == 0 {
		return errMissingCell
	}
	cell, err := board.Parse(ctx.Args[0])
	if err != nil {
		return err
	}
	if cell.Team() != ctx.Session.Slots[ctx.SlotIndex()].Team {
		return fmt.Errorf("%s belongs to the other team's zone", cell)
	}
	return nil
}

func (positionCommand) Run(ctx *Context) (Result, error) {
	cell, err := board.Parse(ctx.Args[0])
	if err != nil {
		return Result{}, err
	}
	ctx.Session.Submit(game.Action{
		SlotIndex:   ctx.SlotIndex(),
		Kind:        game.KindPosition,
		Destination: &cell,
	})
	return Result{
		Private:           fmt.Sprintf("Position declared: %s", ctx.Raw),
		SubmissionChanged: true,
	}, nil
}

type attackCommand struct {
	attackType string
}

func (c attackCommand) Validate(ctx *Context) error {
	return requireParticipant(ctx, game.PhaseAction)
}

func (c attackCommand) Run(ctx *Context) (Result, error) {
	target := "self"
	if len(ctx.Args) > 0 {
		target = ctx.Args[0]
	}
	ctx.Session.Submit(game.Action{
		SlotIndex:  ctx.SlotIndex(),
		Kind:       game.KindAttack,
		AttackType: c.attackType,
		Target:     target,
	})
	return Result{
		Private:           fmt.Sprintf("Action declared: %s", ctx.Raw),
		SubmissionChanged: true,
	}, nil
}

type skillCommand struct{}

func (skillCommand) Validate(ctx *Context) error {
	if err := requireParticipant(ctx, game.PhaseAction); err != nil {
		return err
	}
	if len(ctx.Args) == 0 {
		return errMissingSkill
	}
	slot := ctx.Session.Slots[ctx.SlotIndex()]
	if slot.Character == nil || !slices.Contains(slot.Character.Skills, ctx.Args[0]) {
		return fmt.Errorf("your character doesn't know %s", ctx.Args[0])
	}
	return nil
}

func (skillCommand) Run(ctx *Context) (Result, error) {
	target := "self"
	if len(ctx.Args) > 1 {
		target = ctx.Args[1]
	}
	ctx.Session.Submit(game.Action{
		SlotIndex: ctx.SlotIndex(),
		Kind:      game.KindSkill,
		Skill:     ctx.Args[0],
		Target:    target,
	})
	return Result{
		Private:           fmt.Sprintf("Skill declared: %s", ctx.Raw),
		SubmissionChanged: true,
	}, nil
}

// slotArg parses the 1-based slot number argument into a 0-based index.
func slotArg(ctx *Context) (int, error) {
	if len(ctx.Args) == 0 {
		return 0, errMissingSlot
	}
	n, err := strconv.Atoi(ctx.Args[0])
	if err != nil || n < 1 || n > ctx.Session.Config.PlayerNum {
		return 0, fmt.Errorf("invalid slot number %q", ctx.Args[0])
	}
	return n - 1, nil
}

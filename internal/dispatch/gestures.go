package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/protocol"
	"github.com/DoyleJ11/stars-party/internal/roster"
	"github.com/DoyleJ11/stars-party/internal/store"
)

// AutoConfirm answers every prompt the same way.
type AutoConfirm bool

func (a AutoConfirm) Confirm(_ string, onYes func()) {
	if a {
		onYes()
	}
}

// PickCharacter selects name, tells the server, and fills the detail panel
// from local data right away. The server echo may overwrite the panel.
func (d *Dispatcher) PickCharacter(ctx context.Context, name string) (Refresh, error) {
	c, ok := d.store.Roster().Find(name)
	if !ok {
		d.notifier.Push(notify.LevelWarning, fmt.Sprintf("Character %s not found", name))
		return RefreshNone, fmt.Errorf("%w: %s", ErrUnknownCharacter, name)
	}

	d.store.Select(c)
	d.store.SetDetail(store.Detail{Character: c, Recruitment: c.Recruitment})
	refresh := RefreshRoster | RefreshDetail

	if err := d.sender.Send(ctx, protocol.KindSelectCharacter, protocol.SelectCharacter{CharacterName: c.Name}); err != nil {
		d.log.Error("select character", zap.String("name", c.Name), zap.Error(err))
		d.notifier.Push(notify.LevelError, fmt.Sprintf("Failed to select character: %v", err))
		return refresh, err
	}
	d.notifier.Push(notify.LevelInfo, "Selected "+c.Name)
	return refresh, nil
}

// TargetSlot handles a click on a party slot. The party is never changed
// here; requests wait for the server's party_updated.
func (d *Dispatcher) TargetSlot(ctx context.Context, slot int) (Refresh, error) {
	var sel *roster.Character
	if c, ok := d.store.Selection(); ok {
		sel = &c
	}

	plan, err := PlanTarget(d.store.Party(), sel, slot)
	switch {
	case errors.Is(err, ErrNoSelection):
		d.notifier.Push(notify.LevelWarning, "Please select a character from the 108 Stars list first.")
		return RefreshNone, err
	case err != nil:
		d.notifier.Push(notify.LevelError, fmt.Sprintf("Invalid party slot %d", slot))
		return RefreshNone, err
	}

	switch plan.Action {
	case ActionMove:
		prompt := fmt.Sprintf("%s is already in the party. Move to slot %d?", plan.Name, plan.To+1)
		d.confirm.Confirm(prompt, func() { _ = d.confirmed(ctx, plan) })
		return RefreshNone, nil
	case ActionRemove:
		prompt := fmt.Sprintf("Remove %s from the party?", plan.Name)
		d.confirm.Confirm(prompt, func() { _ = d.confirmed(ctx, plan) })
		return RefreshNone, nil
	case ActionAdd:
		return RefreshNone, d.execute(ctx, plan)
	default:
		return RefreshNone, nil
	}
}

// confirmed runs a plan the user said yes to, unless the party moved under
// it while the prompt was open.
func (d *Dispatcher) confirmed(ctx context.Context, plan Plan) error {
	if !plan.Holds(d.store.Party()) {
		d.log.Info("dropping stale party request",
			zap.String("action", string(plan.Action)),
			zap.String("name", plan.Name),
			zap.Int("from", plan.From))
		d.notifier.Push(notify.LevelWarning, fmt.Sprintf("The party changed before you confirmed. %s was not %s.", plan.Name, pastTense(plan.Action)))
		return fmt.Errorf("%w: %s %s", ErrPartyChanged, plan.Action, plan.Name)
	}
	return d.execute(ctx, plan)
}

func pastTense(a Action) string {
	switch a {
	case ActionMove:
		return "moved"
	case ActionRemove:
		return "removed"
	case ActionAdd:
		return "added"
	}
	return "changed"
}

func (d *Dispatcher) execute(ctx context.Context, plan Plan) error {
	var (
		kind    protocol.Kind
		payload any
		verb    string
	)
	switch plan.Action {
	case ActionAdd:
		kind, verb = protocol.KindAddToParty, "add"
		payload = protocol.AddToParty{CharacterName: plan.Name, Slot: plan.To}
		d.notifier.Push(notify.LevelInfo, fmt.Sprintf("Adding %s...", plan.Name))
	case ActionMove:
		kind, verb = protocol.KindMoveCharacter, "move"
		payload = protocol.MoveCharacter{CharacterName: plan.Name, FromSlot: plan.From, ToSlot: plan.To}
		d.notifier.Push(notify.LevelInfo, fmt.Sprintf("Moving %s...", plan.Name))
	case ActionRemove:
		kind, verb = protocol.KindRemoveFromParty, "remove"
		payload = protocol.RemoveFromParty{Slot: plan.From}
		d.notifier.Push(notify.LevelInfo, fmt.Sprintf("Removing %s...", plan.Name))
	default:
		return nil
	}

	if err := d.sender.Send(ctx, kind, payload); err != nil {
		d.log.Error("party request failed", zap.String("kind", string(kind)), zap.Error(err))
		d.notifier.Push(notify.LevelError, fmt.Sprintf("Failed to %s character: %v", verb, err))
		return err
	}
	return nil
}

// Resync pushes the locally held party back to the server for
// reconciliation.
func (d *Dispatcher) Resync(ctx context.Context) error {
	msg := protocol.ExternalPartyUpdate{Party: d.store.Party(), Source: protocol.SourceUI}
	if err := d.sender.Send(ctx, protocol.KindExternalPartyUpdate, msg); err != nil {
		d.log.Error("sync party", zap.Error(err))
		d.notifier.Push(notify.LevelError, fmt.Sprintf("Failed to sync party data: %v", err))
		return err
	}
	return nil
}

func (d *Dispatcher) SetFilter(query string) Refresh {
	if d.store.Filter() == query {
		return RefreshNone
	}
	d.store.SetFilter(query)
	return RefreshRoster
}

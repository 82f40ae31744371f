package dispatch

import (
	"errors"

	"github.com/DoyleJ11/stars-party/internal/roster"
)

var ErrNoSelection = errors.New("no character selected")
var ErrUnknownCharacter = errors.New("character not in roster")
var ErrPartyChanged = errors.New("party changed since the plan was made")

type Action string

const (
	ActionNone   Action = "none"
	ActionAdd    Action = "add"
	ActionMove   Action = "move"
	ActionRemove Action = "remove"
)

// Plan is what a slot click turns into. Only Action != ActionNone results
// in an outbound request, and every request needs the server to confirm it.
type Plan struct {
	Action  Action
	Name    string
	From    int
	To      int
	Confirm bool
}

/*
	selection seated at target       -> none
	selection seated elsewhere       -> move (confirm)
	selection not seated             -> add (any occupancy, server decides)
	no selection, target occupied    -> remove (confirm)
	no selection, target empty       -> ErrNoSelection
*/

// PlanTarget decides what clicking slot means given the party and the
// current selection. It never mutates anything.
func PlanTarget(p roster.Party, selection *roster.Character, slot int) (Plan, error) {
	if !roster.ValidSlot(slot) {
		return Plan{Action: ActionNone}, roster.ErrInvalidSlot
	}

	if selection != nil {
		seated, ok := p.SlotOf(selection.Name)
		switch {
		case ok && seated == slot:
			return Plan{Action: ActionNone, Name: selection.Name, From: seated, To: slot}, nil
		case ok:
			return Plan{Action: ActionMove, Name: selection.Name, From: seated, To: slot, Confirm: true}, nil
		default:
			return Plan{Action: ActionAdd, Name: selection.Name, From: -1, To: slot}, nil
		}
	}

	if m := p[slot]; m != nil {
		return Plan{Action: ActionRemove, Name: m.Name, From: slot, To: slot, Confirm: true}, nil
	}
	return Plan{Action: ActionNone}, ErrNoSelection
}

// Holds reports whether plan still describes p. A plan waiting on a prompt
// can go stale when a party update lands before the answer.
func (plan Plan) Holds(p roster.Party) bool {
	switch plan.Action {
	case ActionMove, ActionRemove:
		if !roster.ValidSlot(plan.From) {
			return false
		}
		m := p[plan.From]
		return m != nil && m.Name == plan.Name
	case ActionAdd:
		return !p.Has(plan.Name)
	}
	return false
}

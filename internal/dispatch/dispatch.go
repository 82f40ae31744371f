// Package dispatch maps inbound server messages to store mutations and user
// gestures to outbound requests.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/metrics"
	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/protocol"
	"github.com/DoyleJ11/stars-party/internal/store"
)

var ErrHandlerFault = errors.New("handler fault")

// Sender delivers one outbound message to the authority.
type Sender interface {
	Send(ctx context.Context, kind protocol.Kind, payload any) error
}

// Confirmer asks the user a yes/no question and calls onYes only on yes.
// The call may happen later, from the same loop that called Confirm.
type Confirmer interface {
	Confirm(prompt string, onYes func())
}

type Notifier interface {
	Push(level notify.Level, text string) notify.Toast
}

// Refresh says which views need re-rendering after a handler ran.
type Refresh uint8

const (
	RefreshRoster Refresh = 1 << iota
	RefreshParty
	RefreshDetail
	RefreshLoading

	RefreshNone Refresh = 0
	RefreshAll          = RefreshRoster | RefreshParty | RefreshDetail | RefreshLoading
)

func (r Refresh) Has(f Refresh) bool { return r&f == f }

type handler func(d *Dispatcher, env protocol.Envelope) (Refresh, error)

type Dispatcher struct {
	store    *store.Store
	sender   Sender
	confirm  Confirmer
	notifier Notifier
	log      *zap.Logger
	inbound  map[protocol.Kind]handler
}

func New(st *store.Store, sender Sender, confirm Confirmer, notifier Notifier, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		store:    st,
		sender:   sender,
		confirm:  confirm,
		notifier: notifier,
		log:      log,
		inbound: map[protocol.Kind]handler{
			protocol.KindInitialData:          (*Dispatcher).onInitialData,
			protocol.KindServerInfo:           (*Dispatcher).onServerInfo,
			protocol.KindPartyUpdated:         (*Dispatcher).onPartyUpdated,
			protocol.KindCharacterSelected:    (*Dispatcher).onCharacterSelected,
			protocol.KindServerError:          (*Dispatcher).onServerError,
			protocol.KindUpdateSuccess:        (*Dispatcher).onUpdateSuccess,
			protocol.KindAllCharactersUpdated: (*Dispatcher).onAllCharactersUpdated,
		},
	}
}

// Handle applies one inbound message. Handlers validate the whole payload
// before touching the store, so callers can render right after Handle
// returns without ever seeing half an update.
func (d *Dispatcher) Handle(env protocol.Envelope) (refresh Refresh, err error) {
	h, ok := d.inbound[env.Type]
	if !ok {
		d.log.Warn("ignoring unknown message", zap.String("kind", string(env.Type)))
		return RefreshNone, fmt.Errorf("%w: %s", protocol.ErrUnknownKind, env.Type)
	}

	defer func() {
		if p := recover(); p != nil {
			d.log.Error("handler panicked", zap.String("kind", string(env.Type)), zap.Any("panic", p))
			d.notifier.Push(notify.LevelError, fmt.Sprintf("Error processing data: %v", p))
			d.store.SetLoading(false)
			refresh, err = RefreshAll, fmt.Errorf("%w: %s: %v", ErrHandlerFault, env.Type, p)
		}
	}()

	refresh, err = h(d, env)
	if err != nil {
		metrics.MalformedFrames.Inc()
	}
	return refresh, err
}

// Connected runs once per established connection: show loading and ask for
// the full snapshot.
func (d *Dispatcher) Connected(ctx context.Context) (Refresh, error) {
	d.store.SetLoading(true)
	if err := d.sender.Send(ctx, protocol.KindRequestInitialData, nil); err != nil {
		d.log.Error("request initial data", zap.Error(err))
		d.notifier.Push(notify.LevelError, fmt.Sprintf("Failed to request data: %v", err))
		d.store.SetLoading(false)
		return RefreshLoading, err
	}
	return RefreshLoading, nil
}

// payloadError logs and surfaces a payload that could not be applied.
func (d *Dispatcher) payloadError(kind protocol.Kind, text string, err error) {
	d.log.Error("discarding payload", zap.String("kind", string(kind)), zap.Error(err))
	d.notifier.Push(notify.LevelError, text)
}

package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/conn"
	"github.com/DoyleJ11/stars-party/internal/dispatch"
	"github.com/DoyleJ11/stars-party/internal/metrics"
	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/store"
	"github.com/DoyleJ11/stars-party/internal/view"
)

type Msg interface{ isSessionMsg() }

// Upstream carries one connection event, lifecycle or frame.
type Upstream struct{ Event conn.Event }

func (Upstream) isSessionMsg() {}

type Pick struct{ Name string }

func (Pick) isSessionMsg() {}

type Target struct{ Slot int }

func (Target) isSessionMsg() {}

type Resync struct{}

func (Resync) isSessionMsg() {}

type Filter struct{ Query string }

func (Filter) isSessionMsg() {}

// Answer resolves the pending confirmation prompt.
type Answer struct{ Yes bool }

func (Answer) isSessionMsg() {}

type Dismiss struct{ ToastID string }

func (Dismiss) isSessionMsg() {}

// Tick expires toasts and the connected indicator.
type Tick struct{ Now time.Time }

func (Tick) isSessionMsg() {}

type Join struct {
	ViewerID string
	Outbox   chan Snapshot // where this viewer wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ViewerID string }

func (Leave) isSessionMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type Snapshot struct {
	Version int
	Page    view.Page
}

type View struct {
	Version    int
	NumViewers int
	Page       view.Page
}

type Options struct {
	ToastTTL     time.Duration
	TickInterval time.Duration
	MaxAttempts  int
	Now          func() time.Time
	Log          *zap.Logger
}

type prompt struct {
	text  string
	onYes func()
}

// Session is the single event loop of the client. Every upstream frame and
// every user gesture goes through its inbox, so state changes are applied
// strictly in arrival order.
type Session struct {
	inbox   chan Msg
	store   *store.Store
	disp    *dispatch.Dispatcher
	center  *notify.Center
	status  notify.Status
	prompt  *prompt
	shown   bool // status visibility in the last published page
	version int
	viewers map[string]chan Snapshot
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, sender dispatch.Sender, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 250 * time.Millisecond
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = conn.DefaultMaxAttempts
	}

	s := &Session{
		inbox:   make(chan Msg, 64), // Small buffer
		store:   store.New(),
		center:  notify.NewCenter(opts.Log.Named("notice"), opts.ToastTTL, opts.Now),
		status:  notify.Connecting(opts.Now()),
		shown:   true,
		viewers: make(map[string]chan Snapshot),
		opts:    opts,
		log:     opts.Log.Named("session"),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.store.SetLoading(true)
	s.disp = dispatch.New(s.store, sender, s, s.center, opts.Log.Named("dispatch"))

	go s.loop()
	return s
}

// Inbox exposes the loop's inbox to transports and tests.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Confirm implements dispatch.Confirmer. Only one prompt is pending at a
// time; a newer one replaces it.
func (s *Session) Confirm(text string, onYes func()) {
	if s.prompt != nil {
		s.log.Debug("replacing pending prompt", zap.String("old", s.prompt.text))
	}
	s.prompt = &prompt{text: text, onYes: onYes}
}

// Follow forwards connection events into the inbox until events closes or
// ctx is done.
func (s *Session) Follow(ctx context.Context, events <-chan conn.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case s.inbox <- Upstream{Event: ev}:
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *Session) loop() {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-ticker.C:
			if s.tick(s.opts.Now()) {
				s.publish()
			}

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register viewer + send current snapshot immediately
				s.viewers[msg.ViewerID] = msg.Outbox
				metrics.Viewers.Set(float64(len(s.viewers)))
				msg.Outbox <- Snapshot{Version: s.version, Page: s.render()}

			case Leave:
				if ch, ok := s.viewers[msg.ViewerID]; ok {
					delete(s.viewers, msg.ViewerID)
					close(ch) // Lets the viewer's writer finish
					metrics.Viewers.Set(float64(len(s.viewers)))
				}

			case GetView:
				msg.Reply <- View{
					Version:    s.version,
					NumViewers: len(s.viewers),
					Page:       s.render(),
				}

			case Tick:
				if s.tick(msg.Now) {
					s.publish()
				}

			case Shutdown:
				s.shutdown()
				return

			default:
				if s.apply(m) {
					s.publish()
				}
			}
		}
	}
}

// apply handles every state-changing message and reports whether viewers
// need a new snapshot.
func (s *Session) apply(m Msg) bool {
	ctx := s.ctx
	before := s.mark()
	switch msg := m.(type) {
	case Upstream:
		return s.upstream(msg.Event, before)

	case Pick:
		r, err := s.disp.PickCharacter(ctx, msg.Name)
		s.logGesture("pick", err)
		return s.changed(before, r)

	case Target:
		r, err := s.disp.TargetSlot(ctx, msg.Slot)
		s.logGesture("target", err)
		return s.changed(before, r)

	case Resync:
		s.logGesture("resync", s.disp.Resync(ctx))
		return s.changed(before, dispatch.RefreshNone)

	case Filter:
		return s.changed(before, s.disp.SetFilter(msg.Query))

	case Answer:
		p := s.prompt
		if p == nil {
			return false
		}
		s.prompt = nil
		if msg.Yes {
			p.onYes()
		}
		return true

	case Dismiss:
		return s.center.Dismiss(msg.ToastID)
	}
	return false
}

// mark captures the parts of the page that dispatch changes without
// reporting them in a Refresh: toasts and the pending prompt.
type mark struct {
	notices uint64
	prompt  *prompt
}

func (s *Session) mark() mark { return mark{notices: s.center.Rev(), prompt: s.prompt} }

func (s *Session) changed(since mark, r dispatch.Refresh) bool {
	return r != dispatch.RefreshNone || s.mark() != since
}

// upstream applies one connection event. Lifecycle events always change the
// status line; frames publish only when they changed something.
func (s *Session) upstream(ev conn.Event, before mark) bool {
	now := s.opts.Now()
	limit := ev.MaxAttempts
	if limit == 0 {
		limit = s.opts.MaxAttempts
	}

	switch ev.Type {
	case conn.EventConnecting:
		s.status = notify.Connecting(now)
		s.store.SetLoading(true)

	case conn.EventConnected:
		s.status = notify.Connected(now)
		_, err := s.disp.Connected(s.ctx)
		s.logGesture("request initial data", err)

	case conn.EventConnectError:
		s.status = notify.ConnectError(ev.Attempt, limit, now)

	case conn.EventReconnecting:
		s.status = notify.Reconnecting(ev.Attempt, limit, now)

	case conn.EventDisconnected:
		s.status = notify.Disconnected(now)

	case conn.EventGaveUp:
		s.status = notify.GaveUp(limit, now)
		s.store.SetLoading(false)

	case conn.EventMalformed:
		s.center.Push(notify.LevelError, "Received malformed data from server")

	case conn.EventMessage:
		r, err := s.disp.Handle(ev.Envelope)
		if err != nil {
			s.log.Debug("inbound message not applied", zap.String("kind", string(ev.Envelope.Type)), zap.Error(err))
		}
		return s.changed(before, r)
	}
	return true
}

func (s *Session) tick(now time.Time) bool {
	expired := s.center.Expire(now)
	return expired || s.shown != s.status.Visible(now)
}

func (s *Session) logGesture(name string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, dispatch.ErrNoSelection) {
		s.log.Debug(name, zap.Error(err))
		return
	}
	s.log.Info(name+" failed", zap.Error(err))
}

func (s *Session) render() view.Page {
	text := ""
	if s.prompt != nil {
		text = s.prompt.text
	}
	now := s.opts.Now()
	return view.Render(view.Input{
		Version: s.version,
		Store:   s.store,
		Toasts:  s.center.Active(),
		Status:  s.status,
		Prompt:  text,
		Now:     now,
	})
}

func (s *Session) publish() {
	s.version++
	s.shown = s.status.Visible(s.opts.Now())
	s.broadcast(Snapshot{Version: s.version, Page: s.render()})
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.viewers {
		select {
		case ch <- snap:
			//ok
		default:
			// Viewer is slow/full - drop them.
			close(ch)
			delete(s.viewers, id)
			metrics.ViewersDropped.Inc()
		}
	}
	metrics.Viewers.Set(float64(len(s.viewers)))
}

func (s *Session) shutdown() {
	for id, ch := range s.viewers {
		close(ch) // Tell viewer no more snapshots
		delete(s.viewers, id)
	}
	metrics.Viewers.Set(0)
	s.cancel()
}

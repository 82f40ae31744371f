package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/stars-party/internal/conn"
	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/protocol"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("viewer outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

type sent struct {
	kind    protocol.Kind
	payload any
}

type mockSender struct {
	mu   sync.Mutex
	sent []sent
}

func (m *mockSender) Send(_ context.Context, kind protocol.Kind, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{kind: kind, payload: payload})
	return nil
}

func (m *mockSender) kinds() []protocol.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.Kind, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.kind)
	}
	return out
}

func (m *mockSender) last() sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	s      *Session
	sender *mockSender
	clock  *clock
	outbox chan Snapshot
}

// start runs a session with a frozen clock and a ticker that never fires on
// its own, then joins one viewer and drains the join snapshot.
func start(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		sender: &mockSender{},
		clock:  &clock{now: time.Unix(1000, 0)},
		outbox: make(chan Snapshot, 16),
	}
	h.s = New(ctx, h.sender, Options{
		TickInterval: time.Hour,
		MaxAttempts:  5,
		Now:          h.clock.Now,
	})
	h.s.Inbox() <- Join{ViewerID: "v1", Outbox: h.outbox}
	recvSnapshot(t, h.outbox, time.Second)
	return h
}

func (h *harness) send(m Msg) { h.s.Inbox() <- m }

func (h *harness) frame(t *testing.T, kind protocol.Kind, payload string) {
	t.Helper()
	h.send(Upstream{Event: conn.Event{
		Type:     conn.EventMessage,
		Envelope: protocol.Envelope{Type: kind, Payload: json.RawMessage(payload)},
	}})
}

// seeded connects and loads three characters with Viktor in slot 2.
func seeded(t *testing.T) *harness {
	t.Helper()
	h := start(t)
	h.send(Upstream{Event: conn.Event{Type: conn.EventConnected}})
	recvSnapshot(t, h.outbox, time.Second)
	h.frame(t, protocol.KindInitialData, `{
		"characters":[{"name":"Gremio"},{"name":"Viktor"},{"name":"Flik"}],
		"party":[null,null,{"name":"Viktor"},null,null,null]}`)
	recvSnapshot(t, h.outbox, time.Second)
	return h
}

func TestSession_JoinGetsCurrentSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, &mockSender{}, Options{TickInterval: time.Hour})
	out := make(chan Snapshot, 1)
	s.Inbox() <- Join{ViewerID: "a", Outbox: out}

	snap := recvSnapshot(t, out, time.Second)
	assert.Equal(t, 0, snap.Version)
	assert.True(t, snap.Page.Loading)
	assert.Equal(t, notify.StateConnecting, snap.Page.Status.State)
	assert.True(t, snap.Page.Roster.Empty)

	reply := make(chan View, 1)
	s.Inbox() <- GetView{Reply: reply}
	v := recvView(t, reply, time.Second)
	assert.Equal(t, 1, v.NumViewers)
}

func TestSession_ConnectedRequestsInitialData(t *testing.T) {
	h := start(t)

	h.send(Upstream{Event: conn.Event{Type: conn.EventConnected}})
	snap := recvSnapshot(t, h.outbox, time.Second)

	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "Connected to server", snap.Page.Status.Text)
	assert.True(t, snap.Page.Loading)
	assert.Equal(t, []protocol.Kind{protocol.KindRequestInitialData}, h.sender.kinds())
}

func TestSession_InitialDataRendersRoster(t *testing.T) {
	h := seeded(t)

	reply := make(chan View, 1)
	h.send(GetView{Reply: reply})
	v := recvView(t, reply, time.Second)

	assert.False(t, v.Page.Loading)
	require.Len(t, v.Page.Roster.Groups, 3)
	assert.Equal(t, "Viktor", v.Page.Party.Slots[2].Name)
	assert.True(t, v.Page.Roster.Groups[2].Entries[0].InParty)
}

func TestSession_PickThenAddWaitsForServer(t *testing.T) {
	h := seeded(t)

	h.send(Pick{Name: "Gremio"})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Gremio", snap.Page.Detail.Name)
	assert.Equal(t, protocol.KindSelectCharacter, h.sender.last().kind)

	h.send(Target{Slot: 0})
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.True(t, snap.Page.Party.Slots[0].Empty, "party only changes on server update")
	assert.Equal(t, protocol.AddToParty{CharacterName: "Gremio", Slot: 0}, h.sender.last().payload)

	h.frame(t, protocol.KindPartyUpdated, `{
		"party":[{"name":"Gremio"},null,{"name":"Viktor"},null,null,null],
		"action":"add","character":{"name":"Gremio"}}`)
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Gremio", snap.Page.Party.Slots[0].Name)
}

func TestSession_MoveNeedsConfirmation(t *testing.T) {
	h := seeded(t)

	h.send(Pick{Name: "Viktor"})
	recvSnapshot(t, h.outbox, time.Second)

	h.send(Target{Slot: 4})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Viktor is already in the party. Move to slot 5?", snap.Page.Prompt)
	assert.Equal(t, protocol.KindSelectCharacter, h.sender.last().kind, "nothing sent before the answer")

	h.send(Answer{Yes: true})
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.Empty(t, snap.Page.Prompt)
	assert.Equal(t, protocol.MoveCharacter{CharacterName: "Viktor", FromSlot: 2, ToSlot: 4}, h.sender.last().payload)
}

func TestSession_DeclinedRemoveSendsNothing(t *testing.T) {
	h := seeded(t)
	before := len(h.sender.kinds())

	h.send(Target{Slot: 2})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Remove Viktor from the party?", snap.Page.Prompt)

	h.send(Answer{Yes: false})
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.Empty(t, snap.Page.Prompt)
	assert.Len(t, h.sender.kinds(), before)
}

func TestSession_AnswerWithoutPromptIsIgnored(t *testing.T) {
	h := start(t)
	h.send(Answer{Yes: true})
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)
}

func TestSession_FilterOnlyPublishesOnChange(t *testing.T) {
	h := seeded(t)

	h.send(Filter{Query: "vik"})
	snap := recvSnapshot(t, h.outbox, time.Second)
	require.Len(t, snap.Page.Roster.Groups, 1)
	assert.Equal(t, "V", snap.Page.Roster.Groups[0].Letter)

	h.send(Filter{Query: "vik"})
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)
}

func TestSession_TickExpiresToastsAndHidesStatus(t *testing.T) {
	h := seeded(t)

	reply := make(chan View, 1)
	h.send(GetView{Reply: reply})
	v := recvView(t, reply, time.Second)
	require.NotEmpty(t, v.Page.Toasts)
	assert.True(t, v.Page.Status.Visible)

	now := h.clock.Advance(notify.StatusAutoHide + time.Second)
	h.send(Tick{Now: now})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Empty(t, snap.Page.Toasts)
	assert.False(t, snap.Page.Status.Visible)

	h.send(Tick{Now: now})
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)
}

func TestSession_DismissToast(t *testing.T) {
	h := seeded(t)

	reply := make(chan View, 1)
	h.send(GetView{Reply: reply})
	v := recvView(t, reply, time.Second)
	require.Len(t, v.Page.Toasts, 1)

	h.send(Dismiss{ToastID: v.Page.Toasts[0].ID})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Empty(t, snap.Page.Toasts)

	h.send(Dismiss{ToastID: "gone"})
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)
}

func TestSession_LifecycleStatus(t *testing.T) {
	h := start(t)

	h.send(Upstream{Event: conn.Event{Type: conn.EventReconnecting, Attempt: 2, MaxAttempts: 5}})
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Reconnecting (attempt 2/5)...", snap.Page.Status.Text)

	h.send(Upstream{Event: conn.Event{Type: conn.EventGaveUp}})
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Disconnected from server after 5 attempts. Reload to retry.", snap.Page.Status.Text)
	assert.False(t, snap.Page.Loading)
}

func TestSession_MalformedFrameShowsError(t *testing.T) {
	h := start(t)

	h.send(Upstream{Event: conn.Event{Type: conn.EventMalformed}})
	snap := recvSnapshot(t, h.outbox, time.Second)
	require.Len(t, snap.Page.Toasts, 1)
	assert.Equal(t, notify.LevelError, snap.Page.Toasts[0].Level)
}

func TestSession_SlowViewerIsDropped(t *testing.T) {
	h := start(t)

	slow := make(chan Snapshot, 1)
	h.send(Join{ViewerID: "slow", Outbox: slow})

	// The join snapshot fills the buffer; the next broadcast cannot fit.
	h.send(Upstream{Event: conn.Event{Type: conn.EventDisconnected}})
	recvSnapshot(t, h.outbox, time.Second)

	recvSnapshot(t, slow, time.Second)
	_, ok := <-slow
	assert.False(t, ok, "slow viewer outbox closed")

	reply := make(chan View, 1)
	h.send(GetView{Reply: reply})
	assert.Equal(t, 1, recvView(t, reply, time.Second).NumViewers)
}

func TestSession_FollowForwardsEvents(t *testing.T) {
	h := start(t)

	events := make(chan conn.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.s.Follow(ctx, events)

	events <- conn.Event{Type: conn.EventDisconnected}
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Disconnected from server", snap.Page.Status.Text)
	close(events)
}

func TestSession_ShutdownClosesViewers(t *testing.T) {
	h := start(t)
	h.send(Shutdown{})

	select {
	case _, ok := <-h.outbox:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}
	<-h.s.Done()
}

func TestSession_AnswerAfterPartyChangeSendsNothing(t *testing.T) {
	h := seeded(t)
	before := len(h.sender.kinds())

	h.send(Target{Slot: 2})
	snap := recvSnapshot(t, h.outbox, time.Second)
	require.Equal(t, "Remove Viktor from the party?", snap.Page.Prompt)

	// Another client puts Flik where Viktor was before the user answers.
	h.frame(t, protocol.KindPartyUpdated, `{
		"party":[null,null,{"name":"Flik"},null,null,null],
		"action":"full_update"}`)
	snap = recvSnapshot(t, h.outbox, time.Second)
	require.Equal(t, "Flik", snap.Page.Party.Slots[2].Name)

	h.send(Answer{Yes: true})
	snap = recvSnapshot(t, h.outbox, time.Second)
	assert.Empty(t, snap.Page.Prompt)
	assert.Len(t, h.sender.kinds(), before, "no remove_from_party for Flik")
	assert.Equal(t, "Flik", snap.Page.Party.Slots[2].Name)

	require.NotEmpty(t, snap.Page.Toasts)
	last := snap.Page.Toasts[len(snap.Page.Toasts)-1]
	assert.Equal(t, notify.LevelWarning, last.Level)
	assert.Equal(t, "The party changed before you confirmed. Viktor was not removed.", last.Text)
}

func TestSession_NoopMessagesDoNotPublish(t *testing.T) {
	h := seeded(t)

	h.send(Pick{Name: "Viktor"})
	recvSnapshot(t, h.outbox, time.Second)

	// Viktor already sits in slot 2.
	h.send(Target{Slot: 2})
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)

	h.frame(t, protocol.KindServerInfo, `{"message":""}`)
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)

	h.frame(t, "x-debug-dump", `{}`)
	recvNoSnapshot(t, h.outbox, 100*time.Millisecond)

	h.frame(t, protocol.KindServerInfo, `{"message":"Backup saved"}`)
	snap := recvSnapshot(t, h.outbox, time.Second)
	assert.Equal(t, "Backup saved", snap.Page.Toasts[len(snap.Page.Toasts)-1].Text)
}

func TestSession_LeaveClosesOutbox(t *testing.T) {
	h := start(t)

	out := make(chan Snapshot, 1)
	h.send(Join{ViewerID: "v2", Outbox: out})
	recvSnapshot(t, out, time.Second)

	h.send(Leave{ViewerID: "v2"})
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on leave")
	}

	// A second leave for the same viewer is a no-op.
	h.send(Leave{ViewerID: "v2"})
	reply := make(chan View, 1)
	h.send(GetView{Reply: reply})
	assert.Equal(t, 1, recvView(t, reply, time.Second).NumViewers)
}

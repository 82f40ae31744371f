package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/stars-party/internal/protocol"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return Event{} // unreachable
	}
}

// recvUntil skips events until one of type want arrives.
func recvUntil(t *testing.T, ch <-chan Event, want EventType, within time.Duration) Event {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed before %v", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", want)
			return Event{}
		}
	}
}

type fakeAuthority struct {
	srv      *httptest.Server
	received chan protocol.Envelope
	conns    chan *websocket.Conn
}

// newFakeAuthority answers request_initial_data with an empty snapshot and
// records everything else.
func newFakeAuthority(t *testing.T) *fakeAuthority {
	t.Helper()
	fa := &fakeAuthority{
		received: make(chan protocol.Envelope, 16),
		conns:    make(chan *websocket.Conn, 4),
	}
	fa.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		fa.conns <- c

		for {
			_, data, err := c.Read(r.Context())
			if err != nil {
				return
			}
			env, err := protocol.Decode(data)
			if err != nil {
				continue
			}
			fa.received <- env
			if env.Type == protocol.KindRequestInitialData {
				reply, _ := protocol.Encode(protocol.KindInitialData, map[string]any{
					"characters": []map[string]string{{"name": "Gremio"}},
					"party":      []any{nil, nil, nil, nil, nil, nil},
				})
				_ = c.Write(r.Context(), websocket.MessageText, reply)
			}
		}
	}))
	t.Cleanup(fa.srv.Close)
	return fa
}

func (fa *fakeAuthority) url() string {
	return "ws" + strings.TrimPrefix(fa.srv.URL, "http")
}

func TestManager_ConnectSendReceive(t *testing.T) {
	fa := newFakeAuthority(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(Config{URL: fa.url(), Delay: 10 * time.Millisecond}, nil)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Equal(t, EventConnecting, recvEvent(t, m.Events(), time.Second).Type)
	assert.Equal(t, EventConnected, recvEvent(t, m.Events(), time.Second).Type)

	require.NoError(t, m.Send(ctx, protocol.KindRequestInitialData, nil))
	got := <-fa.received
	assert.Equal(t, protocol.KindRequestInitialData, got.Type)

	ev := recvEvent(t, m.Events(), time.Second)
	require.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, protocol.KindInitialData, ev.Envelope.Type)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestManager_MalformedFrameIsReportedAndSkipped(t *testing.T) {
	fa := newFakeAuthority(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(Config{URL: fa.url()}, nil)
	go m.Run(ctx)
	recvUntil(t, m.Events(), EventConnected, time.Second)

	srvConn := <-fa.conns
	require.NoError(t, srvConn.Write(ctx, websocket.MessageText, []byte(`{oops`)))
	require.NoError(t, srvConn.Write(ctx, websocket.MessageText, []byte(`{"type":"server_info","payload":{"message":"hi"}}`)))

	assert.Equal(t, EventMalformed, recvEvent(t, m.Events(), time.Second).Type)
	ev := recvEvent(t, m.Events(), time.Second)
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, protocol.KindServerInfo, ev.Envelope.Type)
}

func TestManager_ReconnectsAfterDrop(t *testing.T) {
	fa := newFakeAuthority(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(Config{URL: fa.url(), Delay: 10 * time.Millisecond}, nil)
	go m.Run(ctx)
	recvUntil(t, m.Events(), EventConnected, time.Second)

	first := <-fa.conns
	require.NoError(t, first.Close(websocket.StatusGoingAway, "restart"))

	assert.Equal(t, EventDisconnected, recvUntil(t, m.Events(), EventDisconnected, time.Second).Type)
	re := recvUntil(t, m.Events(), EventReconnecting, time.Second)
	assert.Equal(t, 1, re.Attempt)
	recvUntil(t, m.Events(), EventConnected, time.Second)
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	m := New(Config{URL: url, MaxAttempts: 3, Delay: time.Millisecond, DialTimeout: 200 * time.Millisecond}, nil)
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	var errorsSeen, reconnects int
	for ev := range m.Events() {
		switch ev.Type {
		case EventConnectError:
			errorsSeen++
			assert.Equal(t, 3, ev.MaxAttempts)
		case EventReconnecting:
			reconnects++
		case EventGaveUp:
			assert.Error(t, ev.Err)
		}
	}
	assert.Equal(t, 3, errorsSeen)
	assert.Equal(t, 2, reconnects)

	err := <-done
	assert.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestManager_SendWhileDisconnected(t *testing.T) {
	m := New(Config{URL: "ws://127.0.0.1:1"}, nil)
	err := m.Send(context.Background(), protocol.KindSelectCharacter, protocol.SelectCharacter{CharacterName: "Flik"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "party_updated", kindLabel(protocol.KindPartyUpdated))
	assert.Equal(t, "unknown", kindLabel(protocol.KindAddToParty))
	assert.Equal(t, "unknown", kindLabel(protocol.Kind("x-debug-dump")))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "gave_up", EventGaveUp.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

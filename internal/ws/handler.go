// Package ws serves the browser side of the local web view: every session
// snapshot is pushed as a frame, and gesture frames go back to the session.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/session"
	"github.com/DoyleJ11/stars-party/internal/types"
	"github.com/DoyleJ11/stars-party/internal/view"
)

var ErrUnknownGesture = errors.New("unknown gesture")

const writeTimeout = 3 * time.Second

// Renderer turns a page into the HTML fragment the browser swaps in.
type Renderer func(view.Page) ([]byte, error)

// Handler pushes snapshots to one browser viewer. With a nil render only the
// view model is sent.
func Handler(s *session.Session, render Renderer, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The page is served from the same local listener.
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		viewerID := uuid.NewString()
		vlog := log.With(zap.String("viewer", viewerID))

		select {
		case s.Inbox() <- session.Join{ViewerID: viewerID, Outbox: out}:
		case <-s.Done():
			return
		}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ViewerID: viewerID}:
			case <-s.Done():
			}
		}()
		vlog.Debug("viewer joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, conn, out, render, vlog)

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					vlog.Debug("viewer left")
				default:
					vlog.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, err := ToSessionMsg(cm)
			if err != nil {
				writeError(r.Context(), conn, err.Error())
				continue
			}

			select {
			case s.Inbox() <- msg:
			case <-s.Done():
				return
			}
		}
	}
}

// writeLoop pushes snapshots until the outbox closes or ctx ends. The
// session closes the outbox on leave, on drop and on shutdown.
func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan session.Snapshot, render Renderer, log *zap.Logger) {
	for {
		var snap session.Snapshot
		select {
		case <-ctx.Done():
			return
		case next, ok := <-out:
			if !ok {
				// The session let go of this viewer.
				_ = conn.Close(websocket.StatusGoingAway, "view closed")
				return
			}
			snap = next
		}

		page := snap.Page
		msg := types.ServerMessage{Type: "view", Version: snap.Version, View: &page}
		if render != nil {
			html, err := render(page)
			if err != nil {
				log.Error("render view", zap.Error(err))
			} else {
				msg.HTML = string(html)
			}
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Error("encode view", zap.Error(err))
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = conn.Write(wctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

// ToSessionMsg maps a browser gesture frame onto a session message.
func ToSessionMsg(m types.ClientMessage) (session.Msg, error) {
	switch m.Type {
	case "pick":
		if m.Name == "" {
			return nil, errors.New("pick needs a name")
		}
		return session.Pick{Name: m.Name}, nil
	case "target":
		if m.Slot == nil {
			return nil, errors.New("target needs a slot")
		}
		return session.Target{Slot: *m.Slot}, nil
	case "sync":
		return session.Resync{}, nil
	case "filter":
		return session.Filter{Query: m.Query}, nil
	case "confirm":
		return session.Answer{Yes: m.Yes}, nil
	case "dismiss":
		return session.Dismiss{ToastID: m.ToastID}, nil
	default:
		return nil, ErrUnknownGesture
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, text string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Error: text})
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

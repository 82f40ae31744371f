package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/stars-party/internal/session"
)

// replyTimeout bounds how long a request waits on the session loop.
const replyTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fetchView(r *http.Request, s *session.Session) (session.View, bool) {
	reply := make(chan session.View, 1)
	select {
	case s.Inbox() <- session.GetView{Reply: reply}:
	case <-s.Done():
		return session.View{}, false
	case <-r.Context().Done():
		return session.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-time.After(replyTimeout):
		return session.View{}, false
	}
}

// enqueue hands a gesture to the session and answers 202; the outcome shows
// up in the next snapshot.
func enqueue(w http.ResponseWriter, r *http.Request, s *session.Session, msg session.Msg) {
	select {
	case s.Inbox() <- msg:
		w.WriteHeader(http.StatusAccepted)
	case <-s.Done():
		http.Error(w, "session closed", http.StatusServiceUnavailable)
	case <-r.Context().Done():
	}
}

func Index(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := fetchView(r, s)
		if !ok {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := RenderPage(w, v.Page); err != nil {
			http.Error(w, "failed to render page", http.StatusInternalServerError)
		}
	}
}

func GetView(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := fetchView(r, s)
		if !ok {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Version int `json:"version"`
			Viewers int `json:"viewers"`
			View    any `json:"view"`
		}{Version: v.Version, Viewers: v.NumViewers, View: v.Page})
	}
}

func Pick(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		enqueue(w, r, s, session.Pick{Name: body.Name})
	}
}

func TargetSlot(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
		if err != nil {
			http.Error(w, "slot must be a number", http.StatusBadRequest)
			return
		}
		// Range is checked by the session so the user sees the notice.
		enqueue(w, r, s, session.Target{Slot: slot})
	}
}

func Sync(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enqueue(w, r, s, session.Resync{})
	}
}

func Confirm(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Yes bool `json:"yes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		enqueue(w, r, s, session.Answer{Yes: body.Yes})
	}
}

func SetFilter(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		enqueue(w, r, s, session.Filter{Query: body.Query})
	}
}

func DismissToast(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enqueue(w, r, s, session.Dismiss{ToastID: chi.URLParam(r, "id")})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/session"
	"github.com/DoyleJ11/stars-party/internal/ws"
)

func SetupRoutes(s *session.Session, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Page
	r.Get("/", Index(s))
	r.Get("/view", GetView(s))
	r.Get("/ws", ws.Handler(s, RenderApp, log))

	// Gestures
	r.Route("/api", func(r chi.Router) {
		r.Post("/pick", Pick(s))
		r.Post("/slots/{slot}", TargetSlot(s))
		r.Post("/sync", Sync(s))
		r.Post("/confirm", Confirm(s))
		r.Post("/filter", SetFilter(s))
		r.Post("/toasts/{id}/dismiss", DismissToast(s))
	})

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

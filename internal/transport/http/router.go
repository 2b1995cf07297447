package http

import (
	"net/http"
	"time"

	"github.com/pageturn/session-service/internal/domain"
	httpmw "github.com/pageturn/session-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestLogger)

	// Все маршруты требуют access_token и участника
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", h.CreateSession)
			sr.Get("/", h.ListSessions)

			sr.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetSession)
				rr.Post("/join", h.Join)
				rr.Post("/leave", h.Leave)
				rr.Get("/participants", h.Participants)

				rr.Post("/pause", h.Transition(domain.StatusPaused))
				rr.Post("/resume", h.Transition(domain.StatusActive))
				rr.Post("/end", h.Transition(domain.StatusEnded))
				rr.Post("/cancel", h.Transition(domain.StatusCancelled))
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

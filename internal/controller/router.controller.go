package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/ws", c.serveWS)

		r.Group(func(r chi.Router) {
			r.Use(c.authMw)

			r.Route("/watch-party", func(r chi.Router) {
				r.Post("/", c.createWatchParty)
				r.Get("/my-invites", c.getMyInvites)
				r.Route("/{room-id}", func(r chi.Router) {
					r.Delete("/", c.endWatchParty)
					r.Post("/invites", c.inviteUsers)
					r.Delete("/invites/me", c.removeMyInvite)
				})
			})
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", c.getChatList)
				r.Get("/{user-id}", c.getConversation)
			})
			r.Get("/videos/{video-id}", c.getVideo)
			r.Post("/posts/{post-id}/events", c.publishPostEvent)
		})
	})

	return r
}

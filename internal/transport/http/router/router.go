// Package router assembles the HTTP surface: REST handlers, the signaling
// WebSocket endpoint, health and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/handlers"
	"github.com/vedran77/chord/internal/transport/http/middleware"
)

type Services struct {
	Servers       *service.ServerService
	Members       *service.MemberService
	Channels      *service.ChannelService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Calls         *service.CallService
}

type Options struct {
	Tokens         middleware.TokenParser
	Signaling      http.Handler
	AllowedOrigins []string
}

func New(logger zerolog.Logger, svc Services, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// No origins means same-origin only: no CORS headers at all.
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	if opts.Signaling != nil {
		r.Handle("/ws", opts.Signaling)
	}

	messages := handlers.NewMessageHandler(svc.Messages)
	directMessages := handlers.NewDirectMessageHandler(svc.Messages)
	calls := handlers.NewCallHandler(svc.Calls)
	conversations := handlers.NewConversationHandler(svc.Conversations)
	servers := handlers.NewServerHandler(svc.Servers, svc.Channels, svc.Members)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(opts.Tokens))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", messages.List)
			r.Post("/", messages.Send)
			r.Patch("/{id}", messages.Edit)
			r.Delete("/{id}", messages.Delete)
		})
		r.Route("/direct-messages", func(r chi.Router) {
			r.Get("/", directMessages.List)
			r.Post("/", directMessages.Send)
			r.Patch("/{id}", directMessages.Edit)
			r.Delete("/{id}", directMessages.Delete)
		})

		r.Post("/calls", calls.Create)
		r.Get("/calls/{id}", calls.Get)
		r.Patch("/calls/{id}", calls.Patch)
		r.Delete("/calls/{id}", calls.End)

		r.Post("/conversations", conversations.GetOrCreate)
		r.Get("/conversations/{id}", conversations.Get)

		r.Post("/servers", servers.Create)
		r.Route("/servers/{serverId}", func(r chi.Router) {
			r.Get("/", servers.Get)
			r.Post("/join", servers.Join)
			r.Get("/members", servers.ListMembers)
			r.Get("/channels", servers.ListChannels)
			r.Post("/channels", servers.CreateChannel)
		})
		r.Delete("/channels/{id}", servers.DeleteChannel)
		r.Patch("/members/{id}", servers.UpdateMember)
		r.Delete("/members/{id}", servers.KickMember)
	})

	return r
}

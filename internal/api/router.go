package api

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gwi.com/finance-chat/internal/telemetry"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(MaxBodyBytes(maxBodyBytes))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/knowledge", apiHandler.KnowledgeHandler)
		r.Get("/suggestions", apiHandler.SuggestionsHandler)
		r.Post("/match", apiHandler.MatchHandler)

		// Anonymous callers can chat, but nothing they say is persisted.
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.IdentityMiddleware)

			r.Post("/suggestions", apiHandler.SelectSuggestionHandler)
			r.Post("/chats", apiHandler.CreateChatHandler)
			r.Get("/chats", apiHandler.ListChatsHandler)
			r.Get("/chats/events", apiHandler.HistoryEventsHandler)
			r.Get("/chats/{chatID}", apiHandler.GetChatHandler)
			r.Post("/chats/{chatID}/messages", apiHandler.PostMessageHandler)
			r.Delete("/chats/{chatID}", apiHandler.DeleteChatHandler)
		})
	})

	if !telemetry.Enabled() {
		return r
	}
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(r)
}

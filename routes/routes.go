package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/junzhij/esports-tournament-live/handlers"
)

// SetupRoutes mounts the admin API and the viewer channel. There is no
// auth layer: the console is expected to run on a trusted network.
func SetupRoutes(
	stateHandler *handlers.StateHandler,
	matchHandler *handlers.MatchHandler,
	gameHandler *handlers.GameHandler,
	wsHandler *handlers.WebSocketHandler,
) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", stateHandler.Health)
		r.Get("/state", stateHandler.PublicState)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/state", stateHandler.AdminState)
			r.Get("/game/{gameNo}/history", stateHandler.PublishHistory)
		})

		r.Route("/match", func(r chi.Router) {
			r.Patch("/", matchHandler.UpdateConfig)
			r.Post("/score", matchHandler.SetScore)
			r.Post("/timer/reset", matchHandler.ResetTimer)
		})

		r.Route("/team/{side}", func(r chi.Router) {
			r.Patch("/", matchHandler.UpdateTeam)
			r.Post("/logo", matchHandler.UploadTeamLogo)
		})

		r.Route("/game/{gameNo}", func(r chi.Router) {
			r.Post("/bp", gameHandler.SaveBpDraft)
			r.Post("/publish", gameHandler.PublishBp)
			r.Post("/lock", gameHandler.LockBp)
			r.Post("/result", gameHandler.PublishResult)
			r.Post("/rollback", gameHandler.Rollback)
		})
	})

	router.Get("/ws", wsHandler.ServeWs)

	return router
}

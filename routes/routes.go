package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sergiramirez/tennis-league/handlers"
	"github.com/sergiramirez/tennis-league/middleware"
	"github.com/sergiramirez/tennis-league/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Stats      *handlers.StatsHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	staffOnly := middleware.Authorize(models.RoleStaff)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/confirm", h.Auth.ConfirmEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", h.Tournament.List)
		r.Get("/{id}", h.Tournament.GetByID)
		r.Get("/{id}/standings", h.Stats.TournamentStandings)
		r.Get("/{id}/matches", h.Match.ListByTournament)

		// Запись и снятие с турнира для авторизованных игроков
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{id}/apply", h.Tournament.Apply)
			r.Delete("/{id}/apply", h.Tournament.Withdraw)
		})

		// Управление турниром только для staff
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(staffOnly)
			r.Post("/", h.Tournament.Create)
			r.Put("/{id}", h.Tournament.Update)
			r.Post("/{id}/banner", h.Tournament.UploadBanner)
			r.Post("/{id}/select", h.Tournament.SelectParticipants)
			r.Post("/{id}/settle-round", h.Tournament.SettleRound)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{id}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(staffOnly)
			r.Put("/{id}/sets", h.Match.EnterScores)
		})
	})

	router.Route("/stats", func(r chi.Router) {
		r.Get("/users/{id}", h.Stats.UserStatistics)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.Stats.Me)
		})
	})

	router.Route("/rankings", func(r chi.Router) {
		r.Get("/points", h.Stats.PointsRanking)
		r.Get("/global", h.Stats.GlobalRanking)
	})

	router.Get("/ws/tournaments/{id}", h.WebSocket.ServeWs)

	return router
}

package routes

import (
	"context"
	"log/slog"
	"net/http"

	_ "github.com/Dosada05/esports-platform/docs"
	"github.com/Dosada05/esports-platform/handlers"
	"github.com/Dosada05/esports-platform/metrics"
	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers collects everything the router needs.
type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Dashboard   *handlers.DashboardHandler
	Game        *handlers.GameHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	Payment     *handlers.PaymentHandler
	Leaderboard *handlers.LeaderboardHandler
	Admin       *handlers.AdminHandler
	WebSocket   *handlers.WebSocketHandler

	Authenticator  *middleware.Authenticator
	AuthLimiter    *middleware.IPRateLimiter
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
	HealthCheck    func(ctx context.Context) error
}

func SetupRoutes(router chi.Router, h Handlers) {
	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(h.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(h.Metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.Health(h.HealthCheck))
	router.Handle("/metrics", h.Metrics.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Route("/ws", func(r chi.Router) {
		r.Get("/leaderboard", h.WebSocket.ServeLeaderboard)
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
	})

	authenticated := h.Authenticator.Authenticate
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Route("/api", func(r chi.Router) {
		r.Get("/countries", handlers.Countries)
		r.Get("/regions", handlers.Regions)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(h.AuthLimiter))
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
			})
			r.Post("/logout", h.Auth.Logout)
			r.With(authenticated).Get("/me", h.Auth.Me)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", h.User.GetUser)
			r.Get("/leaderboard", h.User.GetStanding)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/profile", h.User.GetProfile)
			r.Patch("/profile", h.User.UpdateProfile)
			r.Post("/profile/avatar", h.User.UploadAvatar)
			r.Get("/dashboard", h.Dashboard.Dashboard)
			r.Get("/matches", h.Match.ListMine)
			r.Post("/payments/intents", h.Payment.CreateIntent)
			r.Post("/create-payment-intent", h.Payment.CreateIntent)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.Game.List)
			r.Get("/list", h.Game.ListNames)
			r.Get("/genres", h.Game.ListGenres)
			r.Get("/{gameID}", h.Game.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticated, adminOnly)
				r.Post("/", h.Game.Create)
				r.Post("/{gameID}/image", h.Game.UploadImage)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.List)
			r.Get("/live", h.Tournament.ListLive)
			r.With(authenticated).Get("/user", h.Tournament.ListMine)
			r.With(authenticated).Post("/", h.Tournament.Create)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.Get)
				r.Get("/participants", h.Participant.List)
				r.Get("/matches", h.Match.ListByTournament)

				r.Group(func(r chi.Router) {
					r.Use(authenticated)
					r.Patch("/status", h.Tournament.UpdateStatus)
					r.Post("/register", h.Participant.Register)
					r.Post("/join", h.Participant.Register)
					r.Patch("/participants/{userID}/status", h.Participant.UpdateStatus)
					r.Post("/matches", h.Match.Create)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.Match.Get)
			r.With(authenticated).Post("/start", h.Match.Start)
			r.With(authenticated).Post("/result", h.Match.RecordResult)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.Leaderboard.Get)
			r.Get("/top", h.Leaderboard.Top)
			r.With(authenticated, adminOnly).Post("/{userID}/adjust", h.Leaderboard.Adjust)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticated, adminOnly)
			r.Get("/stats", h.Admin.Stats)
			r.Post("/users/{username}/promote", h.Admin.Promote)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}

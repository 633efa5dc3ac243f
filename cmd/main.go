package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/esports-platform/config"
	"github.com/Dosada05/esports-platform/db"
	"github.com/Dosada05/esports-platform/handlers"
	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/metrics"
	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/payments"
	"github.com/Dosada05/esports-platform/repositories"
	api "github.com/Dosada05/esports-platform/routes"
	"github.com/Dosada05/esports-platform/seed"
	"github.com/Dosada05/esports-platform/services"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "esports-platform",
		Usage: "esports tournament platform backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return serve(c.Context) },
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: func(c *cli.Context) error { return migrateCmd() },
			},
			{
				Name:   "seed",
				Usage:  "insert the sample game catalogue",
				Action: func(c *cli.Context) error { return seedCmd(c.Context) },
			},
			{
				Name:      "promote",
				Usage:     "grant the admin role to a user",
				ArgsUsage: "<username>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: esports-platform promote <username>", 2)
					}
					return promoteCmd(c.Context, c.Args().First())
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and switches the default logger to the
// configured level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageBackend),
	)
	return cfg, logger, nil
}

type backend struct {
	store repositories.Storage
	ping  func(ctx context.Context) error
	close func()
}

func openStorage(cfg *config.Config, logger *slog.Logger, migrate bool) (*backend, error) {
	if cfg.StorageBackend == config.BackendMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return &backend{store: repositories.NewMemoryStorage(), close: func() {}}, nil
	}

	if migrate {
		version, err := db.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("database migrations applied", slog.Uint64("version", uint64(version)))
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")

	return &backend{
		store: repositories.NewPostgresStorage(dbConn),
		ping:  dbConn.PingContext,
		close: func() { closeDB(dbConn, logger) },
	}, nil
}

func closeDB(dbConn *sql.DB, logger *slog.Logger) {
	if err := dbConn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.Any("error", err))
		return
	}
	logger.Info("database connection closed")
}

func serve(parent context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openStorage(cfg, logger, cfg.RunMigrations)
	if err != nil {
		return err
	}
	defer b.close()

	// Платежи и загрузка файлов опциональны: без ключей соответствующие
	// эндпоинты отвечают 503.
	processor := payments.NewDisabledProcessor()
	if cfg.StripeSecretKey != "" {
		if processor, err = payments.NewStripeProcessor(cfg.StripeSecretKey, logger); err != nil {
			return fmt.Errorf("failed to initialize payment processor: %w", err)
		}
		logger.Info("Stripe payment processor initialized")
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set; paid registrations are disabled")
	}

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured; image uploads are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация сервисов
	store := b.store
	authService := services.NewAuthService(store, cfg.JWTSecretKey, logger)
	userService := services.NewUserService(store, uploader, logger)
	gameService := services.NewGameService(store, uploader, logger)
	tournamentService := services.NewTournamentService(store, cfg.PaymentCurrency, wsHub, logger)
	registrationService := services.NewRegistrationService(store, processor, m, wsHub, logger)
	matchService := services.NewMatchService(store, m, wsHub, logger)
	leaderboardService := services.NewLeaderboardService(store, wsHub, logger)
	adminService := services.NewAdminService(store, logger)
	logger.Info("Services initialized")

	if cfg.SeedSampleData {
		if _, err := seed.Games(ctx, gameService, logger); err != nil {
			return err
		}
	}

	scheduler, err := services.NewScheduler(store, cfg.ReconcileInterval, m, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()
	logger.Info("Participant counter reconciliation scheduled", slog.Duration("interval", cfg.ReconcileInterval))

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.SecureCookies),
		User:        handlers.NewUserHandler(userService),
		Dashboard:   handlers.NewDashboardHandler(userService),
		Game:        handlers.NewGameHandler(gameService),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Participant: handlers.NewParticipantHandler(tournamentService, registrationService),
		Match:       handlers.NewMatchHandler(matchService),
		Payment:     handlers.NewPaymentHandler(registrationService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Admin:       handlers.NewAdminHandler(adminService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),

		Authenticator:  middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		AuthLimiter:    middleware.NewIPRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		HealthCheck:    b.ping,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
	return nil
}

func migrateCmd() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StorageBackend != config.BackendPostgres {
		return cli.Exit("migrate requires the postgres storage backend (set DATABASE_URL)", 2)
	}
	version, err := db.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	logger.Info("database migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

func seedCmd(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openStorage(cfg, logger, cfg.RunMigrations)
	if err != nil {
		return err
	}
	defer b.close()

	_, err = seed.Games(ctx, services.NewGameService(b.store, nil, logger), logger)
	return err
}

func promoteCmd(ctx context.Context, username string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StorageBackend == config.BackendMemory {
		return cli.Exit("promote needs persistent storage (set DATABASE_URL)", 2)
	}
	b, err := openStorage(cfg, logger, false)
	if err != nil {
		return err
	}
	defer b.close()

	user, err := services.NewAdminService(b.store, logger).PromoteUser(ctx, username)
	if err != nil {
		return err
	}
	logger.Info("user promoted to admin", slog.Int("user_id", user.ID), slog.String("username", user.Username))
	return nil
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aimagehq/aimage-backend/api/routes"
	"github.com/aimagehq/aimage-backend/internal/auth"
	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/digitalhumans"
	"github.com/aimagehq/aimage-backend/internal/generation"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/internal/users"
	"github.com/aimagehq/aimage-backend/pkg/auth/session"
	"github.com/aimagehq/aimage-backend/pkg/config"
	"github.com/aimagehq/aimage-backend/pkg/db"
	"github.com/aimagehq/aimage-backend/pkg/env"
	"github.com/aimagehq/aimage-backend/pkg/logger"
	"github.com/aimagehq/aimage-backend/pkg/metrics"
	"github.com/aimagehq/aimage-backend/pkg/migrate"
	"github.com/aimagehq/aimage-backend/pkg/pubsub"
	"github.com/aimagehq/aimage-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		SignupCredits:  cfg.Signup.Credits,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	creditsService, err := credits.NewService(
		credits.NewRepository(dbClient.DB()),
		logg,
		metrics.NewCreditOpMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}

	projectsRepo := projects.NewRepository(dbClient.DB())

	projectsService, err := projects.NewService(projectsRepo, creditsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}

	jobPublisher, err := generation.NewPubSubPublisher(pubsubClient.GenerationPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create generation publisher", err)
		os.Exit(1)
	}

	generationService, err := generation.NewService(
		projectsService,
		generation.NewRepository(dbClient.DB()),
		jobPublisher,
		creditsService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create generation service", err)
		os.Exit(1)
	}

	digitalHumansService, err := digitalhumans.NewService(
		digitalhumans.NewRepository(dbClient.DB()),
		projectsRepo,
		creditsService,
		generationService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create digital humans service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := env.Get("DYNO", "local")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			PubSub:               pubsubClient,
			Session:              sessionManager,
			AuthService:          authService,
			UsersRepo:            usersRepo,
			CreditsService:       creditsService,
			ProjectsService:      projectsService,
			GenerationService:    generationService,
			DigitalHumansService: digitalHumansService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/digitalhumans"
	"github.com/aimagehq/aimage-backend/internal/generation"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/pkg/config"
	"github.com/aimagehq/aimage-backend/pkg/db"
	"github.com/aimagehq/aimage-backend/pkg/logger"
	"github.com/aimagehq/aimage-backend/pkg/metrics"
	"github.com/aimagehq/aimage-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "generation-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "generation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "generation-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	creditsService, err := credits.NewService(
		credits.NewRepository(dbClient.DB()),
		logg,
		metrics.NewCreditOpMetrics(prometheus.DefaultRegisterer),
	)
	requireResource(ctx, logg, "credits service", err)

	projectsService, err := projects.NewService(projects.NewRepository(dbClient.DB()), creditsService, logg)
	requireResource(ctx, logg, "projects service", err)

	provider, err := generation.NewHTTPProvider(cfg.Provider)
	requireResource(ctx, logg, "generation provider", err)

	consumer, err := generation.NewConsumer(
		generation.NewRepository(dbClient.DB()),
		projectsService,
		digitalhumans.NewRepository(dbClient.DB()),
		creditsService,
		provider,
		pubsubClient.GenerationSubscription(),
		logg,
		metrics.NewWorkerJobMetrics(prometheus.DefaultRegisterer),
	)
	requireResource(ctx, logg, "generation consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "generation worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "generation worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimagehq/aimage-backend/api/controllers"
	"github.com/aimagehq/aimage-backend/api/middleware"
	"github.com/aimagehq/aimage-backend/internal/auth"
	"github.com/aimagehq/aimage-backend/internal/credits"
	"github.com/aimagehq/aimage-backend/internal/digitalhumans"
	"github.com/aimagehq/aimage-backend/internal/generation"
	"github.com/aimagehq/aimage-backend/internal/projects"
	"github.com/aimagehq/aimage-backend/internal/users"
	"github.com/aimagehq/aimage-backend/pkg/auth/session"
	"github.com/aimagehq/aimage-backend/pkg/config"
	"github.com/aimagehq/aimage-backend/pkg/db"
	"github.com/aimagehq/aimage-backend/pkg/logger"
	"github.com/aimagehq/aimage-backend/pkg/pubsub"
	"github.com/aimagehq/aimage-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Nil optional members
// degrade the related middleware instead of panicking.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	PubSub  *pubsub.Client
	Session session.AccessSessionChecker

	AuthService          auth.Service
	UsersRepo            *users.Repository
	CreditsService       credits.Service
	ProjectsService      projects.Service
	GenerationService    generation.Service
	DigitalHumansService digitalhumans.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.CORS(),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(deps.DB, deps.Redis, deps.PubSub)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Get("/api/v1/credits/packages", controllers.CreditPackages())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/users/me", controllers.UsersMe(deps.UsersRepo, logg))

		r.Route("/credits", func(r chi.Router) {
			r.Get("/balance", controllers.CreditBalance(deps.CreditsService, logg))
			r.Get("/transactions", controllers.CreditTransactions(deps.CreditsService, logg))
			r.Post("/purchase", controllers.CreditPurchase(deps.CreditsService, logg))
			r.Post("/refund", controllers.CreditRefund(deps.CreditsService, logg))
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(deps.ProjectsService, logg))
			r.Post("/", controllers.ProjectCreate(deps.ProjectsService, logg))
			r.Get("/{projectId}", controllers.ProjectDetail(deps.ProjectsService, logg))
			r.Patch("/{projectId}", controllers.ProjectUpdate(deps.ProjectsService, logg))
			r.Get("/{projectId}/task", controllers.GenerationTaskDetail(deps.GenerationService, logg))
		})

		r.Route("/digital-humans", func(r chi.Router) {
			r.Get("/", controllers.DigitalHumanList(deps.DigitalHumansService, logg))
			r.Post("/", controllers.DigitalHumanCreate(deps.DigitalHumansService, logg))
			r.Get("/{digitalHumanId}", controllers.DigitalHumanDetail(deps.DigitalHumansService, logg))
			r.Put("/{digitalHumanId}", controllers.DigitalHumanUpdate(deps.DigitalHumansService, logg))
			r.Delete("/{digitalHumanId}", controllers.DigitalHumanDelete(deps.DigitalHumansService, logg))
			r.Post("/{digitalHumanId}/generate-video", controllers.DigitalHumanGenerateVideo(deps.DigitalHumansService, logg))
		})

		r.Post("/generate", controllers.Generate(deps.GenerationService, logg))
	})

	return r
}

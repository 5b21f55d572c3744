package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/aimagehq/aimage-backend/api/responses"
	"github.com/aimagehq/aimage-backend/pkg/config"
	pkgerrors "github.com/aimagehq/aimage-backend/pkg/errors"
	"github.com/aimagehq/aimage-backend/pkg/logger"
)

const readinessProbeTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AIMAGE-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every hard dependency. A nil pinger is treated as
// not wired for this deployment and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AIMAGE-Env", cfg.App.Env)

		statuses := map[string]string{}
		failed := false
		for name, dep := range deps {
			if dep == nil {
				statuses[name] = "skipped"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
			err := dep.Ping(ctx)
			cancel()
			if err != nil {
				failed = true
				statuses[name] = "unreachable"
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "readiness probe failed", err)
				}
				continue
			}
			statuses[name] = "ok"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}

// ReadinessDeps assembles the named dependency set for HealthReady.
func ReadinessDeps(db, redis, pubsub pinger) map[string]pinger {
	return map[string]pinger{
		"db":     db,
		"redis":  redis,
		"pubsub": pubsub,
	}
}

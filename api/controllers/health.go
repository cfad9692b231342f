package controllers

import (
	"context"
	"net/http"

	"github.com/yourflorist/storefront/api/responses"
	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/logger"
)

// Pinger is any dependency with a health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady verifies the session store and catalog cache are reachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, kvPinger, dbPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{}
		healthy := true

		if kvPinger != nil {
			if err := kvPinger.Ping(ctx); err != nil {
				checks["kv"] = err.Error()
				healthy = false
			} else {
				checks["kv"] = "ok"
			}
		}
		if dbPinger != nil {
			if err := dbPinger.Ping(ctx); err != nil {
				checks["db"] = err.Error()
				healthy = false
			} else {
				checks["db"] = "ok"
			}
		}

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"checks": checks}), "readiness check failed")
			}
		}

		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}

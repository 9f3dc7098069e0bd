package controllers

import (
	"net/http"

	"github.com/mealroute/lunchbox-backend/api/responses"
	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgdb "github.com/mealroute/lunchbox-backend/pkg/db"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	pkgredis "github.com/mealroute/lunchbox-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lunchbox-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and redis answer a
// ping.
func HealthReady(cfg *config.Config, db pkgdb.Pinger, cache pkgredis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Lunchbox-Env", cfg.App.Env)

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/mealroute/lunchbox-backend/pkg/config"
)

// CORS builds the cross-origin policy for browser clients. Dev environments
// additionally allow localhost origins.
func CORS(cfg config.AppConfig) func(http.Handler) http.Handler {
	origins := append([]string{}, cfg.AllowedOrigins...)
	if cfg.IsDev() {
		origins = append(origins, "http://localhost:3000", "http://localhost:5173")
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

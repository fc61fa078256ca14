package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"infergate/internal/handlers"
	"infergate/internal/metrics"
	"infergate/internal/middleware"
)

// SetupRouter mounts all routes. corsOrigin may be empty (no CORS layer).
func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, gw *handlers.Gateway, corsOrigin string) {
	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	if corsOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{corsOrigin},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.MaxBodySize(8 * 1024 * 1024)) // messages may embed data-URI images

	r.Route("/api", func(r chi.Router) {
		// No timeout on the streaming routes: a relay stream runs as long
		// as the generation does.
		r.Post("/chat", gw.Chat)
		r.Post("/compare", gw.Compare)
		r.With(middleware.Timeout(15 * time.Second)).Get("/models", gw.Models)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}

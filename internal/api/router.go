// Package api provides the HTTP API for the bulk mailing service.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/corpola/bulkmail/internal/api/handlers"
	"github.com/corpola/bulkmail/internal/health"
	"github.com/corpola/bulkmail/pkg/metrics"
)

// RouterConfig holds the optional pieces of the router.
type RouterConfig struct {
	Health  *health.Handler
	Metrics *metrics.Registry
}

// NewRouter creates a chi router with all routes and middleware configured.
func NewRouter(h *handlers.Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
	}

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/mailings", h.SubmitMailing)

		r.Route("/mail-types", func(r chi.Router) {
			r.Post("/", h.CreateMailType)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/template", h.GetActiveTemplate)
				r.Post("/template", h.CreateTemplate)
				r.Put("/template", h.UpdateTemplate)
				r.Get("/images", h.ListInlineImages)
				r.Post("/images", h.CreateInlineImage)
				r.Put("/images/{cid}", h.ReplaceInlineImage)
			})
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", h.ListDeliveries)
			r.Get("/{id}", h.GetDelivery)
		})
	})

	return r
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			reg.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}

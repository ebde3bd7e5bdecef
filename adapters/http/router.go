package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/metrics"
	"github.com/ravindran79-arch/smartbid-compliance/docs/swagger"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // serves MetricsPath when Metrics is set
	MetricsPath    string       // default /metrics
	EnableOpenAPI  bool
	RequestTimeout time.Duration                   // default 150s, above the model client timeout
	RateLimit      func(http.Handler) http.Handler // applied to model-backed routes when set
	Version        string
	Commit         string
}

// NewRouter creates the main HTTP router.
func NewRouter(h *Handler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	// Health endpoints (no auth required)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", VersionHandler(cfg.Version, cfg.Commit))

	if cfg.Metrics != nil && cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	if cfg.EnableOpenAPI {
		r.Get("/.well-known/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write([]byte(swagger.SwaggerInfo.ReadDoc()))
		})
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	// The live feed is long-lived and must not inherit the request timeout.
	r.Get("/api/usage/{userID}/live", h.LiveUsage)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 150 * time.Second
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.With(limited(cfg.RateLimit)).Post("/api/analyze", h.Analyze)
		r.Post("/api/create-portal-session", h.CreatePortalSession)
		// Billing webhooks are unauthenticated; the handler verifies the signature.
		r.Post("/api/webhook", h.Webhook)

		r.With(limited(cfg.RateLimit)).Post("/api/audits", h.RunAudit)
		r.Get("/api/usage/{userID}", h.GetUsage)

		r.Get("/api/reports", h.ListReports)
		r.Get("/api/reports/{id}", h.GetReport)
		r.Delete("/api/reports/{id}", h.DeleteReport)
	})

	return r
}

func limited(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

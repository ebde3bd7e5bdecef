// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file when one exists and from SMARTBID_*
// environment variables otherwise.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/clock"
	apihttp "github.com/ravindran79-arch/smartbid-compliance/adapters/http"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/idgen"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/llm"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/memory"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/metrics"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/payment"
	"github.com/ravindran79-arch/smartbid-compliance/app"
	"github.com/ravindran79-arch/smartbid-compliance/config"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 30 * time.Second

// Options configures application initialization.
type Options struct {
	// ConfigPath is the YAML file to load. When empty or missing, the
	// configuration is built from the environment.
	ConfigPath string

	// Version and Commit are reported by /version.
	Version string
	Commit  string

	// LogOutput receives log lines (default: stdout).
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Stores     *Stores
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Feed       *app.UsageFeed
	Usage      *app.UsageService
	Limiter    *memory.RateLimiter // nil unless rate_limit.enabled
	HTTPServer *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates and initializes the application.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stdout
	}

	holder, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	logger := NewLogger(cfg.Logging, opts.LogOutput)
	holder.SetLogger(logger)

	logger.Info().
		Str("config", holder.Path()).
		Str("database", cfg.Database.Driver).
		Str("usage_backend", cfg.Usage.Backend).
		Msg("initializing smartbid")

	a := &App{
		Logger: logger,
		Config: holder,
	}

	clk := clock.Real{}

	stores, err := OpenStores(ctx, cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	a.Stores = stores

	// A private registry keeps repeated App construction (tests, CLI) free of
	// duplicate registration panics.
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWithRegistry(a.Registry)

	a.Feed = app.NewUsageFeed(a.Metrics)

	generator := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		BaseURL:        cfg.LLM.BaseURL,
		MaxRetries:     cfg.LLM.MaxRetries,
		InitialBackoff: cfg.LLM.InitialBackoff,
		Timeout:        cfg.LLM.Timeout,
		Logger:         logger.With().Str("component", "llm").Logger(),
	})
	if cfg.LLM.APIKey == "" {
		logger.Warn().Msg("generative AI API key not set, analysis and audits will fail")
	}

	provider, err := payment.NewProvider(cfg.Billing.Provider, payment.StripeConfig{
		SecretKey:     cfg.Billing.SecretKey,
		WebhookSecret: cfg.Billing.WebhookSecret,
		APIURL:        cfg.Billing.APIURL,
	})
	if err != nil {
		a.closeStores()
		return nil, fmt.Errorf("build payment provider: %w", err)
	}
	if cfg.Billing.WebhookSecret == "" {
		logger.Warn().Msg("billing webhook secret not set, webhooks will be refused")
	}

	a.Usage = app.NewUsageService(stores.Usage, a.Feed, cfg.Usage.TrialLimit, logger).WithMetrics(a.Metrics)
	services := apihttp.Services{
		Usage:    a.Usage,
		Audits:   app.NewAuditService(a.Usage, stores.Reports, generator, idgen.UUID{}, clk, logger).WithMetrics(a.Metrics),
		Reports:  app.NewReportService(stores.Reports, logger),
		Billing:  app.NewBillingService(stores.Usage, provider, a.Feed, cfg.Billing.ReturnURL, logger).WithMetrics(a.Metrics),
		Analysis: app.NewAnalysisService(generator, logger).WithMetrics(a.Metrics),
		Feed:     a.Feed,
	}

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		a.Limiter = memory.NewRateLimiter(memory.RateLimiterConfig{Policy: cfg.RateLimit.Policy()})
		rateLimit = apihttp.NewRateLimitMiddleware(a.Limiter, a.Metrics, logger)
		logger.Info().
			Int("requests", cfg.RateLimit.Requests).
			Dur("window", cfg.RateLimit.Window).
			Int("burst", cfg.RateLimit.Burst).
			Msg("rate limiting model-backed routes")
	}

	router := apihttp.NewRouter(
		apihttp.NewHandler(services, logger),
		apihttp.NewHealthHandler(stores.Usage),
		logger,
		apihttp.RouterConfig{
			Metrics:        a.metricsIfEnabled(cfg),
			MetricsHandler: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
			MetricsPath:    cfg.Metrics.Path,
			EnableOpenAPI:  cfg.OpenAPI.Enabled,
			RequestTimeout: cfg.Server.RequestTimeout,
			RateLimit:      rateLimit,
			Version:        opts.Version,
			Commit:         opts.Commit,
		},
	)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.watchConfig()

	logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server configured")
	return a, nil
}

func (a *App) metricsIfEnabled(cfg *config.Config) *metrics.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	a.Logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	return a.Metrics
}

// watchConfig applies reloadable settings when the config holder changes.
func (a *App) watchConfig() {
	a.Config.OnChange(func(cfg *config.Config) {
		a.Usage.SetLimit(cfg.Usage.TrialLimit)
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	})
	a.Config.OnError(func(error) {
		a.Metrics.ConfigReloadErrors.Inc()
	})
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// down gracefully. File and SIGHUP config reloads are active while running.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Config.WatchSignals()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the application. Open live feeds are closed
// first so their handlers return before the server drains. Later calls return
// the first call's result.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if a.Config != nil {
		a.Config.Stop()
	}

	if a.Feed != nil {
		a.Feed.Close()
	}

	var errs []error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}

	if a.Limiter != nil {
		a.Limiter.Close()
	}

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	if a.Stores == nil {
		return nil
	}
	err := a.Stores.Close()
	if err != nil {
		a.Logger.Error().Err(err).Msg("store close error")
	}
	a.Stores = nil
	return err
}

// loadConfig returns a watching holder for an existing file and a static
// holder built from the environment otherwise.
func loadConfig(path string) (*config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return config.NewHolder(path, zerolog.Nop())
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.NewStaticHolder(cfg, zerolog.Nop()), nil
}

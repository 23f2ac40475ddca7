package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-co-op/gocron"

	"ecommerce-analytics/internal/config"
	"ecommerce-analytics/internal/dataset"
	"ecommerce-analytics/internal/handlers"
	"ecommerce-analytics/internal/loader"
	"ecommerce-analytics/internal/middleware"
	"ecommerce-analytics/internal/observability"
	"ecommerce-analytics/internal/server"
	"ecommerce-analytics/internal/services"
	"ecommerce-analytics/internal/store"
	"ecommerce-analytics/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
	sweepInterval = 5 * time.Minute
)

// dashboardHandler renders the dashboard shell with the filter options of the
// currently loaded dataset.
func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(analytics.FilterOptions()).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// openSource builds the configured dataset source. The returned close func
// releases the database connection when one was opened.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dataset.Source, func() error, error) {
	noop := func() error { return nil }
	cache := loader.NewCache(cfg.Data.CacheDir)

	generated := &dataset.Generated{
		Seed:         cfg.Data.Seed,
		Transactions: cfg.Data.Transactions,
		Customers:    cfg.Data.Customers,
		Products:     cfg.Data.Products,
	}

	var primary dataset.Source
	switch cfg.Data.Source {
	case config.SourceSnapshot:
		primary = &dataset.Snapshot{
			Dir:           cfg.Data.Dir,
			PreferUnified: cfg.Data.PreferUnified,
			Cache:         cache,
			Logger:        logger,
		}
	case config.SourceCSV:
		primary = &dataset.CSV{Dir: cfg.Data.Dir, Cache: cache, Logger: logger}
	case config.SourceDatabase:
		st, err := store.Open(cfg.Database, logger)
		if err != nil {
			return nil, noop, err
		}
		if cfg.Database.AutoMigrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, noop, err
			}
		}
		return st, st.Close, nil
	case config.SourceGenerate:
		return generated, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}

	if !cfg.Data.GenerateMissing {
		return primary, noop, nil
	}
	return &dataset.OrGenerate{
		Primary:   primary,
		Generator: generated,
		Persist:   loader.SnapshotFiles(cfg.Data.Dir, false),
		Logger:    logger,
	}, noop, nil
}

func newHandler(cfg *config.Config, analytics *services.Analytics, data handlers.Reloader, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, data, cfg.Security.AdminToken, logger, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"config", cfg,
	)

	src, closeSource, err := openSource(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open data source", "source", cfg.Data.Source, "error", err)
		os.Exit(1)
	}

	holder := dataset.NewHolder(src, cfg.Data.LoadTimeout, logger)
	if err := holder.Refresh(context.Background()); err != nil {
		// The API answers 503 until a scheduled or manual refresh succeeds.
		logger.Error("initial dataset load failed", "source", src.Name(), "error", err)
	}

	analytics := services.NewAnalytics(holder, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	scheduler := gocron.NewScheduler(time.UTC)
	if err := holder.Schedule(scheduler, cfg.Data.CacheTTL); err != nil {
		logger.Error("failed to schedule dataset refresh", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Every(sweepInterval).WaitForSchedule().Tag("rate-limit-sweep").Do(func() {
		if n := rateLimiter.Sweep(); n > 0 {
			logger.Debug("swept idle rate limiters", "removed", n)
		}
	}); err != nil {
		logger.Error("failed to schedule rate limiter sweep", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, holder, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("scheduler", func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	gracefulServer.RegisterShutdownHook("data source", func(ctx context.Context) error {
		logger.Info("closing data source", "source", src.Name())
		return closeSource()
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

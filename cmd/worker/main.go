package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sportsync/ingestion/internal/admin"
	"sportsync/ingestion/internal/app"
	"sportsync/ingestion/internal/config"
	"sportsync/ingestion/internal/metrics"
	"sportsync/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting sports data ingestion worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}
	defer a.Close()
	log.Info().Msg("Database connection established")

	if cfg.SeedOnStartup {
		report, err := a.Seeder.Seed(ctx, a.Catalog)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed job catalog")
		}
		log.Info().Str("report", report.Summary()).Msg("Job catalog seeded")
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(ctx, cfg.MetricsPort, a)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				a.DB.PoolStats()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(scheduler.Config{
		Interval:           cfg.DispatchInterval,
		Lease:              cfg.LeaseDuration,
		Concurrency:        cfg.DispatchConcurrency,
		EnableBackfillCron: cfg.EnableBackfillCron,
		BackfillCron:       cfg.BackfillCron,
		BackfillLeagues:    cfg.BackfillLeagues,
		BackfillFrom:       cfg.BackfillFromSeason,
		BackfillTo:         cfg.BackfillToSeason,
	}, a.Dispatcher, a.Orchestrator)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	var adminServer *http.Server
	if cfg.EnableAdminAPI {
		adminServer = startAdminServer(cfg, a)
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	if adminServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Admin server shutdown failed")
		}
		shutdownCancel()
	}

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func startAdminServer(cfg *config.Config, a *app.App) *http.Server {
	router := admin.NewRouter(a.Console, a.Assessor, a.DB, admin.Options{
		APIKey:         cfg.AdminAPIKey,
		AllowedOrigins: cfg.AdminAllowedOrigins,
		RateLimit:      cfg.AdminRateLimit,
		RateWindow:     cfg.AdminRateWindow,
		TokenTTL:       cfg.AdminTokenTTL,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AdminPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY is not set; every admin operation will be denied")
	}

	go func() {
		log.Info().Int("port", cfg.AdminPort).Msg("Starting admin server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server failed")
		}
	}()

	return srv
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, port int, a *app.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := a.DB.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

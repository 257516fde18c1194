// Package app wires configuration, storage, the provider adapter and the job
// core into the components the worker and the operator CLI run.
package app

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/cache"
	"sportsync/ingestion/internal/config"
	"sportsync/ingestion/internal/fetch"
	"sportsync/ingestion/internal/handlers"
	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/provider/espn"
	"sportsync/ingestion/internal/repository"
)

// App holds the wired components
type App struct {
	Config       *config.Config
	DB           *repository.Database
	Redis        *cache.RedisCache
	Registry     *jobs.Registry
	Dispatcher   *jobs.Dispatcher
	Seeder       *jobs.Seeder
	Console      *jobs.Console
	Catalog      []jobs.CatalogEntry
	Assessor     *backfill.Assessor
	Orchestrator *backfill.Orchestrator
}

// New connects to the database (and Redis when enabled) and builds every
// component. Redis is optional: a failed connection is logged and the
// process continues with in-memory tokens and no response cache.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Provider != "espn" {
		return nil, errors.Newf("unsupported provider %q", cfg.Provider)
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate database")
		}
	}

	a := &App{Config: cfg, DB: db}

	fetchOpts := fetch.Options{
		Timeout:   cfg.FetchTimeout,
		Delay:     cfg.FetchDelay,
		UserAgent: cfg.FetchUserAgent,
		CacheTTL:  cfg.FetchCacheTTL,
	}
	var tokens jobs.TokenStore = jobs.NewMemoryTokenStore()

	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			a.Redis = redisCache
			tokens = jobs.NewSharedTokenStore(redisCache)
			if cfg.FetchCacheTTL > 0 {
				fetchOpts.Cache = redisCache
			}
		}
	}

	provider := espn.NewClient(fetch.NewClient(fetchOpts), cfg.ESPNSiteBaseURL, cfg.ESPNCoreBaseURL)

	deps := &handlers.Deps{
		Provider:     provider,
		Leagues:      db.Leagues,
		Clubs:        db.Clubs,
		Fixtures:     db.Fixtures,
		DeepData:     db.DeepData,
		Platinum:     db.Platinum,
		Counts:       db.Seasons,
		LeagueCodes:  cfg.BackfillLeagues,
		BackfillFrom: cfg.BackfillFromSeason,
		BackfillTo:   cfg.BackfillToSeason,
	}

	a.Registry = jobs.NewRegistry()
	if err := handlers.Register(a.Registry, deps); err != nil {
		a.Close()
		return nil, errors.Wrap(err, "register handlers")
	}

	a.Dispatcher = jobs.NewDispatcher(db.Jobs, db.Runs, a.Registry, jobs.DispatcherConfig{
		Candidates: cfg.DispatchCandidates,
		Retry: jobs.RetryPolicy{
			Base: cfg.RetryBackoffBase,
			Max:  cfg.RetryBackoffMax,
		},
	})
	a.Seeder = jobs.NewSeeder(db.Jobs)
	a.Catalog = jobs.DefaultCatalog(cfg.Provider, cfg.JobMaxAttempts)
	a.Console = jobs.NewConsole(jobs.ConsoleConfig{
		Store:      db.Jobs,
		Runs:       db.Runs,
		Seeder:     a.Seeder,
		Dispatcher: a.Dispatcher,
		Tokens:     tokens,
		Catalog:    a.Catalog,
		TokenTTL:   cfg.AdminTokenTTL,
	})
	a.Assessor = backfill.NewAssessor(db.Seasons)
	a.Orchestrator = deps.Orchestrator()

	log.Info().
		Str("provider", cfg.Provider).
		Str("worker_id", a.Dispatcher.WorkerID()).
		Int("handlers", len(a.Registry.Types())).
		Bool("redis", a.Redis != nil).
		Msg("Components initialized")

	return a, nil
}

// Close releases the database pool and Redis connection
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

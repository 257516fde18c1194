// Package admin exposes the operator console over a small JSON HTTP API.
package admin

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

// Operator is the privileged surface the API delegates to
type Operator interface {
	Jobs(ctx context.Context, p jobs.Principal) ([]*models.Job, error)
	Runs(ctx context.Context, p jobs.Principal, jobID int64, limit int) ([]*models.JobRun, error)
	IssueToken(ctx context.Context, p jobs.Principal, action jobs.Action, jobID int64) (string, error)
	Perform(ctx context.Context, p jobs.Principal, action jobs.Action, jobID int64, token string) error
	SeedCatalog(ctx context.Context, p jobs.Principal) (*jobs.SeedReport, error)
	DispatchOnce(ctx context.Context, p jobs.Principal, leaseSeconds int) (*jobs.Outcome, error)
}

// Assessor reports how complete a league season is
type Assessor interface {
	Assess(ctx context.Context, leagueCode string, seasonYear int) (*models.SeasonHealth, error)
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Health(ctx context.Context) error
}

// Options configures the router
type Options struct {
	APIKey         string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
	TokenTTL       time.Duration
}

// NewRouter creates the chi router with all middleware and routes
func NewRouter(op Operator, assessor Assessor, db Pinger, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	c := corslib.New(corslib.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Confirm-Token"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	if opts.RateLimit > 0 && opts.RateWindow > 0 {
		r.Use(RateLimit(opts.RateLimit, opts.RateWindow))
	}

	h := &handler{op: op, assessor: assessor, db: db, tokenTTL: opts.TokenTTL}

	r.Get("/healthz", h.healthz)

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(Authenticate(opts.APIKey))

		r.Get("/jobs", h.listJobs)
		r.Get("/jobs/{id}/runs", h.listRuns)
		r.Post("/jobs/{id}/tokens", h.issueToken)
		r.Post("/jobs/{id}/actions/{action}", h.perform)
		r.Post("/seed", h.seed)
		r.Post("/dispatch", h.dispatch)
		r.Get("/health/{league}/{season}", h.seasonHealth)
	})

	return r
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"sportsync/ingestion/internal/metrics"
	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Action is a manual operation on a single job
type Action string

const (
	ActionRunNow Action = "run_now"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionRetry  Action = "retry"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionRunNow, ActionPause, ActionResume, ActionRetry:
		return a, true
	default:
		return "", false
	}
}

// Principal is the caller of an administrative operation
type Principal struct {
	Name     string
	Elevated bool
}

// ConsoleConfig wires a Console
type ConsoleConfig struct {
	Store      Store
	Runs       RunLog
	Seeder     *Seeder
	Dispatcher *Dispatcher
	Tokens     TokenStore
	Catalog    []CatalogEntry
	TokenTTL   time.Duration
}

// Console is the privileged operator surface. Job actions need an elevated
// principal and a single-use confirmation token bound to the same action
// and job; every failure is reported as ErrDenied.
type Console struct {
	store      Store
	runs       RunLog
	seeder     *Seeder
	dispatcher *Dispatcher
	tokens     TokenStore
	catalog    []CatalogEntry
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewConsole creates a console
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewMemoryTokenStore()
	}
	return &Console{
		store:      cfg.Store,
		runs:       cfg.Runs,
		seeder:     cfg.Seeder,
		dispatcher: cfg.Dispatcher,
		tokens:     cfg.Tokens,
		catalog:    cfg.Catalog,
		tokenTTL:   cfg.TokenTTL,
		now:        time.Now,
	}
}

// IssueToken returns a confirmation token for one action on one job
func (c *Console) IssueToken(ctx context.Context, p Principal, action Action, jobID int64) (string, error) {
	if !p.Elevated {
		return "", c.deny(p, action, jobID, errors.New("principal is not elevated"))
	}
	if _, ok := ParseAction(string(action)); !ok {
		return "", c.deny(p, action, jobID, errors.Newf("unknown action %q", action))
	}

	token := uuid.NewString()
	if err := c.tokens.Put(ctx, token, binding(action, jobID), c.tokenTTL); err != nil {
		return "", c.deny(p, action, jobID, err)
	}
	return token, nil
}

// Perform runs action on jobID after checking privilege and redeeming token
func (c *Console) Perform(ctx context.Context, p Principal, action Action, jobID int64, token string) error {
	if !p.Elevated {
		return c.deny(p, action, jobID, errors.New("principal is not elevated"))
	}
	if _, ok := ParseAction(string(action)); !ok {
		return c.deny(p, action, jobID, errors.Newf("unknown action %q", action))
	}
	if token == "" {
		return c.deny(p, action, jobID, errors.New("missing confirmation token"))
	}

	bound, ok, err := c.tokens.Take(ctx, token)
	if err != nil {
		return c.deny(p, action, jobID, err)
	}
	if !ok {
		return c.deny(p, action, jobID, errors.New("confirmation token unknown, expired or already used"))
	}
	if bound != binding(action, jobID) {
		return c.deny(p, action, jobID, errors.Newf("confirmation token bound to %s", bound))
	}

	now := c.now().UTC()
	switch action {
	case ActionRunNow:
		err = c.store.RunNow(ctx, jobID, now)
	case ActionPause:
		err = c.store.Pause(ctx, jobID)
	case ActionResume:
		err = c.store.Resume(ctx, jobID, now)
	case ActionRetry:
		err = c.store.Retry(ctx, jobID, now)
	}
	if err != nil {
		return c.deny(p, action, jobID, err)
	}

	metrics.RecordAdminAction(string(action), "ok")
	log.Info().
		Str("principal", p.Name).
		Str("action", string(action)).
		Int64("job_id", jobID).
		Msg("Administrative action applied")
	return nil
}

// SeedCatalog reconciles the job table with the configured catalog
func (c *Console) SeedCatalog(ctx context.Context, p Principal) (*SeedReport, error) {
	if !p.Elevated {
		return nil, c.deny(p, "seed_catalog", 0, errors.New("principal is not elevated"))
	}
	report, err := c.seeder.Seed(ctx, c.catalog)
	if err != nil {
		return nil, errors.Wrap(err, "seed catalog")
	}
	metrics.RecordAdminAction("seed_catalog", "ok")
	return report, nil
}

// DispatchOnce runs a single dispatch pass with a lease of leaseSeconds
func (c *Console) DispatchOnce(ctx context.Context, p Principal, leaseSeconds int) (*Outcome, error) {
	if !p.Elevated {
		return nil, c.deny(p, "dispatch_once", 0, errors.New("principal is not elevated"))
	}
	if leaseSeconds <= 0 {
		return nil, c.deny(p, "dispatch_once", 0, errors.Newf("lease_seconds must be positive, got %d", leaseSeconds))
	}
	outcome, err := c.dispatcher.DispatchOnce(ctx, time.Duration(leaseSeconds)*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "dispatch once")
	}
	metrics.RecordAdminAction("dispatch_once", "ok")
	return outcome, nil
}

// Jobs lists every job
func (c *Console) Jobs(ctx context.Context, p Principal) ([]*models.Job, error) {
	if !p.Elevated {
		return nil, c.deny(p, "list_jobs", 0, errors.New("principal is not elevated"))
	}
	return c.store.List(ctx)
}

// Runs lists the most recent runs of a job
func (c *Console) Runs(ctx context.Context, p Principal, jobID int64, limit int) ([]*models.JobRun, error) {
	if !p.Elevated {
		return nil, c.deny(p, "list_runs", jobID, errors.New("principal is not elevated"))
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return c.runs.ListRuns(ctx, jobID, limit)
}

func (c *Console) deny(p Principal, action Action, jobID int64, cause error) error {
	metrics.RecordAdminAction(string(action), "denied")
	log.Warn().
		Err(cause).
		Str("principal", p.Name).
		Str("action", string(action)).
		Int64("job_id", jobID).
		Msg("Administrative action denied")
	return ErrDenied
}

func binding(action Action, jobID int64) string {
	return fmt.Sprintf("%s:%d", action, jobID)
}

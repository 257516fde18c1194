// Package handlers implements the work behind each sync job type.
package handlers

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
	"sportsync/ingestion/internal/provider/espn"
)

// ErrUnsupportedLeague is returned when a job targets a league the provider
// adapter does not know
var ErrUnsupportedLeague = errors.New("unsupported league")

// Provider is the upstream data source the handlers read from
type Provider interface {
	League(ctx context.Context, code string) (*models.League, bool, error)
	Clubs(ctx context.Context, code string) ([]models.Club, error)
	Scoreboard(ctx context.Context, code string, from, to time.Time) ([]models.Fixture, int, error)
	EventIndex(ctx context.Context, code string, season, page int) (*espn.EventPage, error)
	Summary(ctx context.Context, code, eventID string) (*models.MatchSummary, bool, bool, error)
	Transfers(ctx context.Context, code string, season int) ([]models.Transfer, error)
	Leaders(ctx context.Context, code string, season int) ([]models.SeasonStat, error)
}

// LeagueStore persists leagues
type LeagueStore interface {
	Upsert(ctx context.Context, league *models.League) error
}

// ClubStore persists clubs
type ClubStore interface {
	Upsert(ctx context.Context, club *models.Club) error
}

// FixtureStore persists fixtures
type FixtureStore interface {
	Upsert(ctx context.Context, f *models.Fixture) (bool, error)
	ListForDeepData(ctx context.Context, leagueCode string, seasonYear int) ([]*models.Fixture, error)
	ListUnsettled(ctx context.Context, since, until time.Time) ([]*models.Fixture, error)
	UpdateResult(ctx context.Context, f *models.Fixture) error
}

// DeepDataStore persists per-fixture lineups and commentary
type DeepDataStore interface {
	ReplaceLineups(ctx context.Context, fixtureID int64, entries []models.LineupEntry) (int, error)
	ReplaceCommentary(ctx context.Context, fixtureID int64, entries []models.CommentaryEntry) (int, error)
}

// PlatinumStore persists season-level transfers and leaderboards
type PlatinumStore interface {
	UpsertTransfers(ctx context.Context, transfers []models.Transfer) (int, error)
	UpsertSeasonStats(ctx context.Context, stats []models.SeasonStat) (int, error)
}

// Deps wires the handlers to their provider and stores
type Deps struct {
	Provider Provider
	Leagues  LeagueStore
	Clubs    ClubStore
	Fixtures FixtureStore
	DeepData DeepDataStore
	Platinum PlatinumStore
	Counts   backfill.CountSource

	// LeagueCodes are synced when a job names no competition
	LeagueCodes []string

	// FixtureLookback and FixtureLookahead bound the sync-fixtures window
	FixtureLookback  time.Duration
	FixtureLookahead time.Duration

	// ResultsLookback bounds how far back sync-results looks for unsettled fixtures
	ResultsLookback time.Duration

	// BackfillFrom and BackfillTo bound the seasons a scope-less backfill visits
	BackfillFrom int
	BackfillTo   int

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// leaguesFor returns the leagues a task covers. A task naming a competition
// covers only that one.
func (d *Deps) leaguesFor(task jobs.Task) ([]espn.League, error) {
	codes := d.LeagueCodes
	if task.CompetitionCode != "" {
		codes = []string{task.CompetitionCode}
	}
	if len(codes) == 0 {
		return nil, errors.New("no leagues configured")
	}

	out := make([]espn.League, 0, len(codes))
	for _, code := range codes {
		l, ok := espn.LookupLeague(code)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedLeague, "%q", code)
		}
		out = append(out, l)
	}
	return out, nil
}

// SupportedLeague reports whether the provider adapter knows code
func SupportedLeague(code string) bool {
	_, ok := espn.LookupLeague(code)
	return ok
}

// Orchestrator returns a backfill orchestrator over the deps' stores
func (d *Deps) Orchestrator() *backfill.Orchestrator {
	scraper := NewSeasonScraper(d.Provider, d.Fixtures, d.DeepData, d.Platinum)
	return backfill.NewOrchestrator(backfill.NewAssessor(d.Counts), scraper, SupportedLeague)
}

// Register binds a handler for every job type to registry
func Register(registry *jobs.Registry, deps *Deps) error {
	orchestrator := deps.Orchestrator()

	handlers := map[models.JobType]jobs.Handler{
		models.JobSyncLeagues:    &syncLeagues{deps: deps},
		models.JobSyncClubs:      &syncClubs{deps: deps},
		models.JobSyncFixtures:   &syncFixtures{deps: deps},
		models.JobSyncResults:    &syncResults{deps: deps},
		models.JobBackfillSeason: &backfillSeason{deps: deps, orchestrator: orchestrator},
	}

	for _, jobType := range models.KnownJobTypes {
		if err := registry.Register(jobType, handlers[jobType]); err != nil {
			return errors.Wrapf(err, "register %s", jobType)
		}
	}
	return nil
}

package handlers

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

const (
	defaultFixtureLookback  = 24 * time.Hour
	defaultFixtureLookahead = 7 * 24 * time.Hour
	defaultResultsLookback  = 72 * time.Hour
)

// syncLeagues refreshes league metadata
type syncLeagues struct {
	deps *Deps
}

func (h *syncLeagues) Run(ctx context.Context, task jobs.Task) (jobs.Report, error) {
	var report jobs.Report

	leagues, err := h.deps.leaguesFor(task)
	if err != nil {
		return report, err
	}

	var errs error
	for _, l := range leagues {
		league, found, err := h.deps.Provider.League(ctx, l.Code)
		if err != nil {
			report.Count("leagues_failed", 1)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "league %s", l.Code))
			continue
		}
		if !found {
			// Not published upstream; store the registry entry
			league = &models.League{Code: l.Code, Name: l.Name}
			league.Abbreviation.String, league.Abbreviation.Valid = l.Abbreviation, l.Abbreviation != ""
			report.Count("leagues_not_published", 1)
		}

		if err := h.deps.Leagues.Upsert(ctx, league); err != nil {
			report.Count("leagues_failed", 1)
			errs = errors.CombineErrors(errs, err)
			continue
		}
		report.Count("leagues_upserted", 1)
	}

	return report, errs
}

// syncClubs refreshes the clubs of each league
type syncClubs struct {
	deps *Deps
}

func (h *syncClubs) Run(ctx context.Context, task jobs.Task) (jobs.Report, error) {
	var report jobs.Report

	leagues, err := h.deps.leaguesFor(task)
	if err != nil {
		return report, err
	}

	var errs error
	for _, l := range leagues {
		clubs, err := h.deps.Provider.Clubs(ctx, l.Code)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "clubs %s", l.Code))
			continue
		}

		for i := range clubs {
			if err := h.deps.Clubs.Upsert(ctx, &clubs[i]); err != nil {
				report.Count("clubs_failed", 1)
				log.Warn().Err(err).Str("league", l.Code).Str("club", clubs[i].ProviderID).Msg("Failed to store club")
				continue
			}
			report.Count("clubs_upserted", 1)
		}
	}

	return report, errs
}

// syncFixtures pulls the scoreboard around now for each league
type syncFixtures struct {
	deps *Deps
}

func (h *syncFixtures) Run(ctx context.Context, task jobs.Task) (jobs.Report, error) {
	var report jobs.Report

	leagues, err := h.deps.leaguesFor(task)
	if err != nil {
		return report, err
	}

	lookback := h.deps.FixtureLookback
	if lookback <= 0 {
		lookback = defaultFixtureLookback
	}
	lookahead := h.deps.FixtureLookahead
	if lookahead <= 0 {
		lookahead = defaultFixtureLookahead
	}
	now := h.deps.now()
	from, to := now.Add(-lookback), now.Add(lookahead)

	var errs error
	for _, l := range leagues {
		fixtures, skipped, err := h.deps.Provider.Scoreboard(ctx, l.Code, from, to)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "scoreboard %s", l.Code))
			continue
		}
		report.Count("events_skipped", skipped)

		for i := range fixtures {
			inserted, err := h.deps.Fixtures.Upsert(ctx, &fixtures[i])
			if err != nil {
				report.Count("fixtures_failed", 1)
				log.Warn().Err(err).Str("league", l.Code).Str("event_id", fixtures[i].ProviderEventID).Msg("Failed to store fixture")
				continue
			}
			if inserted {
				report.Count("fixtures_inserted", 1)
			} else {
				report.Count("fixtures_updated", 1)
			}
		}
	}

	return report, errs
}

// syncResults settles fixtures that have kicked off but are not yet final,
// storing deep data for the ones that finished
type syncResults struct {
	deps *Deps
}

func (h *syncResults) Run(ctx context.Context, task jobs.Task) (jobs.Report, error) {
	var report jobs.Report

	leagues, err := h.deps.leaguesFor(task)
	if err != nil {
		return report, err
	}
	inScope := make(map[string]bool, len(leagues))
	for _, l := range leagues {
		inScope[l.Code] = true
	}

	lookback := h.deps.ResultsLookback
	if lookback <= 0 {
		lookback = defaultResultsLookback
	}
	now := h.deps.now()

	pending, err := h.deps.Fixtures.ListUnsettled(ctx, now.Add(-lookback), now)
	if err != nil {
		return report, err
	}

	var failures int
	for _, f := range pending {
		if !inScope[f.LeagueCode] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Count("results_checked", 1)

		summary, completed, found, err := h.deps.Provider.Summary(ctx, f.LeagueCode, f.ProviderEventID)
		if err != nil {
			failures++
			report.Count("results_failed", 1)
			log.Warn().Err(err).Str("league", f.LeagueCode).Str("event_id", f.ProviderEventID).Msg("Failed to fetch result")
			continue
		}
		if !found {
			report.Count("results_missing", 1)
			continue
		}

		f.Status = summary.Fixture.Status
		f.HomeScore = summary.Fixture.HomeScore
		f.AwayScore = summary.Fixture.AwayScore
		if err := h.deps.Fixtures.UpdateResult(ctx, f); err != nil {
			failures++
			report.Count("results_failed", 1)
			log.Warn().Err(err).Int64("fixture_id", f.ID).Msg("Failed to store result")
			continue
		}
		if !completed {
			continue
		}
		report.Count("results_settled", 1)

		lineups, commentary, err := storeDeepData(ctx, h.deps.DeepData, f.ID, summary)
		if err != nil {
			report.Count("deep_failed", 1)
			log.Warn().Err(err).Int64("fixture_id", f.ID).Msg("Failed to store deep data")
			continue
		}
		report.Count("lineup_rows", lineups)
		report.Count("commentary_rows", commentary)
	}

	if failures > 0 && failures == report.Counters["results_checked"] {
		return report, errors.Newf("all %d result fetches failed", failures)
	}

	return report, nil
}

// storeDeepData replaces a fixture's lineups and commentary with the
// summary's. An empty section leaves the stored rows alone.
func storeDeepData(ctx context.Context, store DeepDataStore, fixtureID int64, summary *models.MatchSummary) (lineups, commentary int, err error) {
	if len(summary.Lineups) > 0 {
		lineups, err = store.ReplaceLineups(ctx, fixtureID, summary.Lineups)
		if err != nil {
			return 0, 0, err
		}
	}
	if len(summary.Commentary) > 0 {
		commentary, err = store.ReplaceCommentary(ctx, fixtureID, summary.Commentary)
		if err != nil {
			return lineups, 0, err
		}
	}
	return lineups, commentary, nil
}

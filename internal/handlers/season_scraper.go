package handlers

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/metrics"
	"sportsync/ingestion/internal/models"
)

const maxIndexPages = 60

// SeasonScraper fetches and stores a whole league season
type SeasonScraper struct {
	provider Provider
	fixtures FixtureStore
	deep     DeepDataStore
	platinum PlatinumStore
	maxPages int
}

// NewSeasonScraper creates a scraper over provider and the domain stores
func NewSeasonScraper(provider Provider, fixtures FixtureStore, deep DeepDataStore, platinum PlatinumStore) *SeasonScraper {
	return &SeasonScraper{
		provider: provider,
		fixtures: fixtures,
		deep:     deep,
		platinum: platinum,
		maxPages: maxIndexPages,
	}
}

// Scrape fills one league season. In full mode every event in the provider's
// index is fetched and upserted; in deep_only mode only stored final fixtures
// lacking deep data are refetched. Both modes then refresh transfers and
// leaders. Per-event failures are counted in the audit and never abort the
// season; the only returned error is context cancellation.
func (s *SeasonScraper) Scrape(ctx context.Context, leagueCode string, seasonYear int, mode models.ScrapeMode) (*models.SeasonAudit, error) {
	start := time.Now()
	audit := &models.SeasonAudit{LeagueCode: leagueCode, SeasonYear: seasonYear, Mode: mode}

	log.Info().
		Str("league", leagueCode).
		Int("season", seasonYear).
		Str("mode", string(mode)).
		Msg("Starting season scrape")

	var err error
	switch mode {
	case models.ScrapeFull:
		err = s.scrapeIndex(ctx, audit)
	case models.ScrapeDeepOnly:
		err = s.scrapeDeep(ctx, audit)
	default:
		return audit, errors.Newf("unknown scrape mode %q", mode)
	}
	if err != nil {
		metrics.RecordSeasonScrape(string(mode), "cancelled")
		return audit, err
	}

	if err := s.scrapePlatinum(ctx, audit); err != nil {
		metrics.RecordSeasonScrape(string(mode), "cancelled")
		return audit, err
	}

	status := "success"
	if len(audit.Errors) > 0 || audit.EventErrors > 0 {
		status = "partial"
	}
	metrics.RecordSeasonScrape(string(mode), status)

	log.Info().
		Str("league", leagueCode).
		Int("season", seasonYear).
		Str("audit", audit.Summary()).
		Dur("duration", time.Since(start)).
		Msg("Season scrape finished")

	return audit, nil
}

func (s *SeasonScraper) scrapeIndex(ctx context.Context, audit *models.SeasonAudit) error {
	seen := make(map[string]bool)

	for page := 1; page <= s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		idx, err := s.provider.EventIndex(ctx, audit.LeagueCode, audit.SeasonYear, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			audit.AddErrorf("event index page %d: %v", page, err)
			return nil
		}

		for _, eventID := range idx.EventIDs {
			if seen[eventID] {
				continue
			}
			seen[eventID] = true
			audit.FixturesFound++

			if err := s.scrapeEvent(ctx, audit, eventID); err != nil {
				return err
			}
		}

		if len(idx.EventIDs) == 0 || page >= idx.PageCount {
			return nil
		}
	}

	log.Warn().
		Str("league", audit.LeagueCode).
		Int("season", audit.SeasonYear).
		Int("pages", s.maxPages).
		Msg("Event index page limit reached")

	return nil
}

// scrapeEvent upserts one event's fixture and, when it is finished, its deep
// data. Only cancellation is returned.
func (s *SeasonScraper) scrapeEvent(ctx context.Context, audit *models.SeasonAudit, eventID string) error {
	summary, completed, found, err := s.provider.Summary(ctx, audit.LeagueCode, eventID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		audit.EventErrors++
		log.Warn().Err(err).Str("league", audit.LeagueCode).Str("event_id", eventID).Msg("Failed to fetch event summary")
		return nil
	}
	if !found {
		audit.SummariesMissing++
		log.Debug().Str("league", audit.LeagueCode).Str("event_id", eventID).Msg("Event has no summary")
		return nil
	}

	fixture := summary.Fixture
	fixture.LeagueCode = audit.LeagueCode
	fixture.SeasonYear = audit.SeasonYear
	if _, err := s.fixtures.Upsert(ctx, &fixture); err != nil {
		audit.EventErrors++
		log.Warn().Err(err).Str("event_id", eventID).Msg("Failed to store fixture")
		return nil
	}
	audit.FixturesUpserted++

	if !completed {
		return nil
	}

	s.storeDeep(ctx, audit, fixture.ID, summary)
	return nil
}

func (s *SeasonScraper) scrapeDeep(ctx context.Context, audit *models.SeasonAudit) error {
	fixtures, err := s.fixtures.ListForDeepData(ctx, audit.LeagueCode, audit.SeasonYear)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		audit.AddErrorf("list fixtures lacking deep data: %v", err)
		return nil
	}
	audit.FixturesFound = len(fixtures)

	for _, f := range fixtures {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary, completed, found, err := s.provider.Summary(ctx, audit.LeagueCode, f.ProviderEventID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			audit.EventErrors++
			log.Warn().Err(err).Str("league", audit.LeagueCode).Str("event_id", f.ProviderEventID).Msg("Failed to fetch event summary")
			continue
		}
		if !found {
			audit.SummariesMissing++
			continue
		}
		if !completed {
			continue
		}

		s.storeDeep(ctx, audit, f.ID, summary)
	}

	return nil
}

func (s *SeasonScraper) storeDeep(ctx context.Context, audit *models.SeasonAudit, fixtureID int64, summary *models.MatchSummary) {
	audit.DeepAttempts++

	lineups, commentary, err := storeDeepData(ctx, s.deep, fixtureID, summary)
	audit.LineupRows += lineups
	audit.CommentaryRows += commentary
	if err != nil {
		audit.EventErrors++
		log.Warn().Err(err).Int64("fixture_id", fixtureID).Msg("Failed to store deep data")
		return
	}
	if lineups+commentary > 0 {
		audit.DeepHits++
	}
}

func (s *SeasonScraper) scrapePlatinum(ctx context.Context, audit *models.SeasonAudit) error {
	transfers, err := s.provider.Transfers(ctx, audit.LeagueCode, audit.SeasonYear)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		audit.AddErrorf("transfers: %v", err)
	} else if n, err := s.platinum.UpsertTransfers(ctx, transfers); err != nil {
		audit.AddErrorf("store transfers: %v", err)
	} else {
		audit.TransferRows = n
	}

	stats, err := s.provider.Leaders(ctx, audit.LeagueCode, audit.SeasonYear)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		audit.AddErrorf("leaders: %v", err)
	} else if n, err := s.platinum.UpsertSeasonStats(ctx, stats); err != nil {
		audit.AddErrorf("store leaders: %v", err)
	} else {
		audit.SeasonStatRows = n
	}

	return nil
}

package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/models"
)

// Scraper fetches and stores one league season in the given mode
type Scraper interface {
	Scrape(ctx context.Context, leagueCode string, seasonYear int, mode models.ScrapeMode) (*models.SeasonAudit, error)
}

// PairResult is the decision and outcome for one league season
type PairResult struct {
	LeagueCode string
	SeasonYear int
	Health     *models.SeasonHealth
	// Mode is empty when the season needed no work
	Mode  models.ScrapeMode
	Audit *models.SeasonAudit
	Err   error
}

// Skipped reports whether the season was complete
func (p PairResult) Skipped() bool {
	return p.Err == nil && p.Mode == ""
}

// Summary collects every pair the orchestrator visited
type Summary struct {
	DryRun      bool
	Pairs       []PairResult
	Unsupported []string
	Scraped     int
	Skipped     int
	Partial     int
	Failed      int
	Duration    time.Duration
}

func (s *Summary) add(p PairResult) {
	s.Pairs = append(s.Pairs, p)
	switch {
	case p.Err != nil:
		s.Failed++
	case p.Mode == "":
		s.Skipped++
	default:
		s.Scraped++
		if p.Audit != nil && len(p.Audit.Errors) > 0 {
			s.Partial++
		}
	}
}

// Summary returns a one-line account of the walk
func (s *Summary) Summary() string {
	line := fmt.Sprintf("pairs=%d scraped=%d skipped=%d partial=%d failed=%d",
		len(s.Pairs), s.Scraped, s.Skipped, s.Partial, s.Failed)
	if s.DryRun {
		line = "dry_run " + line
	}
	if len(s.Unsupported) > 0 {
		line += " unsupported=" + strings.Join(s.Unsupported, ",")
	}
	return line
}

// Orchestrator walks league seasons and scrapes the ones that need it
type Orchestrator struct {
	assessor  *Assessor
	scraper   Scraper
	supported func(leagueCode string) bool
}

// NewOrchestrator creates an orchestrator. supported filters the leagues it
// will visit.
func NewOrchestrator(assessor *Assessor, scraper Scraper, supported func(leagueCode string) bool) *Orchestrator {
	if supported == nil {
		supported = func(string) bool { return true }
	}
	return &Orchestrator{
		assessor:  assessor,
		scraper:   scraper,
		supported: supported,
	}
}

// Run visits every supported league for each season from..to inclusive. A
// failure on one pair is recorded and the walk continues; only context
// cancellation or an invalid range stops it early.
func (o *Orchestrator) Run(ctx context.Context, leagues []string, from, to int, dryRun bool) (*Summary, error) {
	if from > to {
		return nil, errors.Newf("invalid season range %d..%d", from, to)
	}

	start := time.Now()
	summary := &Summary{DryRun: dryRun}

	var codes []string
	for _, code := range leagues {
		if !o.supported(code) {
			log.Warn().Str("league", code).Msg("Skipping unsupported league")
			summary.Unsupported = append(summary.Unsupported, code)
			continue
		}
		codes = append(codes, code)
	}

	for _, code := range codes {
		for season := from; season <= to; season++ {
			if err := ctx.Err(); err != nil {
				summary.Duration = time.Since(start)
				return summary, errors.Wrap(err, "backfill cancelled")
			}
			summary.add(o.RunPair(ctx, code, season, dryRun))
		}
	}

	summary.Duration = time.Since(start)

	log.Info().
		Strs("leagues", codes).
		Int("from", from).
		Int("to", to).
		Bool("dry_run", dryRun).
		Int("scraped", summary.Scraped).
		Int("skipped", summary.Skipped).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Backfill walk finished")

	return summary, nil
}

// RunPair assesses one league season and scrapes it in the mode its health
// calls for. In dry-run mode the decision is made but nothing is scraped.
func (o *Orchestrator) RunPair(ctx context.Context, leagueCode string, seasonYear int, dryRun bool) PairResult {
	res := PairResult{LeagueCode: leagueCode, SeasonYear: seasonYear}

	health, err := o.assessor.Assess(ctx, leagueCode, seasonYear)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Str("league", leagueCode).Int("season", seasonYear).Msg("Season assessment failed")
		return res
	}
	res.Health = health

	mode, ok := models.PlanFor(health.Status)
	if !ok {
		log.Debug().Str("league", leagueCode).Int("season", seasonYear).Msg("Season complete, skipping")
		return res
	}
	res.Mode = mode

	if dryRun {
		log.Info().
			Str("league", leagueCode).
			Int("season", seasonYear).
			Str("status", string(health.Status)).
			Str("mode", string(mode)).
			Msg("Dry run: would scrape season")
		return res
	}

	audit, err := o.scraper.Scrape(ctx, leagueCode, seasonYear, mode)
	res.Audit = audit
	if err != nil {
		res.Err = errors.Wrapf(err, "scrape %s %d", leagueCode, seasonYear)
		log.Error().Err(err).Str("league", leagueCode).Int("season", seasonYear).Msg("Season scrape failed")
		return res
	}

	log.Info().
		Str("league", leagueCode).
		Int("season", seasonYear).
		Str("status", string(health.Status)).
		Str("audit", audit.Summary()).
		Msg("Season scraped")

	return res
}
